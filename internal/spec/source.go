package spec

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Source is a fetched document.
type Source struct {
	Raw []byte
	// Location is the absolute file path or the URL the bytes came from.
	Location string
	// Local reports whether Location is a filesystem path.
	Local bool
}

// Fetch reads source, which may be an http(s) URL, a file:// URL or a
// filesystem path, and copies the bytes to settings.CachePath. The copy is
// skipped when source and cache are the same file.
func Fetch(ctx context.Context, source string, settings Settings) (Source, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return Source{}, &SpecError{Code: InputError, Message: "spec: input is empty"}
	}

	var src Source
	u, uerr := url.Parse(source)
	scheme := ""
	if uerr == nil {
		scheme = strings.ToLower(u.Scheme)
	}
	switch {
	case scheme == "http" || scheme == "https":
		if u.Host == "" {
			return Source{}, &SpecError{Code: InputError, Message: fmt.Sprintf("spec: URL %q has no host", source), Location: source}
		}
		raw, err := fetchWithRetry(ctx, source, settings)
		if err != nil {
			return Source{}, &SpecError{Code: NetworkError, Message: fmt.Sprintf("fetch %s: %v", source, err), Location: source, Cause: err}
		}
		src = Source{Raw: raw, Location: source}
	case scheme == "file":
		path := u.Path
		if u.Host != "" && u.Host != "localhost" {
			path = u.Host + u.Path
		}
		if path == "" {
			path = u.Opaque
		}
		s, err := readLocal(path)
		if err != nil {
			return Source{}, err
		}
		src = s
	case len(scheme) > 1 && u.Host != "":
		return Source{}, &SpecError{Code: InputError, Message: fmt.Sprintf("spec: unsupported URL scheme %q (http, https and file are allowed)", scheme), Location: source}
	default:
		s, err := readLocal(source)
		if err != nil {
			return Source{}, err
		}
		src = s
	}

	if err := writeCache(src, settings.CachePath); err != nil {
		return Source{}, err
	}
	return src, nil
}

func readLocal(path string) (Source, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Source{}, &SpecError{Code: InputError, Message: fmt.Sprintf("resolve path: %v", err), Location: path, Cause: err}
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		return Source{}, &SpecError{Code: InputError, Message: fmt.Sprintf("read file %s: %v", abs, err), Location: abs, Cause: err}
	}
	return Source{Raw: raw, Location: abs, Local: true}, nil
}

func writeCache(src Source, cachePath string) error {
	if cachePath == "" {
		return nil
	}
	abs, err := filepath.Abs(cachePath)
	if err != nil {
		return &SpecError{Code: InputError, Message: fmt.Sprintf("resolve cache path: %v", err), Location: cachePath, Cause: err}
	}
	if src.Local && sameFile(src.Location, abs) {
		return nil
	}
	if dir := filepath.Dir(abs); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &SpecError{Code: InputError, Message: fmt.Sprintf("create cache dir: %v", err), Location: abs, Cause: err}
		}
	}
	if err := os.WriteFile(abs, src.Raw, 0o644); err != nil {
		return &SpecError{Code: InputError, Message: fmt.Sprintf("write cache %s: %v", abs, err), Location: abs, Cause: err}
	}
	return nil
}

func sameFile(a, b string) bool {
	if filepath.Clean(a) == filepath.Clean(b) {
		return true
	}
	ia, err := os.Stat(a)
	if err != nil {
		return false
	}
	ib, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ia, ib)
}
