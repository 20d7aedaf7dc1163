package naming

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPascalCase(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"HTTPValidationError": "HttpValidationError",
		"HealthStatus":        "HealthStatus",
		"user":                "User",
		"USER_":               "User",
		"access-pass.create":  "AccessPassCreate",
		"x_y":                 "Xy",
		"a user":              "AUser",
		"v1 items":            "V1Items",
		"  ":                  "",
	}
	for in, want := range cases {
		if got := PascalCase(in); got != want {
			t.Errorf("PascalCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSnakeCase(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"HealthStatus":        "health_status",
		"HTTPValidationError": "http_validation_error",
		"getHTTPStatus":       "get_http_status",
		"Get Handler":         "get_handler",
		"listItems":           "list_items",
		"Model1Item":          "model1_item",
		"/projects/{project_oid}/access_passes": "projects_project_oid_access_passes",
	}
	for in, want := range cases {
		if got := SnakeCase(in); got != want {
			t.Errorf("SnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRoundTripCanonicalNames(t *testing.T) {
	t.Parallel()
	raws := []string{"HTTPValidationError", "user", "USER_", "x_y_z", "a_b_user", "2fa", "v1.item-list", "Node", "pet_store_2"}
	reg := NewRegistry()
	for _, raw := range raws {
		canon := reg.Canonical(raw)
		snake := SnakeCase(canon)
		if again := SnakeCase(snake); again != snake {
			t.Errorf("SnakeCase not stable for %q: %q then %q", canon, snake, again)
		}
		if back := PascalCase(snake); back != canon {
			t.Errorf("PascalCase(SnakeCase(%q)) = %q", canon, back)
		}
	}
}

func TestRegistryCollisions(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	first := reg.Canonical("User")
	second := reg.Canonical("USER_")
	if first != "User" || second != "User2" {
		t.Fatalf("got %q and %q, want User and User2", first, second)
	}
	if again := reg.Canonical("USER_"); again != "User2" {
		t.Fatalf("memoised name changed: %q", again)
	}
	if name, ok := reg.Lookup("USER_"); !ok || name != "User2" {
		t.Fatalf("Lookup = %q, %v", name, ok)
	}
	if _, ok := reg.Lookup("Missing"); ok {
		t.Fatalf("unexpected lookup hit")
	}
	if err := reg.Check(); err != nil {
		t.Fatalf("check: %v", err)
	}
}

func TestRegistryInlineAndFallback(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	reg.Canonical("OrderStatusEnum")
	a := reg.Inline("/components/schemas/Order/properties/status", "OrderStatusEnum")
	b := reg.Inline("/components/schemas/Order/properties/status", "Ignored")
	if a != "OrderStatusEnum2" || b != a {
		t.Fatalf("inline names = %q, %q", a, b)
	}
	empty := reg.Canonical("___")
	if empty != "Model2" {
		t.Fatalf("fallback = %q, want Model2", empty)
	}
	if got := reg.Canonical("None"); got != "NoneModel" {
		t.Fatalf("reserved = %q", got)
	}
	want := []string{"Model2", "NoneModel", "OrderStatusEnum", "OrderStatusEnum2"}
	if diff := cmp.Diff(want, reg.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistryCheckDetectsSharedName(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	reg.Canonical("Pet")
	reg.byInline["/x"] = "Pet"
	if err := reg.Check(); !errors.Is(err, ErrCollision) {
		t.Fatalf("expected collision, got %v", err)
	}
}

func TestTagNames(t *testing.T) {
	t.Parallel()
	cases := []struct {
		tag, class, dir string
	}{
		{"health", "Health", "health"},
		{"access-passes", "AccessPasses", "access_passes"},
		{"User Management", "UserManagement", "user_management"},
		{"accessPasses", "AccessPasses", "access_passes"},
		{"", "Default", "default"},
		{"class", "Class", "class_"},
	}
	for _, tc := range cases {
		if got := ClassNameFromTag(tc.tag); got != tc.class {
			t.Errorf("ClassNameFromTag(%q) = %q, want %q", tc.tag, got, tc.class)
		}
		if got := DirNameFromTag(tc.tag); got != tc.dir {
			t.Errorf("DirNameFromTag(%q) = %q, want %q", tc.tag, got, tc.dir)
		}
	}
	if got := LowerCamel("AccessPasses"); got != "accessPasses" {
		t.Errorf("LowerCamel = %q", got)
	}
}

func TestIdentifier(t *testing.T) {
	t.Parallel()
	if got := Identifier("from"); got != "from_" {
		t.Errorf("keyword: %q", got)
	}
	if got := Identifier("2fa"); got != "n_2fa" {
		t.Errorf("digit: %q", got)
	}
	if IsIdentifier("created-at") || !IsIdentifier("created_at") || IsIdentifier("class") {
		t.Errorf("IsIdentifier mismatch")
	}
}
