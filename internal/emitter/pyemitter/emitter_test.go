package pyemitter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mark3labs/swagger2client/internal/ir"
	"github.com/mark3labs/swagger2client/internal/slicer"
)

func strPtr(s string) *string { return &s }

func shopService(t *testing.T) *Service {
	t.Helper()
	models := ir.NewRegistry()
	for _, m := range []ir.ModelIR{
		{
			Name: "Node", Kind: ir.KindObject,
			Fields: []ir.ModelField{
				{Name: "children", Type: "Optional[List[Node]]", Default: strPtr("None")},
			},
			ReferencedModels: []string{"Node"},
		},
		{
			Name: "Item", Kind: ir.KindObject, Description: "An item.",
			Fields: []ir.ModelField{
				{Name: "id", Type: "int", Required: true},
				{Name: "name", Type: "str", Required: true, Constraints: map[string]string{
					ir.ConstraintMaxLength: "50", ir.ConstraintMinLength: "1",
				}},
				{Name: "created_at", Alias: "created-at", Type: "Optional[datetime]", Default: strPtr("None")},
				{Name: "tags", Type: "Optional[Tags]", Default: strPtr("None")},
				{Name: "status", Type: "Status", Required: true},
				{Name: "error", Type: "Optional[HttpValidationError]", Default: strPtr("None")},
			},
			ReferencedModels: []string{"HttpValidationError", "Status", "Tags"},
		},
		{Name: "Status", Kind: ir.KindEnumString, EnumValues: []string{"active", "sold-out"}},
		{Name: "Tags", Kind: ir.KindAlias, AliasType: "List[str]"},
		{Name: "HttpValidationError", Kind: ir.KindObject},
	} {
		if err := models.Put(m); err != nil {
			t.Fatalf("put %s: %v", m.Name, err)
		}
	}
	models.Freeze()

	endpoints := []ir.EndpointIR{
		{
			Tag: "Items", TagDir: "items", MethodName: "list_items", HTTPMethod: ir.MethodGet, Path: "/items",
			QueryParams: []ir.Parameter{
				{Name: "sort", PyName: "sort", Type: "Status", Location: ir.LocationQuery},
				{Name: "page-size", PyName: "page_size", Type: "int", Required: true, Location: ir.LocationQuery},
			},
			SuccessStatus: "OK", ReturnType: "List[Item]", Summary: "List items",
			Models: []string{"Item", "Status"},
		},
		{
			Tag: "Items", TagDir: "items", MethodName: "create_item", HTTPMethod: ir.MethodPost, Path: "/items/{shopId}",
			PathParams:    []ir.Parameter{{Name: "shopId", PyName: "shop_id", Type: "str", Required: true, Location: ir.LocationPath}},
			PayloadType:   "Item", PayloadRequired: true, PayloadMedia: "application/json",
			SuccessStatus: "CREATED", ReturnType: "Item",
			Models:        []string{"Item"},
		},
		{
			Tag: "Items", TagDir: "items", MethodName: "delete_item", HTTPMethod: ir.MethodDelete, Path: "/items/{id}",
			PathParams:    []ir.Parameter{{Name: "id", PyName: "id", Type: "int", Required: true, Location: ir.LocationPath}},
			SuccessStatus: "NO_CONTENT", ReturnType: "Any",
		},
		{
			Tag: "tree", TagDir: "tree", MethodName: "get_tree", HTTPMethod: ir.MethodGet, Path: "/tree",
			SuccessStatus: "OK", ReturnType: "Node", Models: []string{"Node"},
		},
	}
	return &Service{
		Title:     "Shop",
		ServerURL: "https://api.test/v1",
		Endpoints: endpoints,
		Models:    models,
		Slicer:    slicer.New(models, slicer.DefaultSkip),
	}
}

func emitShop(t *testing.T, tests bool) (*Result, string) {
	t.Helper()
	base := t.TempDir()
	opts := Options{OutDir: filepath.Join(base, "rest_clients"), StepDecorator: DefaultStepDecorator}
	if tests {
		opts.TestsDir = filepath.Join(base, "tests", "rest_clients")
	}
	res, err := Emit(context.Background(), shopService(t), opts)
	if err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	return res, base
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestEmitModelFiles(t *testing.T) {
	t.Parallel()
	_, base := emitShop(t, false)
	models := filepath.Join(base, "rest_clients", "shop", "items", "models")

	cases := map[string]string{
		"item.py": `from datetime import datetime

from typing import Any, Optional

from pydantic import Field

from .base_config import BaseConfigModel
from .status import Status
from .tags import Tags


class Item(BaseConfigModel):
    """An item."""
    id: int
    name: str = Field(..., min_length=1, max_length=50)
    created_at: Optional[datetime] = Field(default=None, alias="created-at")
    tags: Optional[Tags] = None
    status: Status
    error: Optional[Any] = None
`,
		"status.py": `from enum import Enum


class Status(str, Enum):
    VALUE_1 = "active"
    VALUE_2 = "sold-out"
`,
		"tags.py": `from typing import List


Tags = List[str]
`,
		"__init__.py": `from .item import Item
from .status import Status
from .tags import Tags

__all__ = [
    "Item",
    "Status",
    "Tags",
]
`,
	}
	for name, want := range cases {
		if diff := cmp.Diff(want, readFile(t, filepath.Join(models, name))); diff != "" {
			t.Errorf("%s (-want +got):\n%s", name, diff)
		}
	}

	if _, err := os.Stat(filepath.Join(models, "http_validation_error.py")); !os.IsNotExist(err) {
		t.Errorf("skipped model was emitted: %v", err)
	}
	if !strings.Contains(readFile(t, filepath.Join(models, "base_config.py")), `extra="forbid"`) {
		t.Errorf("base_config.py lacks the model configuration")
	}
}

func TestEmitRecursiveModel(t *testing.T) {
	t.Parallel()
	_, base := emitShop(t, false)
	got := readFile(t, filepath.Join(base, "rest_clients", "shop", "tree", "models", "node.py"))
	want := `from typing import List, Optional

from .base_config import BaseConfigModel


class Node(BaseConfigModel):
    children: Optional[List["Node"]] = None
`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("node.py (-want +got):\n%s", diff)
	}
}

func chainService(t *testing.T) *Service {
	t.Helper()
	models := ir.NewRegistry()
	for _, m := range []ir.ModelIR{
		{
			Name: "A", Kind: ir.KindObject,
			Fields:           []ir.ModelField{{Name: "b", Type: "Optional[B]", Default: strPtr("None")}},
			ReferencedModels: []string{"B"},
		},
		{
			Name: "B", Kind: ir.KindObject,
			Fields:           []ir.ModelField{{Name: "c", Type: "C", Required: true}},
			ReferencedModels: []string{"C"},
		},
		{
			Name: "C", Kind: ir.KindObject,
			Fields:           []ir.ModelField{{Name: "empty", Type: "Optional[Empty]", Default: strPtr("None")}},
			ReferencedModels: []string{"Empty"},
		},
		{Name: "Empty", Kind: ir.KindObject},
	} {
		if err := models.Put(m); err != nil {
			t.Fatalf("put %s: %v", m.Name, err)
		}
	}
	models.Freeze()
	return &Service{
		Title: "Chain",
		Endpoints: []ir.EndpointIR{{
			Tag: "chain", TagDir: "chain", MethodName: "get_a", HTTPMethod: ir.MethodGet, Path: "/a",
			SuccessStatus: "OK", ReturnType: "A", Models: []string{"A"},
		}},
		Models: models,
	}
}

func TestEmitImportsTransitiveDependencies(t *testing.T) {
	t.Parallel()
	out := filepath.Join(t.TempDir(), "rest_clients")
	if _, err := Emit(context.Background(), chainService(t), Options{OutDir: out}); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	models := filepath.Join(out, "chain", "chain", "models")

	imports := map[string]string{
		"a.py": "from .base_config import BaseConfigModel\nfrom .b import B\nfrom .c import C\nfrom .empty import Empty\n\n\n",
		"b.py": "from .base_config import BaseConfigModel\nfrom .c import C\nfrom .empty import Empty\n\n\n",
		"c.py": "from .base_config import BaseConfigModel\nfrom .empty import Empty\n\n\n",
	}
	for name, want := range imports {
		if got := readFile(t, filepath.Join(models, name)); !strings.Contains(got, want) {
			t.Errorf("%s lacks the import block %q:\n%s", name, want, got)
		}
	}
}

func TestEmitEmptyModel(t *testing.T) {
	t.Parallel()
	out := filepath.Join(t.TempDir(), "rest_clients")
	if _, err := Emit(context.Background(), chainService(t), Options{OutDir: out}); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	got := readFile(t, filepath.Join(out, "chain", "chain", "models", "empty.py"))
	want := `from .base_config import BaseConfigModel


class Empty(BaseConfigModel):
    pass
`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("empty.py (-want +got):\n%s", diff)
	}
}

func TestEmitClient(t *testing.T) {
	t.Parallel()
	_, base := emitShop(t, false)
	got := readFile(t, filepath.Join(base, "rest_clients", "shop", "items", "client.py"))

	wantHeader := `from http import HTTPStatus

from typing import Any, Dict, List, Optional

import allure
from rest_runtime import RestClient

from .models import Item, Status


class Items:
    def __init__(self, client: RestClient) -> None:
        self._client = client

    @allure.step("List items")
    def list_items(
        self,
        page_size: int,
        sort: Optional[Status] = None,
        params: Optional[Dict[str, Any]] = None,
        headers: Optional[Dict[str, str]] = None,
        expected_status: HTTPStatus = HTTPStatus.OK,
    ) -> List[Item]:
        """List items"""
        url = "https://api.test/v1/items"
        query: Dict[str, Any] = {
            "sort": sort,
            "page-size": page_size,
        }
        query = {key: value for key, value in query.items() if value is not None}
        if params:
            query.update(params)
        raw = self._client.get(
            url,
            params=query,
            headers=headers,
            expected_status=expected_status,
        )
        return [Item(**x) for x in raw] if expected_status == HTTPStatus.OK else raw
`
	if !strings.HasPrefix(got, wantHeader) {
		t.Fatalf("client.py prefix mismatch (-want +got):\n%s", cmp.Diff(wantHeader, got[:min(len(got), len(wantHeader))]))
	}

	for _, want := range []string{
		`    @allure.step("POST /items/{shopId}")`,
		`        shop_id: str,
        payload: Item,
        params: Optional[Dict[str, Any]] = None,`,
		`        url = f"https://api.test/v1/items/{shop_id}"`,
		`            payload=payload.model_dump(by_alias=True, exclude_none=True),`,
		`        return Item(**raw) if expected_status == HTTPStatus.CREATED else raw`,
		`        expected_status: HTTPStatus = HTTPStatus.NO_CONTENT,
    ) -> Any:`,
		`        raw = self._client.delete(
            url,
            params=query,`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("client.py missing:\n%s", want)
		}
	}
	if !strings.HasSuffix(got, "        return raw\n") {
		t.Errorf("client.py should end with the pass-through of delete_item")
	}
}

func TestEmitFacades(t *testing.T) {
	t.Parallel()
	_, base := emitShop(t, false)
	out := filepath.Join(base, "rest_clients")

	wantFacade := `from rest_runtime import RestClient

from .items import Items
from .tree import Tree


class ShopFacade:
    def __init__(self, client: RestClient) -> None:
        self._client = client
        self.items = Items(client)
        self.tree = Tree(client)
`
	if diff := cmp.Diff(wantFacade, readFile(t, filepath.Join(out, "shop", "facade.py"))); diff != "" {
		t.Errorf("facade.py (-want +got):\n%s", diff)
	}

	wantInit := `"""Shop client."""

from .items import Items
from .tree import Tree
from .facade import ShopFacade

__all__ = [
    "Items",
    "Tree",
    "ShopFacade",
]
`
	if diff := cmp.Diff(wantInit, readFile(t, filepath.Join(out, "shop", "__init__.py"))); diff != "" {
		t.Errorf("__init__.py (-want +got):\n%s", diff)
	}

	wantAggregate := `from rest_runtime import RestClient

from .shop.facade import ShopFacade


class ApiFacade:
    def __init__(self, client: RestClient) -> None:
        self._client = client
        self.shop = ShopFacade(client)
`
	if diff := cmp.Diff(wantAggregate, readFile(t, filepath.Join(out, "api_facade.py"))); diff != "" {
		t.Errorf("api_facade.py (-want +got):\n%s", diff)
	}
	if got := readFile(t, filepath.Join(out, "__init__.py")); got != "" {
		t.Errorf("output marker should be empty, got %q", got)
	}
}

func TestAggregateFacadeIncludesSiblingModules(t *testing.T) {
	t.Parallel()
	out := filepath.Join(t.TempDir(), "clients")
	if err := os.MkdirAll(filepath.Join(out, "zeta"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(out, "zeta", "facade.py"), []byte("class ZetaFacade: ...\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(out, "no_facade"), 0o755); err != nil {
		t.Fatal(err)
	}

	if _, err := Emit(context.Background(), shopService(t), Options{OutDir: out}); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	got := readFile(t, filepath.Join(out, "api_facade.py"))
	for _, want := range []string{
		"from .shop.facade import ShopFacade\nfrom .zeta.facade import ZetaFacade\n",
		"        self.shop = ShopFacade(client)\n        self.zeta = ZetaFacade(client)\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("api_facade.py missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "no_facade") {
		t.Errorf("directory without facade.py was aggregated:\n%s", got)
	}
}

func TestEmitTestSkeleton(t *testing.T) {
	t.Parallel()
	res, base := emitShop(t, true)
	tests := filepath.Join(base, "tests", "rest_clients", "shop")

	wantAssert := `from assertpy import assert_that


def assert_list_items(raw):
    assert_that(raw).is_not_none().is_not_empty()
    for item in raw:
        assert_that(item).is_not_none()
        assert_that(item.id).is_not_none()
        assert_that(item.name).is_not_none().is_not_empty()
        assert_that(item.status).is_not_none()
`
	if diff := cmp.Diff(wantAssert, readFile(t, filepath.Join(tests, "items", "asserts", "assert_list_items.py"))); diff != "" {
		t.Errorf("assert_list_items.py (-want +got):\n%s", diff)
	}
	wantDelete := "def assert_delete_item(raw):\n    pass\n"
	if diff := cmp.Diff(wantDelete, readFile(t, filepath.Join(tests, "items", "asserts", "assert_delete_item.py"))); diff != "" {
		t.Errorf("assert_delete_item.py (-want +got):\n%s", diff)
	}

	wantTest := `import pytest

from .asserts.assert_get_tree import assert_get_tree


def test_get_tree(tree_client):
    raw = tree_client.get_tree()
    assert_get_tree(raw)
`
	gotTest := readFile(t, filepath.Join(tests, "tree", "test_tree.py"))
	if diff := cmp.Diff(strings.TrimPrefix(wantTest, "import pytest\n\n"), gotTest); diff != "" {
		t.Errorf("test_tree.py (-want +got):\n%s", diff)
	}

	itemsTest := readFile(t, filepath.Join(tests, "items", "test_items.py"))
	for _, want := range []string{
		"import pytest\n",
		`@pytest.mark.skip(reason="fill in the required arguments")
def test_create_item(items_client):
    raw = items_client.create_item(
        shop_id=...,
        payload=...,
    )
    assert_create_item(raw)
`,
	} {
		if !strings.Contains(itemsTest, want) {
			t.Errorf("test_items.py missing:\n%s\ngot:\n%s", want, itemsTest)
		}
	}

	wantConftest := `import pytest

from rest_clients.shop.items import Items
from rest_clients.shop.tree import Tree


@pytest.fixture
def items_client(api_client):
    return Items(api_client)


@pytest.fixture
def tree_client(api_client):
    return Tree(api_client)
`
	if diff := cmp.Diff(wantConftest, readFile(t, filepath.Join(tests, "conftest.py"))); diff != "" {
		t.Errorf("conftest.py (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{res.OutDir, tests}, res.Roots); diff != "" {
		t.Errorf("roots (-want +got):\n%s", diff)
	}
}

func TestEmitDryRunPlansInWriteOrder(t *testing.T) {
	t.Parallel()
	out := filepath.Join(t.TempDir(), "rest_clients")
	res, err := Emit(context.Background(), shopService(t), Options{OutDir: out, DryRun: true})
	if err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("dry run touched the output directory: %v", err)
	}

	var got []string
	for _, p := range res.Planned {
		got = append(got, p.RelPath)
		if p.Root != res.OutDir {
			t.Errorf("%s planned under %s", p.RelPath, p.Root)
		}
	}
	want := []string{
		"__init__.py",
		"shop/items/models/base_config.py",
		"shop/items/models/item.py",
		"shop/items/models/status.py",
		"shop/items/models/tags.py",
		"shop/items/models/__init__.py",
		"shop/items/client.py",
		"shop/items/__init__.py",
		"shop/tree/models/base_config.py",
		"shop/tree/models/node.py",
		"shop/tree/models/__init__.py",
		"shop/tree/client.py",
		"shop/tree/__init__.py",
		"shop/facade.py",
		"shop/__init__.py",
		"api_facade.py",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("plan (-want +got):\n%s", diff)
	}
	if res.Module != "shop" {
		t.Errorf("module = %q, want shop", res.Module)
	}
}

func TestEmitIsDeterministic(t *testing.T) {
	t.Parallel()
	first, _ := emitShop(t, true)
	second, _ := emitShop(t, true)
	strip := func(res *Result) []PlannedFile {
		out := make([]PlannedFile, len(res.Planned))
		for i, p := range res.Planned {
			p.Root = strings.TrimPrefix(p.Root, filepath.Dir(res.OutDir))
			out[i] = p
		}
		return out
	}
	if diff := cmp.Diff(strip(first), strip(second)); diff != "" {
		t.Fatalf("plans differ (-first +second):\n%s", diff)
	}
}

func TestEmitErrors(t *testing.T) {
	t.Parallel()
	if _, err := Emit(context.Background(), nil, Options{OutDir: t.TempDir()}); err == nil {
		t.Errorf("expected error for nil service")
	}
	if _, err := Emit(context.Background(), shopService(t), Options{OutDir: "  "}); err == nil {
		t.Errorf("expected error for empty OutDir")
	}

	file := filepath.Join(t.TempDir(), "occupied")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Emit(context.Background(), shopService(t), Options{OutDir: file})
	var emitErr *EmitError
	if !errors.As(err, &emitErr) || !errors.Is(err, ErrEmitIO) {
		t.Fatalf("expected EmitError, got %v", err)
	}
	if emitErr.Path != file {
		t.Errorf("error path = %q, want %q", emitErr.Path, file)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Emit(ctx, shopService(t), Options{OutDir: t.TempDir()}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestGroupEndpointsDisambiguatesClasses(t *testing.T) {
	t.Parallel()
	eps := []ir.EndpointIR{
		{Tag: "pet-store", TagDir: "pet_store_2", MethodName: "b"},
		{Tag: "pet store", TagDir: "pet_store", MethodName: "a"},
		{Tag: "pet store", TagDir: "pet_store", MethodName: "c"},
	}
	classOf := func(tag string) string { return "PetStore" }
	groups := groupEndpoints(eps, classOf)

	type summary struct {
		Dir, Class string
		Methods    int
	}
	var got []summary
	for _, g := range groups {
		got = append(got, summary{g.Dir, g.Class, len(g.Endpoints)})
	}
	want := []summary{{"pet_store", "PetStore", 2}, {"pet_store_2", "PetStore2", 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("groups (-want +got):\n%s", diff)
	}
}

func TestDocstring(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name, in, want string
	}{
		{"empty", "  ", ""},
		{"single", "Lists items.", `"""Lists items."""`},
		{"trailing quote", `Say "hi"`, `"""Say "hi" """`},
		{"triple quotes", `a """ b`, `"""a \"\"\" b"""`},
		{"multi line", "First.\n\nSecond.  ", "\"\"\"First.\n\n    Second.\n    \"\"\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := docstring(tt.in, "    "); got != tt.want {
				t.Errorf("docstring(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestModuleName(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]string{
		"Probe":          "probe",
		"Pet Store API":  "pet_store_api",
		"":               "api",
		"2fa":            "n_2fa",
		"class":          "class_",
	} {
		if got := ModuleName(in); got != want {
			t.Errorf("ModuleName(%q) = %q, want %q", in, got, want)
		}
	}
}
