package ir

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseTypeRoundTrip(t *testing.T) {
	t.Parallel()
	for _, in := range []string{
		"str",
		"List[Item]",
		"Dict[str, Any]",
		"Optional[List[Union[Cat, Dog]]]",
		"Union[int, Optional[str]]",
	} {
		if got := ParseType(in).String(); got != in {
			t.Errorf("ParseType(%q).String() = %q", in, got)
		}
	}
}

func TestTypeHelpers(t *testing.T) {
	t.Parallel()
	if got := Optional("str"); got != "Optional[str]" {
		t.Errorf("Optional = %q", got)
	}
	if got := Optional("Optional[str]"); got != "Optional[str]" {
		t.Errorf("Optional twice = %q", got)
	}
	if got := Optional(TypeAny); got != TypeAny {
		t.Errorf("Optional(Any) = %q", got)
	}
	if got := Unwrap("Optional[List[Item]]"); got != "List[Item]" {
		t.Errorf("Unwrap = %q", got)
	}
	if got := ListElem("List[Item]"); got != "Item" {
		t.Errorf("ListElem = %q", got)
	}
	if got := ListElem("Item"); got != "" {
		t.Errorf("ListElem of non-list = %q", got)
	}
	if got := Union("Cat", "Dog", "Cat"); got != "Union[Cat, Dog]" {
		t.Errorf("Union = %q", got)
	}
	if got := Union("Cat", "Cat"); got != "Cat" {
		t.Errorf("single Union = %q", got)
	}
	if !IsFreeForm(TypeFreeForm) || IsFreeForm("List[str]") {
		t.Errorf("IsFreeForm mismatch")
	}
}

func TestModelNamesAndImports(t *testing.T) {
	t.Parallel()
	typ := "Optional[List[Union[Cat, UUID, Dog, Cat]]]"
	if diff := cmp.Diff([]string{"Cat", "Dog"}, ModelNames(typ)); diff != "" {
		t.Errorf("ModelNames (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"List", "Optional", "UUID", "Union"}, Imports(typ)); diff != "" {
		t.Errorf("Imports (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Any", "Dict"}, Imports(TypeFreeForm)); diff != "" {
		t.Errorf("Imports free-form (-want +got):\n%s", diff)
	}
	if ModelNames("") != nil {
		t.Errorf("empty type has names")
	}
}

func TestEndpointTypeNames(t *testing.T) {
	t.Parallel()
	e := EndpointIR{
		ReturnType:  "List[Item]",
		PayloadType: "ItemCreate",
		QueryParams: []Parameter{{Name: "sort", Type: "Optional[ListItemsSortEnum]"}},
		PathParams:  []Parameter{{Name: "id", Type: "int"}},
	}
	want := []string{"Item", "ItemCreate", "ListItemsSortEnum"}
	if diff := cmp.Diff(want, e.TypeNames()); diff != "" {
		t.Errorf("TypeNames (-want +got):\n%s", diff)
	}
}

func TestRegistryFreeze(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	if err := r.Put(ModelIR{Name: "Node", Kind: KindObject, ReferencedModels: []string{"Node"}}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	r.Freeze()
	if err := r.Put(ModelIR{Name: "Other"}); !errors.Is(err, ErrFrozen) {
		t.Fatalf("expected ErrFrozen, got %v", err)
	}
	if diff := cmp.Diff([]string{"Node"}, r.Names()); diff != "" {
		t.Fatalf("names (-want +got):\n%s", diff)
	}
}

func TestRegistryValidateDanglingReference(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	_ = r.Put(ModelIR{Name: "Pet", Kind: KindObject, ReferencedModels: []string{"Owner"}})
	if err := r.Validate(); err == nil {
		t.Fatalf("expected dangling reference error")
	}
}
