package optional

import (
	"encoding/json"
	"testing"
)

type patch struct {
	Name  Field[string] `json:"name"`
	Phone Field[string] `json:"phone"`
	Count Field[int]    `json:"count"`
}

func TestField_DistinguishesMissingNullAndValue(t *testing.T) {
	var p patch
	if err := json.Unmarshal([]byte(`{"name":"Ana","phone":null}`), &p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !p.Name.Set || p.Name.Null || p.Name.Value != "Ana" {
		t.Errorf("name: expected value Ana, got %+v", p.Name)
	}
	if !p.Phone.Set || !p.Phone.Null {
		t.Errorf("phone: expected explicit null, got %+v", p.Phone)
	}
	if p.Count.Set {
		t.Errorf("count: expected missing, got %+v", p.Count)
	}
}

func TestField_EmptyObjectLeavesEverythingUnset(t *testing.T) {
	var p patch
	if err := json.Unmarshal([]byte(`{}`), &p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name.Set || p.Phone.Set || p.Count.Set {
		t.Errorf("expected all fields unset, got %+v", p)
	}
}

func TestField_TypeMismatch(t *testing.T) {
	var p patch
	if err := json.Unmarshal([]byte(`{"count":"three"}`), &p); err == nil {
		t.Error("expected error decoding string into int field")
	}
}

func TestField_Ptr(t *testing.T) {
	if Null[string]().Ptr() != nil {
		t.Error("null field should give nil pointer")
	}
	var missing Field[string]
	if missing.Ptr() != nil {
		t.Error("missing field should give nil pointer")
	}
	v := Of("x").Ptr()
	if v == nil || *v != "x" {
		t.Errorf("expected pointer to x, got %v", v)
	}
}

func TestField_MarshalJSON(t *testing.T) {
	out, err := json.Marshal(patch{Name: Of("Ana"), Phone: Null[string]()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"name":"Ana","phone":null,"count":null}`
	if string(out) != want {
		t.Errorf("expected %s, got %s", want, out)
	}
}
