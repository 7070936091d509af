package opentoken

import (
	"errors"
	"reflect"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	if c.Version() != "2.0" {
		t.Errorf("Version() = %q, want 2.0", c.Version())
	}

	want := []string{"T1", "T2", "T3", "T4", "T5"}
	if got := c.RuleIDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("RuleIDs() = %v, want %v", got, want)
	}
}

func TestDefaultCatalog_RuleShapes(t *testing.T) {
	c := DefaultCatalog()

	t1, err := c.Rule("T1")
	if err != nil {
		t.Fatalf("Rule(T1) error: %v", err)
	}
	if len(t1.Terms) != 4 {
		t.Fatalf("T1 has %d terms, want 4", len(t1.Terms))
	}
	if t1.Terms[0].Kind != LastName || t1.Terms[1].Kind != FirstName {
		t.Error("T1 term order is not LastName, FirstName, ...")
	}
	if t1.Terms[1].Expr.String() != "T|S(0,1)|U" {
		t.Errorf("T1 FirstName expression = %q", t1.Terms[1].Expr.String())
	}

	t4, _ := c.Rule("T4")
	if t4.Terms[0].Kind != SSN {
		t.Error("T4 should lead with the SSN term")
	}
}

func TestCatalog_UnknownRule(t *testing.T) {
	_, err := DefaultCatalog().Rule("T9")
	if err == nil {
		t.Fatal("unknown rule should error")
	}
	if !errors.Is(err, ErrUnknownRule) {
		t.Errorf("error = %v, want ErrUnknownRule", err)
	}
}

func TestNewCatalog_Validation(t *testing.T) {
	term := Term{Kind: Gender, Expr: MustParseExpression("T|U")}

	cases := []struct {
		name    string
		version string
		rules   []TokenRule
		want    error
	}{
		{"missing version", "", []TokenRule{{ID: "R1", Terms: []Term{term}}}, ErrInvalidCatalog},
		{"empty rule id", "1.0", []TokenRule{{ID: "", Terms: []Term{term}}}, ErrInvalidCatalog},
		{"no terms", "1.0", []TokenRule{{ID: "R1"}}, ErrInvalidCatalog},
		{"duplicate id", "1.0", []TokenRule{
			{ID: "R1", Terms: []Term{term}},
			{ID: "R1", Terms: []Term{term}},
		}, ErrInvalidCatalog},
		{"unknown attribute", "1.0", []TokenRule{
			{ID: "R1", Terms: []Term{{Kind: Kind("EyeColor"), Expr: MustParseExpression("T")}}},
		}, ErrUnknownAttribute},
	}

	for _, tc := range cases {
		_, err := NewCatalog(tc.version, tc.rules)
		if err == nil {
			t.Errorf("%s: NewCatalog should fail", tc.name)
			continue
		}
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: error = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestLoadCatalog(t *testing.T) {
	doc := []byte(`
version: "custom-1"
rules:
  - id: C1
    terms:
      - attribute: LastName
        expression: T|U
      - attribute: BirthDate
        expression: T|D
`)

	c, err := LoadCatalog(doc)
	if err != nil {
		t.Fatalf("LoadCatalog error: %v", err)
	}
	if c.Version() != "custom-1" {
		t.Errorf("Version() = %q", c.Version())
	}

	rule, err := c.Rule("C1")
	if err != nil {
		t.Fatalf("Rule(C1) error: %v", err)
	}
	if rule.Terms[1].Kind != BirthDate {
		t.Error("second term should be BirthDate")
	}
}

func TestLoadCatalog_UnknownAttributeFatal(t *testing.T) {
	doc := []byte(`
version: "custom-1"
rules:
  - id: C1
    terms:
      - attribute: EyeColor
        expression: T|U
`)

	_, err := LoadCatalog(doc)
	if !errors.Is(err, ErrUnknownAttribute) {
		t.Errorf("error = %v, want ErrUnknownAttribute", err)
	}
}

func TestLoadCatalog_UnknownOperationFatal(t *testing.T) {
	doc := []byte(`
version: "custom-1"
rules:
  - id: C1
    terms:
      - attribute: LastName
        expression: T|Q
`)

	_, err := LoadCatalog(doc)
	if !errors.Is(err, ErrUnknownOperation) {
		t.Errorf("error = %v, want ErrUnknownOperation", err)
	}
}

func TestLoadCatalog_MalformedDocument(t *testing.T) {
	_, err := LoadCatalog([]byte("rules: [unclosed"))
	if !errors.Is(err, ErrInvalidCatalog) {
		t.Errorf("error = %v, want ErrInvalidCatalog", err)
	}
}

func TestCatalogRegistry(t *testing.T) {
	defer ResetCatalogs()

	if _, ok := LookupCatalog("2.0"); !ok {
		t.Fatal("built-in catalog should be registered")
	}

	custom, err := NewCatalog("experimental", []TokenRule{
		{ID: "R1", Terms: []Term{{Kind: Gender, Expr: MustParseExpression("T|U")}}},
	})
	if err != nil {
		t.Fatalf("NewCatalog error: %v", err)
	}
	RegisterCatalog(custom)

	got, ok := LookupCatalog("experimental")
	if !ok || got != custom {
		t.Error("registered catalog should be retrievable by version")
	}

	ResetCatalogs()
	if _, ok := LookupCatalog("experimental"); ok {
		t.Error("ResetCatalogs should drop custom catalogs")
	}
}
