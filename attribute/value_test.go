package attribute

import "testing"

func TestValueEqual(t *testing.T) {
	cases := []struct {
		name  string
		a, b  Value
		equal bool
	}{
		{"same string", String("x"), String("x"), true},
		{"different string", String("x"), String("y"), false},
		{"empty null vs empty zero length", EmptyNull(), EmptyZeroLength(), false},
		{"empty null vs empty null", EmptyNull(), EmptyNull(), true},
		{"string empty vs empty zero length", String(""), EmptyZeroLength(), false},
		{"scoped string same parts", ScopedString("v", "s"), ScopedString("v", "s"), true},
		{"scoped string different scope", ScopedString("v", "s"), ScopedString("v", "t"), false},
		{"bytes equal", Bytes([]byte("a")), Bytes([]byte("a")), true},
		{"bytes different", Bytes([]byte("a")), Bytes([]byte("b")), false},
		{"different kinds", String("x"), Bytes([]byte("x")), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.a.Equal(c.b); got != c.equal {
				t.Errorf("Equal(%v, %v) = %v, want %v", c.a, c.b, got, c.equal)
			}
		})
	}
}

func TestNewScopedStringValidation(t *testing.T) {
	if _, err := NewScopedString("", "scope"); err == nil {
		t.Error("expected error for empty value")
	}
	if _, err := NewScopedString("value", ""); err == nil {
		t.Error("expected error for empty scope")
	}
	v, err := NewScopedString("value", "scope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.StringValue() != "value" || v.Scope() != "scope" {
		t.Errorf("unexpected value: %v", v)
	}
}

func TestIsEmpty(t *testing.T) {
	if !EmptyNull().IsEmpty() {
		t.Error("EmptyNull should be empty")
	}
	if !EmptyZeroLength().IsEmpty() {
		t.Error("EmptyZeroLength should be empty")
	}
	if String("").IsEmpty() {
		t.Error("String(\"\") should not be IsEmpty")
	}
}

func TestStringValueAndScope(t *testing.T) {
	if String("a").Scope() != "" {
		t.Error("plain string should have empty scope")
	}
	if Bytes([]byte("a")).StringValue() != "" {
		t.Error("bytes should have empty string value")
	}
}
