package value

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestToBoolean(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want bool
	}{
		{"undefined", Undefined(), false},
		{"null", Null(), false},
		{"zero int", Int(0), false},
		{"nonzero int", Int(-1), true},
		{"empty string", String(""), false},
		{"nonempty string", String("0 "), true},
		{"empty array", Array(nil), false},
		{"nonempty array", Array([]Value{Int(0)}), true},
		{"object always true", NewObject(), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.v.ToBoolean(); got != tc.want {
				t.Errorf("ToBoolean() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestToNumberPreservesIntVsFloat(t *testing.T) {
	if got := String("42").ToNumber(); got.Kind() != KindInt || got.Int() != 42 {
		t.Errorf("String(\"42\").ToNumber() = %+v, want Int(42)", got)
	}
	if got := String("4.2").ToNumber(); got.Kind() != KindFloat || got.Float() != 4.2 {
		t.Errorf("String(\"4.2\").ToNumber() = %+v, want Float(4.2)", got)
	}
	if got := String("nope").ToNumber(); got.Kind() != KindInt || got.Int() != 0 {
		t.Errorf("unparseable string should coerce to Int(0), got %+v", got)
	}
}

func TestKeyDottedPath(t *testing.T) {
	v := Object(map[string]Value{
		"a": Object(map[string]Value{
			"b": Array([]Value{Int(10), Int(20), Int(30)}),
		}),
	})
	if got := v.Key("a.b.1"); got.Kind() != KindInt || got.Int() != 20 {
		t.Errorf("Key(\"a.b.1\") = %+v, want Int(20)", got)
	}
	if got := v.Key("a.missing"); !got.IsUndefined() {
		t.Errorf("Key on missing segment should be Undefined, got %+v", got)
	}
}

func TestEquals(t *testing.T) {
	cases := []struct {
		name string
		a, b Value
		want bool
	}{
		{"int/float numeric equality", Int(1), Float(1.0), true},
		{"string equal", String("x"), String("x"), true},
		{"undefined vs null", Undefined(), Null(), false},
		{"array element-wise", Array([]Value{Int(1), Int(2)}), Array([]Value{Int(1), Int(2)}), true},
		{"array length mismatch", Array([]Value{Int(1)}), Array([]Value{Int(1), Int(2)}), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Equals(tc.a, tc.b); got != tc.want {
				t.Errorf("Equals() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCompareNullNeverComparable(t *testing.T) {
	if _, ok := Compare(Null(), Int(1)); ok {
		t.Error("Compare(Null, Int) should report ok=false")
	}
	if cmp, ok := Compare(Int(1), Int(2)); !ok || cmp >= 0 {
		t.Errorf("Compare(1, 2) = (%d, %v), want negative, true", cmp, ok)
	}
}

func TestIterateArrayAndObject(t *testing.T) {
	arr := Array([]Value{String("a"), String("b")})
	pairs := arr.Iterate()
	if diff := cmp.Diff([]string{"", ""}, []string{pairs[0].Key, pairs[1].Key}); diff != "" {
		t.Errorf("array iteration keys mismatch (-want +got):\n%s", diff)
	}

	obj := Object(map[string]Value{"z": Int(1), "a": Int(2)})
	opairs := obj.Iterate()
	if len(opairs) != 2 || opairs[0].Key != "a" || opairs[1].Key != "z" {
		t.Errorf("object iteration should be sorted by key, got %+v", opairs)
	}
}

func TestFromJSONPreservesIntFloatDistinction(t *testing.T) {
	v, err := FromJSON(`{"n": 3, "f": 3.5}`)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if got := v.Key("n"); got.Kind() != KindInt {
		t.Errorf("n should decode as Int, got Kind() = %v", got.Kind())
	}
	if got := v.Key("f"); got.Kind() != KindFloat {
		t.Errorf("f should decode as Float, got Kind() = %v", got.Kind())
	}
}
