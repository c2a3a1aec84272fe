package funcs

import (
	"testing"

	"github.com/twigo-lang/twigo/value"
)

func TestFilterJoin(t *testing.T) {
	got := filterJoin(Args(value.Array([]value.Value{value.String("a"), value.String("b")}), value.String("-")))
	if got.ToString() != "a-b" {
		t.Errorf("join = %q, want %q", got.ToString(), "a-b")
	}
}

func TestFilterJoinWithKey(t *testing.T) {
	list := value.Array([]value.Value{
		value.Object(map[string]value.Value{"name": value.String("a")}),
		value.Object(map[string]value.Value{"name": value.String("b")}),
	})
	got := filterJoin(ArgsKw(map[string]value.Value{"key": value.String("name")}, list, value.String(",")))
	if got.ToString() != "a,b" {
		t.Errorf("join with key = %q, want %q", got.ToString(), "a,b")
	}
}

func TestFilterDefault(t *testing.T) {
	if got := filterDefault(Args(value.Undefined(), value.String("d"))); got.ToString() != "d" {
		t.Errorf("default(undefined) = %q, want %q", got.ToString(), "d")
	}
	if got := filterDefault(Args(value.String("v"), value.String("d"))); got.ToString() != "v" {
		t.Errorf("default(v) = %q, want %q", got.ToString(), "v")
	}
}

func TestFilterEscape(t *testing.T) {
	got := filterEscape(Args(value.String(`<b>"'&</b>`)))
	want := "&lt;b&gt;&quot;&#39;&amp;&lt;/b&gt;"
	if got.ToString() != want {
		t.Errorf("escape = %q, want %q", got.ToString(), want)
	}
	if !got.IsSafe() {
		t.Error("escaped value should be marked safe")
	}
}

func TestFilterEscapeNoopOnSafe(t *testing.T) {
	safe := value.SafeString("<b>")
	got := filterEscape(Args(safe))
	if got.ToString() != "<b>" {
		t.Errorf("escape(safe) should pass through, got %q", got.ToString())
	}
}

func TestFilterBatch(t *testing.T) {
	list := value.Array([]value.Value{value.Int(1), value.Int(2), value.Int(3)})
	got := filterBatch(Args(list, value.Int(2), value.String("x")))
	if got.Length() != 2 {
		t.Fatalf("batch should produce 2 groups, got %d", got.Length())
	}
	last := got.Index(1)
	if last.Length() != 2 || last.Index(1).ToString() != "x" {
		t.Errorf("last batch group should be padded with fill value, got %+v", last)
	}
}

func TestFilterMergeObjectsAndArrays(t *testing.T) {
	a := value.Array([]value.Value{value.Int(1), value.Int(2)})
	b := value.Array([]value.Value{value.Int(3)})
	merged := filterMerge(Args(a, b))
	if merged.Length() != 3 {
		t.Errorf("array merge should concatenate, got length %d", merged.Length())
	}

	objA := value.Object(map[string]value.Value{"x": value.Int(1)})
	objB := value.Object(map[string]value.Value{"x": value.Int(2), "y": value.Int(3)})
	mergedObj := filterMerge(Args(objA, objB))
	if mergedObj.Key("x").Int() != 2 || mergedObj.Key("y").Int() != 3 {
		t.Errorf("object merge should be right-biased overlay, got %+v", mergedObj.Map())
	}
}

func TestFnRange(t *testing.T) {
	got := fnRange(Args(value.Int(1), value.Int(5), value.Int(2)))
	var out []int64
	for _, it := range got.Items() {
		out = append(out, it.Int())
	}
	want := []int64{1, 3, 5}
	if len(out) != len(want) {
		t.Fatalf("range = %v, want %v", out, want)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("range[%d] = %d, want %d", i, out[i], want[i])
		}
	}
}

func TestTestEmpty(t *testing.T) {
	cases := []struct {
		v    value.Value
		want bool
	}{
		{value.Undefined(), true},
		{value.Null(), true},
		{value.String(""), true},
		{value.String("x"), false},
		{value.Array(nil), true},
		{value.Int(0), true},
		{value.Int(1), false},
		{value.Bool(false), true},
	}
	for _, tc := range cases {
		got := testEmpty(Args(tc.v))
		if got.Bool() != tc.want {
			t.Errorf("empty(%+v) = %v, want %v", tc.v, got.Bool(), tc.want)
		}
	}
}

func TestTestDivisibleBy(t *testing.T) {
	if !testDivisibleBy(Args(value.Int(10), value.Int(5))).Bool() {
		t.Error("10 should be divisible by 5")
	}
	if testDivisibleBy(Args(value.Int(10), value.Int(3))).Bool() {
		t.Error("10 should not be divisible by 3")
	}
}

func TestBindPositionalThenNamed(t *testing.T) {
	params := []Param{
		{Name: "a"},
		{Name: "b", Optional: true, Default: value.Int(99)},
	}
	bound, err := Bind(params, ArgsKw(map[string]value.Value{"b": value.Int(7)}, value.Int(1)))
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if bound.Key("a").Int() != 1 || bound.Key("b").Int() != 7 {
		t.Errorf("bound = %+v, want a=1 b=7", bound.Map())
	}
}

func TestBindMissingRequired(t *testing.T) {
	_, err := Bind([]Param{{Name: "a"}}, Args())
	if err == nil {
		t.Error("Bind should error on a missing required parameter")
	}
}

func TestRegistryCallFunctionSurfacesArgumentError(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)
	if _, err := r.CallFunction("range", Args(value.Int(1), value.Int(5), value.Int(0))); err == nil {
		t.Error("CallFunction should surface range's zero-step error instead of panicking")
	}
	if _, err := r.CallFilter("batch", Args(value.Array(nil), value.Int(0))); err == nil {
		t.Error("CallFilter should surface batch's non-positive size error instead of panicking")
	}
}
