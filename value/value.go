// Package value implements the dynamic, tagged value type that flows through
// template compilation and evaluation: context data, expression
// intermediates, and function arguments all share this one representation.
package value

import (
	"sort"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindInt
	KindFloat
	KindString
	KindSafeString
	KindArray
	KindObject
	KindFunction
)

// Func is the signature every callable Value implements. It always receives
// a single Object value with the two keys "args" (an Array of positional
// arguments) and "kw" (an Object of named arguments).
type Func func(args Value) Value

// Value is the tagged union described by the data model: Undefined, Null,
// Boolean, Integer, Float, String, SafeString, Array, Object, Function.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	arr  []Value
	obj  map[string]Value
	fn   Func
}

// Undefined returns the value meaning "no such key / not provided".
func Undefined() Value { return Value{kind: KindUndefined} }

// Null returns the value meaning "explicit null".
func Null() Value { return Value{kind: KindNull} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps a 64-bit signed integer.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float wraps a 64-bit IEEE-754 float.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String wraps a UTF-8 string that is not yet known to be output-safe.
func String(s string) Value { return Value{kind: KindString, s: s} }

// SafeString wraps a UTF-8 string already suitable for output; escape
// operations are no-ops on it.
func SafeString(s string) Value { return Value{kind: KindSafeString, s: s} }

// Array wraps an ordered sequence of Values. The slice is retained, not
// copied; callers that need isolation should call Copy.
func Array(items []Value) Value { return Value{kind: KindArray, arr: items} }

// Object wraps a string-keyed mapping. The map is retained, not copied.
func Object(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: KindObject, obj: m}
}

// NewObject returns an empty, mutable Object value.
func NewObject() Value { return Object(map[string]Value{}) }

// Function wraps a callable.
func Function(fn Func) Value { return Value{kind: KindFunction, fn: fn} }

// Kind reports which variant this Value holds.
func (v Value) Kind() Kind { return v.kind }

// Predicates -----------------------------------------------------------

func (v Value) IsUndefined() bool { return v.kind == KindUndefined }
func (v Value) IsNull() bool      { return v.kind == KindNull }
func (v Value) IsSafe() bool      { return v.kind == KindSafeString }
func (v Value) IsString() bool    { return v.kind == KindString || v.kind == KindSafeString }
func (v Value) IsNumber() bool    { return v.kind == KindInt || v.kind == KindFloat }
func (v Value) IsArray() bool     { return v.kind == KindArray }
func (v Value) IsObject() bool    { return v.kind == KindObject }
func (v Value) IsFunction() bool  { return v.kind == KindFunction }

// IsPrimitive reports whether the value is a scalar suitable as an `in`
// membership operand: everything except Array, Object, and Function.
func (v Value) IsPrimitive() bool {
	switch v.kind {
	case KindArray, KindObject, KindFunction:
		return false
	default:
		return true
	}
}

// Coercions --------------------------------------------------------------

// ToBoolean coerces to a boolean: empty string/array false, non-zero number
// true, undefined/null false, otherwise true.
func (v Value) ToBoolean() bool {
	switch v.kind {
	case KindUndefined, KindNull:
		return false
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	case KindFloat:
		return v.f != 0
	case KindString, KindSafeString:
		return v.s != ""
	case KindArray:
		return len(v.arr) != 0
	case KindObject:
		return true
	case KindFunction:
		return true
	}
	return false
}

// ToNumber returns an Int value if the operand parses as an integer,
// otherwise a Float; booleans become 0/1, undefined/null become 0.
func (v Value) ToNumber() Value {
	switch v.kind {
	case KindInt, KindFloat:
		return v
	case KindBool:
		if v.b {
			return Int(1)
		}
		return Int(0)
	case KindUndefined, KindNull:
		return Int(0)
	case KindString, KindSafeString:
		if i, err := strconv.ParseInt(strings.TrimSpace(v.s), 10, 64); err == nil {
			return Int(i)
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64); err == nil {
			return Float(f)
		}
		return Int(0)
	}
	return Int(0)
}

// ToInteger coerces to an integer; unparseable strings yield 0.
func (v Value) ToInteger() int64 {
	n := v.ToNumber()
	if n.kind == KindFloat {
		return int64(n.f)
	}
	return n.i
}

// ToFloat coerces to a float; unparseable strings yield 0.
func (v Value) ToFloat() float64 {
	n := v.ToNumber()
	if n.kind == KindFloat {
		return n.f
	}
	return float64(n.i)
}

// ToString renders numbers decimally, booleans as 1/0, and undefined/null
// as the empty string.
func (v Value) ToString() string {
	switch v.kind {
	case KindUndefined, KindNull:
		return ""
	case KindBool:
		if v.b {
			return "1"
		}
		return "0"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString, KindSafeString:
		return v.s
	case KindArray:
		parts := make([]string, len(v.arr))
		for i, item := range v.arr {
			parts[i] = item.ToString()
		}
		return strings.Join(parts, ", ")
	case KindObject:
		keys := v.SortedKeys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + v.obj[k].ToString()
		}
		return strings.Join(parts, ", ")
	case KindFunction:
		return ""
	}
	return ""
}

// Bool returns the raw boolean payload (no coercion).
func (v Value) Bool() bool { return v.b }

// Int returns the raw int64 payload (no coercion).
func (v Value) Int() int64 { return v.i }

// Float returns the raw float64 payload (no coercion).
func (v Value) Float() float64 { return v.f }

// Raw returns the string payload (String or SafeString) with no coercion.
func (v Value) Raw() string { return v.s }

// Items returns the backing slice of an Array value, or nil.
func (v Value) Items() []Value { return v.arr }

// Map returns the backing map of an Object value, or nil.
func (v Value) Map() map[string]Value { return v.obj }

// FuncValue returns the callable, or nil if this is not a Function value.
func (v Value) FuncValue() Func { return v.fn }

// Length reports size for the kinds that have one: objects count keys,
// arrays count elements, strings count bytes, otherwise 0.
func (v Value) Length() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return len(v.obj)
	case KindString, KindSafeString:
		return len(v.s)
	default:
		return 0
	}
}

// SortedKeys returns an Object's keys in their natural (lexicographic)
// order, so that iteration is stable and reproducible.
func (v Value) SortedKeys() []string {
	if v.kind != KindObject {
		return nil
	}
	keys := make([]string, 0, len(v.obj))
	for k := range v.obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Key looks up a plain key, or a dotted path "a.b.c", on an Object. Each
// segment indexes the previous value; a missing segment yields Undefined.
func (v Value) Key(path string) Value {
	cur := v
	for _, seg := range strings.Split(path, ".") {
		cur = cur.keySegment(seg)
	}
	return cur
}

func (v Value) keySegment(seg string) Value {
	switch v.kind {
	case KindObject:
		if val, ok := v.obj[seg]; ok {
			return val
		}
		return Undefined()
	case KindArray:
		if i, err := strconv.Atoi(seg); err == nil {
			return v.Index(i)
		}
		return Undefined()
	default:
		return Undefined()
	}
}

// Index looks up an integer index on an Array; out-of-range yields
// Undefined.
func (v Value) Index(i int) Value {
	if v.kind != KindArray || i < 0 || i >= len(v.arr) {
		return Undefined()
	}
	return v.arr[i]
}

// Pair is one (key, value) step of Object iteration; Key is empty for
// Array elements (use HasKey to distinguish index-only iteration).
type Pair struct {
	Key    string
	HasKey bool
	Value  Value
}

// Iterate yields Array elements (HasKey=false) or Object entries in their
// sorted key order (HasKey=true). Non-iterable values yield nothing.
func (v Value) Iterate() []Pair {
	switch v.kind {
	case KindArray:
		pairs := make([]Pair, len(v.arr))
		for i, item := range v.arr {
			pairs[i] = Pair{Value: item}
		}
		return pairs
	case KindObject:
		keys := v.SortedKeys()
		pairs := make([]Pair, len(keys))
		for i, k := range keys {
			pairs[i] = Pair{Key: k, HasKey: true, Value: v.obj[k]}
		}
		return pairs
	default:
		return nil
	}
}

// Invoke calls a Function value with the given args; non-callables yield
// Undefined.
func (v Value) Invoke(args Value) Value {
	if v.kind != KindFunction || v.fn == nil {
		return Undefined()
	}
	return v.fn(args)
}

// Copy performs a deep copy, as required of the Value model.
func (v Value) Copy() Value {
	switch v.kind {
	case KindArray:
		items := make([]Value, len(v.arr))
		for i, item := range v.arr {
			items[i] = item.Copy()
		}
		return Array(items)
	case KindObject:
		m := make(map[string]Value, len(v.obj))
		for k, item := range v.obj {
			m[k] = item.Copy()
		}
		return Object(m)
	default:
		return v
	}
}

// Equals implements the equality rule used by `in` membership, `==`, and
// switch-like comparisons: strings lexicographically, numbers numerically
// (promoted to float when either side is float), Null only equals Null.
func Equals(a, b Value) bool {
	if a.kind == KindNull || b.kind == KindNull {
		return a.kind == KindNull && b.kind == KindNull
	}
	if a.IsNumber() && b.IsNumber() {
		if a.kind == KindFloat || b.kind == KindFloat {
			return a.ToFloat() == b.ToFloat()
		}
		return a.i == b.i
	}
	if a.IsString() && b.IsString() {
		return a.ToString() == b.ToString()
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindUndefined:
		return true
	case KindBool:
		return a.b == b.b
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equals(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.obj) != len(b.obj) {
			return false
		}
		for k, av := range a.obj {
			bv, ok := b.obj[k]
			if !ok || !Equals(av, bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Compare implements lexicographic/numeric ordering for <, <=, >, >=.
// Mixed string/number coerces the string via ToNumber. Null on either side
// makes any ordering comparison false (reported via the second, ok return).
func Compare(a, b Value) (cmp int, ok bool) {
	if a.kind == KindNull || b.kind == KindNull {
		return 0, false
	}
	if a.IsString() && b.IsString() {
		as, bs := a.ToString(), b.ToString()
		switch {
		case as < bs:
			return -1, true
		case as > bs:
			return 1, true
		default:
			return 0, true
		}
	}
	af, bf := a.ToNumber().ToFloat(), b.ToNumber().ToFloat()
	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	default:
		return 0, true
	}
}
