package funcs

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/twigo-lang/twigo/value"
)

// RegisterBuiltins installs the standard filters, functions, and tests onto
// r. Called once for DefaultRegistry; each Engine gets its private,
// per-instance copy by cloning DefaultRegistry.
func RegisterBuiltins(r *Registry) {
	r.RegisterFilter("join", filterJoin)
	r.RegisterFilter("default", filterDefault)
	r.RegisterFilter("escape", filterEscape)
	r.RegisterFilter("e", filterEscape)
	r.RegisterFilter("raw", filterRaw)
	r.RegisterFilter("safe", filterRaw)
	r.RegisterFilter("length", filterLength)
	r.RegisterFilter("first", filterFirst)
	r.RegisterFilter("last", filterLast)
	r.RegisterFilter("batch", filterBatch)
	r.RegisterFilter("merge", filterMerge)
	r.RegisterFilter("split", filterSplit)
	r.RegisterFilter("trim", filterTrim)
	r.RegisterFilter("upper", filterUpper)
	r.RegisterFilter("lower", filterLower)
	r.RegisterFilter("nl2br", filterNl2br)
	r.RegisterFilter("number_format", filterNumberFormat)
	r.RegisterFilter("date", filterDate)

	r.RegisterFunction("range", fnRange)
	r.RegisterFunction("length", filterLength)
	r.RegisterFunction("attribute", fnAttribute)

	r.RegisterTest("defined", testDefined)
	r.RegisterTest("empty", testEmpty)
	r.RegisterTest("even", testEven)
	r.RegisterTest("odd", testOdd)
	r.RegisterTest("divisibleby", testDivisibleBy)
	r.RegisterTest("iterable", testIterable)
}

// ---------------------------------------------------------------------
// Core built-ins
// ---------------------------------------------------------------------

func filterJoin(args value.Value) value.Value {
	bound, err := Bind([]Param{
		{Name: "list"},
		{Name: "sep", Optional: true, Default: value.String("")},
		{Name: "key", Optional: true, Default: value.Undefined()},
	}, args)
	if err != nil {
		panicArgError("%s", err)
	}
	list := bound.Key("list")
	sep := bound.Key("sep").ToString()
	key := bound.Key("key")

	parts := make([]string, 0, list.Length())
	for _, pair := range list.Iterate() {
		item := pair.Value
		if !key.IsUndefined() {
			item = item.Key(key.ToString())
		}
		parts = append(parts, item.ToString())
	}
	return value.String(strings.Join(parts, sep))
}

func filterDefault(args value.Value) value.Value {
	bound, err := Bind([]Param{{Name: "v"}, {Name: "d"}}, args)
	if err != nil {
		panicArgError("%s", err)
	}
	v := bound.Key("v")
	if v.IsUndefined() || v.IsNull() {
		return bound.Key("d")
	}
	return v
}

func filterEscape(args value.Value) value.Value {
	bound, err := Bind([]Param{
		{Name: "v"},
		{Name: "mode", Optional: true, Default: value.String("html")},
	}, args)
	if err != nil {
		panicArgError("%s", err)
	}
	v := bound.Key("v")
	if v.IsSafe() {
		return v
	}
	mode := bound.Key("mode").ToString()
	if mode == "" {
		mode = "html"
	}
	if mode != "html" {
		return v
	}
	return value.SafeString(EscapeHTML(v.ToString()))
}

// EscapeHTML does `&"'<>` entity substitution, shared with the evaluator's
// implicit `{{ }}` escaping path.
func EscapeHTML(s string) string {
	s = norm.NFC.String(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&#39;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func filterRaw(args value.Value) value.Value {
	bound, err := Bind([]Param{{Name: "v"}}, args)
	if err != nil {
		panicArgError("%s", err)
	}
	return value.SafeString(bound.Key("v").ToString())
}

func filterLength(args value.Value) value.Value {
	bound, err := Bind([]Param{{Name: "v"}}, args)
	if err != nil {
		panicArgError("%s", err)
	}
	return value.Int(int64(bound.Key("v").Length()))
}

func filterFirst(args value.Value) value.Value {
	bound, err := Bind([]Param{{Name: "v"}}, args)
	if err != nil {
		panicArgError("%s", err)
	}
	v := bound.Key("v")
	switch {
	case v.IsArray():
		if v.Length() == 0 {
			return value.Null()
		}
		return v.Index(0)
	case v.IsString():
		s := v.ToString()
		if s == "" {
			return value.Null()
		}
		return value.String(s[:1])
	default:
		return value.Null()
	}
}

func filterLast(args value.Value) value.Value {
	bound, err := Bind([]Param{{Name: "v"}}, args)
	if err != nil {
		panicArgError("%s", err)
	}
	v := bound.Key("v")
	switch {
	case v.IsArray():
		n := v.Length()
		if n == 0 {
			return value.Null()
		}
		return v.Index(n - 1)
	case v.IsString():
		s := v.ToString()
		if s == "" {
			return value.Null()
		}
		return value.String(s[len(s)-1:])
	default:
		return value.Null()
	}
}

func filterBatch(args value.Value) value.Value {
	bound, err := Bind([]Param{
		{Name: "items"},
		{Name: "size"},
		{Name: "fill", Optional: true, Default: value.Undefined()},
	}, args)
	if err != nil {
		panicArgError("%s", err)
	}
	items := bound.Key("items")
	size := int(bound.Key("size").ToInteger())
	if size <= 0 {
		panicArgError("batch: size must be greater than 0, got %d", size)
	}
	fill := bound.Key("fill")

	var batches []value.Value
	var cur []value.Value
	for _, pair := range items.Iterate() {
		cur = append(cur, pair.Value)
		if len(cur) == size {
			batches = append(batches, value.Array(cur))
			cur = nil
		}
	}
	if len(cur) > 0 {
		if !fill.IsUndefined() {
			for len(cur) < size {
				cur = append(cur, fill)
			}
		}
		batches = append(batches, value.Array(cur))
	}
	return value.Array(batches)
}

func filterMerge(args value.Value) value.Value {
	bound, err := Bind([]Param{{Name: "a"}, {Name: "b"}}, args)
	if err != nil {
		panicArgError("%s", err)
	}
	a, b := bound.Key("a"), bound.Key("b")
	switch {
	case a.IsArray() && b.IsArray():
		merged := append(append([]value.Value{}, a.Items()...), b.Items()...)
		return value.Array(merged)
	case a.IsObject() && b.IsObject():
		merged := map[string]value.Value{}
		for k, v := range a.Map() {
			merged[k] = v
		}
		for k, v := range b.Map() {
			merged[k] = v
		}
		return value.Object(merged)
	default:
		return a
	}
}

func fnRange(args value.Value) value.Value {
	bound, err := Bind([]Param{
		{Name: "start"},
		{Name: "end"},
		{Name: "step", Optional: true, Default: value.Int(1)},
	}, args)
	if err != nil {
		panicArgError("%s", err)
	}
	start := bound.Key("start").ToInteger()
	end := bound.Key("end").ToInteger()
	step := bound.Key("step").ToInteger()
	if step == 0 {
		panicArgError("range: step cannot be 0")
	}
	if (step > 0 && start > end) || (step < 0 && start < end) {
		panicArgError("range: step %d cannot reach %d from %d", step, end, start)
	}

	var out []value.Value
	if step > 0 {
		for i := start; i <= end; i += step {
			out = append(out, value.Int(i))
		}
	} else {
		for i := start; i >= end; i += step {
			out = append(out, value.Int(i))
		}
	}
	return value.Array(out)
}

// ---------------------------------------------------------------------
// String and attribute helpers
// ---------------------------------------------------------------------

func fnAttribute(args value.Value) value.Value {
	bound, err := Bind([]Param{{Name: "obj"}, {Name: "name"}}, args)
	if err != nil {
		panicArgError("%s", err)
	}
	obj := bound.Key("obj")
	name := bound.Key("name")
	if obj.IsArray() {
		if i, convErr := strconv.Atoi(name.ToString()); convErr == nil {
			return obj.Index(i)
		}
	}
	return obj.Key(name.ToString())
}

func filterSplit(args value.Value) value.Value {
	bound, err := Bind([]Param{{Name: "v"}, {Name: "sep"}}, args)
	if err != nil {
		panicArgError("%s", err)
	}
	parts := strings.Split(bound.Key("v").ToString(), bound.Key("sep").ToString())
	out := make([]value.Value, len(parts))
	for i, p := range parts {
		out[i] = value.String(p)
	}
	return value.Array(out)
}

func filterTrim(args value.Value) value.Value {
	bound, err := Bind([]Param{{Name: "v"}}, args)
	if err != nil {
		panicArgError("%s", err)
	}
	return value.String(strings.TrimSpace(bound.Key("v").ToString()))
}

func filterUpper(args value.Value) value.Value {
	bound, err := Bind([]Param{{Name: "v"}}, args)
	if err != nil {
		panicArgError("%s", err)
	}
	return value.String(strings.ToUpper(bound.Key("v").ToString()))
}

func filterLower(args value.Value) value.Value {
	bound, err := Bind([]Param{{Name: "v"}}, args)
	if err != nil {
		panicArgError("%s", err)
	}
	return value.String(strings.ToLower(bound.Key("v").ToString()))
}

func filterNl2br(args value.Value) value.Value {
	bound, err := Bind([]Param{{Name: "v"}}, args)
	if err != nil {
		panicArgError("%s", err)
	}
	s := strings.ReplaceAll(bound.Key("v").ToString(), "\n", "<br />\n")
	return value.SafeString(s)
}

func filterNumberFormat(args value.Value) value.Value {
	bound, err := Bind([]Param{
		{Name: "v"},
		{Name: "decimals", Optional: true, Default: value.Int(0)},
		{Name: "decPoint", Optional: true, Default: value.String(".")},
		{Name: "thousandSep", Optional: true, Default: value.String(",")},
	}, args)
	if err != nil {
		panicArgError("%s", err)
	}
	f := bound.Key("v").ToFloat()
	decimals := int(bound.Key("decimals").ToInteger())
	decPoint := bound.Key("decPoint").ToString()
	thousandSep := bound.Key("thousandSep").ToString()

	formatted := strconv.FormatFloat(f, 'f', decimals, 64)
	neg := strings.HasPrefix(formatted, "-")
	if neg {
		formatted = formatted[1:]
	}
	intPart, fracPart := formatted, ""
	if i := strings.IndexByte(formatted, '.'); i >= 0 {
		intPart, fracPart = formatted[:i], formatted[i+1:]
	}
	intPart = groupThousands(intPart, thousandSep)

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(intPart)
	if fracPart != "" {
		b.WriteString(decPoint)
		b.WriteString(fracPart)
	}
	return value.String(b.String())
}

func groupThousands(digits, sep string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}
	var b strings.Builder
	lead := n % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func filterDate(args value.Value) value.Value {
	bound, err := Bind([]Param{
		{Name: "v"},
		{Name: "format", Optional: true, Default: value.String("2006-01-02")},
	}, args)
	if err != nil {
		panicArgError("%s", err)
	}
	v := bound.Key("v")
	format := bound.Key("format").ToString()

	var t time.Time
	switch {
	case v.IsNumber():
		t = time.Unix(v.ToInteger(), 0).UTC()
	case v.IsString():
		parsed, parseErr := time.Parse(time.RFC3339, v.ToString())
		if parseErr != nil {
			return value.String("")
		}
		t = parsed
	default:
		return value.String("")
	}
	return value.String(t.Format(format))
}

// ---------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------

func testDefined(args value.Value) value.Value {
	bound, err := Bind([]Param{{Name: "v"}}, args)
	if err != nil {
		panicArgError("%s", err)
	}
	return value.Bool(!bound.Key("v").IsUndefined())
}

func testEmpty(args value.Value) value.Value {
	bound, err := Bind([]Param{{Name: "v"}}, args)
	if err != nil {
		panicArgError("%s", err)
	}
	v := bound.Key("v")
	switch {
	case v.IsUndefined(), v.IsNull():
		return value.Bool(true)
	case v.IsString(), v.IsArray(), v.IsObject():
		return value.Bool(v.Length() == 0)
	case v.IsNumber():
		return value.Bool(v.ToFloat() == 0)
	case v.Kind() == value.KindBool:
		return value.Bool(!v.Bool())
	default:
		return value.Bool(false)
	}
}

func testEven(args value.Value) value.Value {
	bound, err := Bind([]Param{{Name: "v"}}, args)
	if err != nil {
		panicArgError("%s", err)
	}
	return value.Bool(bound.Key("v").ToInteger()%2 == 0)
}

func testOdd(args value.Value) value.Value {
	bound, err := Bind([]Param{{Name: "v"}}, args)
	if err != nil {
		panicArgError("%s", err)
	}
	return value.Bool(bound.Key("v").ToInteger()%2 != 0)
}

func testDivisibleBy(args value.Value) value.Value {
	bound, err := Bind([]Param{{Name: "v"}, {Name: "n"}}, args)
	if err != nil {
		panicArgError("%s", err)
	}
	n := bound.Key("n").ToInteger()
	if n == 0 {
		return value.Bool(false)
	}
	return value.Bool(bound.Key("v").ToInteger()%n == 0)
}

func testIterable(args value.Value) value.Value {
	bound, err := Bind([]Param{{Name: "v"}}, args)
	if err != nil {
		panicArgError("%s", err)
	}
	v := bound.Key("v")
	return value.Bool(v.IsArray() || v.IsObject())
}
