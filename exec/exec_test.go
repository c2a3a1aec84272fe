package exec_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/twigo-lang/twigo"
	"github.com/twigo-lang/twigo/errortypes"
	"github.com/twigo-lang/twigo/loader"
	"github.com/twigo-lang/twigo/value"
)

// Scenarios S1-S6: one small, self-contained template exercising each
// corner of expression precedence, trim markers, loops, escaping,
// inheritance, and macros.
func TestScenarios(t *testing.T) {
	cases := []struct {
		name string
		tmpl string
		ctx  value.Value
		want string
	}{
		{
			name: "S1_arith_precedence",
			tmpl: "hello {{ 1 + 2 * 3 }}",
			ctx:  value.NewObject(),
			want: "hello 7",
		},
		{
			name: "S2_if_trim",
			tmpl: "{% if a.x[2] > 3 %}{{- 'if' -}}{% else %} else {%- endif -%}",
			ctx: value.Object(map[string]value.Value{
				"a": value.Object(map[string]value.Value{
					"x": value.Array([]value.Value{value.Int(2), value.Int(3), value.Int(4), value.Int(5)}),
				}),
			}),
			want: "if",
		},
		{
			name: "S3_for_range",
			tmpl: "{% for i in range(1,3) %}[{{ i }}]{% endfor %}",
			ctx:  value.NewObject(),
			want: "[1][2][3]",
		},
		{
			name: "S4_escape",
			tmpl: `{{ "<b>"|escape }}`,
			ctx:  value.NewObject(),
			want: "&lt;b&gt;",
		},
		{
			name: "S6_macro",
			tmpl: "{% macro m(x,y) %}<{{x}}|{{y}}>{% endmacro %}{{ m(1,y=2) }}",
			ctx:  value.NewObject(),
			want: "<1|2>",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := twigo.NewEngine(loader.StringMapLoader{"t": tc.tmpl})
			got, err := engine.Render("t", tc.ctx)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// S5: a child template overriding a parent block still sees the parent's
// original block body through parent().
func TestScenarioS5Inheritance(t *testing.T) {
	l := loader.StringMapLoader{
		"p": "A[{% block x %}P{% endblock %}]B",
		"c": "{% extends 'p' %}{% block x %}C-{{ parent() }}-C{% endblock %}",
	}
	engine := twigo.NewEngine(l)
	got, err := engine.Render("c", value.NewObject())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "A[C-P-C]B"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestIncludeAndSet(t *testing.T) {
	l := loader.StringMapLoader{
		"main": `{% set name = 'world' %}{% include 'greeting' with {"name": name} %}`,
		"greeting": "hello {{ name }}",
	}
	engine := twigo.NewEngine(l)
	got, err := engine.Render("main", value.NewObject())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "hello world" {
		t.Errorf("got %q, want %q", got, "hello world")
	}
}

func TestFilterChainAndDivByZero(t *testing.T) {
	engine := twigo.NewEngine(loader.StringMapLoader{
		"t": "{{ name|upper }} {{ 5 / 0 }}",
	})
	got, err := engine.Render("t", value.Object(map[string]value.Value{
		"name": value.String("bob"),
	}))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "BOB 0" {
		t.Errorf("got %q, want %q", got, "BOB 0")
	}
}

// A built-in that can't bind or validate its arguments surfaces as a
// RuntimeError rather than silently rendering empty output.
func TestBuiltinArgumentErrorsSurfaceAsRuntimeError(t *testing.T) {
	cases := []struct {
		name string
		tmpl string
	}{
		{"missing_required_filter_arg", "{{ x|default }}"},
		{"range_zero_step", "{% for i in range(1, 5, 0) %}{{ i }}{% endfor %}"},
		{"batch_non_positive_size", "{% for g in [1,2,3]|batch(0) %}{{ g }}{% endfor %}"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := twigo.NewEngine(loader.StringMapLoader{"t": tc.tmpl})
			_, err := engine.Render("t", value.NewObject())
			if err == nil {
				t.Fatal("Render should fail, got nil error")
			}
			var rerr *errortypes.RuntimeError
			if !errors.As(err, &rerr) {
				t.Errorf("want a *errortypes.RuntimeError, got %T: %v", err, err)
			}
		})
	}
}
