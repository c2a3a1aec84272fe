// Package errortypes defines the engine's error taxonomy: LoadError,
// CompileError, RuntimeError, and JSONParseError.
package errortypes

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// LoadError reports that a loader could not find or read a template key.
type LoadError struct {
	Key string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %q: %s", e.Key, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// NewLoadError wraps the loader's underlying error with its key.
func NewLoadError(key string, err error) *LoadError {
	return &LoadError{Key: key, Err: errors.Wrapf(err, "loading %q", key)}
}

// CompileError reports a syntax error detected while parsing a template. It
// carries the template key, message, and 1-based line/column.
type CompileError struct {
	Key    string
	Msg    string
	Line   int
	Column int
	// SourceLine is the offending line's text, used to render a caret.
	SourceLine string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Key, e.Line, e.Column, e.Msg)
}

// Render formats the error together with a caret under the offending
// column, matching the original C++ parser's diagnostic style.
func (e *CompileError) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", e.Error())
	if e.SourceLine != "" {
		fmt.Fprintf(&b, "%s\n", e.SourceLine)
		col := e.Column
		if col < 1 {
			col = 1
		}
		b.WriteString(strings.Repeat(" ", col-1))
		b.WriteString("^\n")
	}
	return b.String()
}

// RuntimeError reports an evaluation failure: calling a non-callable, a
// missing required function argument, invalid `in` operands, invalid
// range/batch arguments, or an invalid regex.
type RuntimeError struct {
	Key     string
	Msg     string
	Line    int
	Column  int
	Wrapped error
}

func (e *RuntimeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: runtime error: %s", e.Key, e.Line, e.Column, e.Msg)
	}
	return fmt.Sprintf("%s: runtime error: %s", e.Key, e.Msg)
}

func (e *RuntimeError) Unwrap() error { return e.Wrapped }

// JSONParseError describes a JSON decode failure by byte offset. The value
// package's decoder does not return it: value.FromJSON reports its own
// *value.ParseError, which carries the same fields.
type JSONParseError struct {
	Offset int
	Msg    string
}

func (e *JSONParseError) Error() string {
	return fmt.Sprintf("json parse error at offset %d: %s", e.Offset, e.Msg)
}
