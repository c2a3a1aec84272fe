package cache

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/twigo-lang/twigo/ast"
)

func TestFetchCompilesOncePerKey(t *testing.T) {
	c := New()
	var compiles int32

	compile := func() (*ast.Document, error) {
		atomic.AddInt32(&compiles, 1)
		return ast.NewDocument("k", "src", &ast.ListNode{}), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Fetch("k", compile); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&compiles); got != 1 {
		t.Errorf("compile ran %d times, want exactly once", got)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestInvalidateForcesRecompile(t *testing.T) {
	c := New()
	calls := 0
	compile := func() (*ast.Document, error) {
		calls++
		return ast.NewDocument("k", "src", &ast.ListNode{}), nil
	}
	if _, err := c.Fetch("k", compile); err != nil {
		t.Fatal(err)
	}
	c.Invalidate("k")
	if _, err := c.Fetch("k", compile); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("expected recompilation after Invalidate, calls = %d", calls)
	}
}
