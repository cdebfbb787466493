//go:build !tinygo && cgo

package glprogram

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/atmotex/atmotex/glsource"
)

// fakeCompiler stands in for the GL compiler so cache semantics can be tested
// without a context.
type fakeCompiler struct {
	next     uint32
	compiled []string // sources in compile order
	deleted  []uint32
	fail     bool
}

func (f *fakeCompiler) compile(stage Stage, source string) (uint32, string, error) {
	if f.fail {
		return 0, "0(3) : error C0000: syntax error", ErrCompile
	}
	f.next++
	f.compiled = append(f.compiled, source)
	return f.next, "", nil
}

func (f *fakeCompiler) delete(handle uint32) {
	f.deleted = append(f.deleted, handle)
}

func newTestCache(fc *fakeCompiler, logBuf *bytes.Buffer) *Cache {
	lib := glsource.NewLibrary("")
	c := NewCache(lib, log.New(logBuf, "", 0))
	c.compileFn = fc.compile
	c.deleteFn = fc.delete
	return c
}

func TestGetOrCompileCaches(t *testing.T) {
	fc := &fakeCompiler{}
	c := newTestCache(fc, &bytes.Buffer{})
	c.Library().SetVirtual("x.frag", "void main(){}\n")

	h1, err := c.GetOrCompile(Fragment, "x.frag")
	if err != nil {
		t.Fatal(err)
	}
	h2, err := c.GetOrCompile(Fragment, "x.frag")
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Errorf("cache returned different handles %d and %d", h1, h2)
	}
	if len(fc.compiled) != 1 {
		t.Errorf("compiled %d times, want 1", len(fc.compiled))
	}
}

func TestReplaceVirtualRecompiles(t *testing.T) {
	fc := &fakeCompiler{}
	c := newTestCache(fc, &bytes.Buffer{})
	c.Library().SetVirtual("x.frag", "// v1\n")

	h1, err := c.GetOrCompile(Fragment, "x.frag")
	if err != nil {
		t.Fatal(err)
	}
	c.ReplaceVirtual("x.frag", "// v2\n")
	h2, err := c.GetOrCompile(Fragment, "x.frag")
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h2 {
		t.Error("stale shader object reused after the source was replaced")
	}
	if len(fc.deleted) != 1 || fc.deleted[0] != h1 {
		t.Errorf("old object not deleted: %v", fc.deleted)
	}
	if got := fc.compiled[len(fc.compiled)-1]; !strings.Contains(got, "v2") {
		t.Errorf("recompile used stale source: %q", got)
	}
}

func TestInvalidateAll(t *testing.T) {
	fc := &fakeCompiler{}
	c := newTestCache(fc, &bytes.Buffer{})
	c.Library().SetVirtual("a.frag", "// a\n")
	c.Library().SetVirtual("b.frag", "// b\n")
	if _, err := c.GetOrCompile(Fragment, "a.frag"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetOrCompile(Fragment, "b.frag"); err != nil {
		t.Fatal(err)
	}
	c.InvalidateAll()
	if len(fc.deleted) != 2 {
		t.Errorf("deleted %d objects, want 2", len(fc.deleted))
	}
	if _, err := c.GetOrCompile(Fragment, "a.frag"); err != nil {
		t.Fatal(err)
	}
	if len(fc.compiled) != 3 {
		t.Errorf("compiled %d times, want 3", len(fc.compiled))
	}
}

func TestCompileExpandsIncludes(t *testing.T) {
	fc := &fakeCompiler{}
	c := newTestCache(fc, &bytes.Buffer{})
	c.Library().SetVirtual("h.h.glsl", "float h();\n")
	c.Library().SetVirtual("x.frag", "#include \"h.h.glsl\"\nvoid main(){}\n")

	if _, err := c.Compile(Fragment, "x.frag"); err != nil {
		t.Fatal(err)
	}
	src := fc.compiled[0]
	if !strings.Contains(src, "float h();") {
		t.Errorf("include was not expanded:\n%s", src)
	}
	if strings.Contains(src, "#include") {
		t.Errorf("include directive left in compiled source:\n%s", src)
	}
}

func TestCompileFailureDumpsSource(t *testing.T) {
	fc := &fakeCompiler{fail: true}
	var logBuf bytes.Buffer
	c := newTestCache(fc, &logBuf)
	c.Library().SetVirtual("x.frag", "void main(){ bogus }\n")

	_, err := c.Compile(Fragment, "x.frag")
	if !errors.Is(err, ErrCompile) {
		t.Fatalf("got %v, want ErrCompile", err)
	}
	out := logBuf.String()
	if !strings.Contains(out, "Failed to compile x.frag") {
		t.Errorf("missing failure banner in log:\n%s", out)
	}
	if !strings.Contains(out, "1 void main(){ bogus }") {
		t.Errorf("missing numbered source dump in log:\n%s", out)
	}
}
