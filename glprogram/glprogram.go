//go:build !tinygo && cgo

// Package glprogram compiles and links the pipeline's shader programs. Every
// stage object is created through the per-filename compilation cache, so at
// most one live compiled object exists per logical source name; invalidating
// a name forces the next user to recompile, which is how regenerated virtual
// sources take effect.
package glprogram

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/atmotex/atmotex/glsource"
	"github.com/go-gl/gl/all-core/gl"
)

var (
	ErrCompile = errors.New("shader compilation failed")
	ErrLink    = errors.New("shader program linking failed")
)

type Stage uint32

const (
	Vertex   Stage = gl.VERTEX_SHADER
	Geometry Stage = gl.GEOMETRY_SHADER
	Fragment Stage = gl.FRAGMENT_SHADER
)

func (s Stage) String() string {
	switch s {
	case Vertex:
		return "vertex"
	case Geometry:
		return "geometry"
	case Fragment:
		return "fragment"
	}
	return fmt.Sprintf("Stage(%#x)", uint32(s))
}

// Cache memoizes compiled shader stage objects by logical filename.
type Cache struct {
	lib     *glsource.Library
	logger  *log.Logger
	shaders map[string]uint32

	// compileFn is swapped out in tests to exercise cache semantics without a
	// GL context.
	compileFn func(stage Stage, source string) (handle uint32, infoLog string, err error)
	deleteFn  func(handle uint32)
}

func NewCache(lib *glsource.Library, logger *log.Logger) *Cache {
	if logger == nil {
		logger = log.New(os.Stderr, "", 0)
	}
	return &Cache{
		lib:       lib,
		logger:    logger,
		shaders:   make(map[string]uint32),
		compileFn: compileGL,
		deleteFn:  gl.DeleteShader,
	}
}

// Library returns the source library the cache compiles from.
func (c *Cache) Library() *glsource.Library { return c.lib }

// Compile resolves, expands and compiles the named source as the given stage.
// On failure the fully expanded, line-numbered source is printed together
// with the driver's diagnostics; the error is unrecoverable since dependent
// passes cannot run without the stage.
func (c *Cache) Compile(stage Stage, filename string) (uint32, error) {
	src, err := c.lib.Resolve(filename)
	if err != nil {
		return 0, err
	}
	expanded, err := glsource.ExpandIncludes(c.lib, src, filename)
	if err != nil {
		return 0, err
	}
	handle, infoLog, err := c.compileFn(stage, expanded)
	if err != nil {
		c.logger.Printf("Failed to compile %s:\n%s", filename, infoLog)
		c.logger.Printf("Source of the shader:\n________________________________________________\n%s________________________________________________",
			glsource.NumberedSource(expanded))
		return 0, fmt.Errorf("%s shader %q: %w", stage, filename, ErrCompile)
	}
	if strings.TrimSpace(infoLog) != "" {
		c.logger.Printf("Warnings while compiling %s:\n%s", filename, infoLog)
	}
	return handle, nil
}

// GetOrCompile returns the cached stage object for filename, compiling and
// caching it on first use. This is the only path that creates stage objects.
func (c *Cache) GetOrCompile(stage Stage, filename string) (uint32, error) {
	if handle, ok := c.shaders[filename]; ok {
		return handle, nil
	}
	handle, err := c.Compile(stage, filename)
	if err != nil {
		return 0, err
	}
	c.shaders[filename] = handle
	return handle, nil
}

// Invalidate drops the cached object under filename so the next GetOrCompile
// recompiles. It must be called before re-registering a virtual source under
// the same name, else a stale binary would be reused.
func (c *Cache) Invalidate(filename string) {
	if handle, ok := c.shaders[filename]; ok {
		c.deleteFn(handle)
		delete(c.shaders, filename)
	}
}

// InvalidateAll clears the whole cache, called between wavelength-set passes.
func (c *Cache) InvalidateAll() {
	for name := range c.shaders {
		c.Invalidate(name)
	}
}

// ReplaceVirtual atomically invalidates the cached object and installs a new
// virtual source under the same name.
func (c *Cache) ReplaceVirtual(filename, src string) {
	c.Invalidate(filename)
	c.lib.SetVirtual(filename, src)
}

func compileGL(stage Stage, source string) (uint32, string, error) {
	handle := gl.CreateShader(uint32(stage))
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(handle, 1, csources, nil)
	free()
	gl.CompileShader(handle)
	infoLog := shaderInfoLog(handle)
	var status int32
	gl.GetShaderiv(handle, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		gl.DeleteShader(handle)
		return 0, infoLog, ErrCompile
	}
	return handle, infoLog, nil
}

func shaderInfoLog(handle uint32) string {
	var logLength int32
	gl.GetShaderiv(handle, gl.INFO_LOG_LENGTH, &logLength)
	if logLength == 0 {
		return ""
	}
	infoLog := strings.Repeat("\x00", int(logLength+1))
	gl.GetShaderInfoLog(handle, logLength, nil, gl.Str(infoLog))
	return strings.TrimRight(infoLog, "\x00")
}
