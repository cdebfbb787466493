//go:build !tinygo && cgo

package glprogram

import (
	"fmt"
	"strings"

	"github.com/atmotex/atmotex/glsource"
	"github.com/go-gl/gl/all-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// Program is a linked shader program. Ownership is exclusive to the pipeline
// step that built it; Delete releases it after use. The stage objects it was
// linked from stay owned by the Cache.
type Program struct {
	id uint32
}

// Link builds a complete program around the named main fragment source: its
// transitive fragment-stage dependencies, the fixed vertex stage and
// optionally the fixed geometry stage used for layered 3-D rendering.
func (c *Cache) Link(mainFilename, description string, useGeometry bool) (Program, error) {
	deps, err := glsource.LinkDependencies(c.lib, mainFilename)
	if err != nil {
		return Program{}, err
	}
	stages := append(deps, mainFilename)

	id := gl.CreateProgram()
	attached := make(map[string]bool)
	for _, filename := range stages {
		if attached[filename] {
			continue
		}
		attached[filename] = true
		handle, err := c.GetOrCompile(Fragment, filename)
		if err != nil {
			gl.DeleteProgram(id)
			return Program{}, err
		}
		gl.AttachShader(id, handle)
	}
	vert, err := c.GetOrCompile(Vertex, glsource.VertexShader)
	if err != nil {
		gl.DeleteProgram(id)
		return Program{}, err
	}
	gl.AttachShader(id, vert)
	if useGeometry {
		geom, err := c.GetOrCompile(Geometry, glsource.GeometryShader)
		if err != nil {
			gl.DeleteProgram(id)
			return Program{}, err
		}
		gl.AttachShader(id, geom)
	}

	gl.LinkProgram(id)
	var status int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		c.logger.Printf("Failed to link %s:\n%s", description, programInfoLog(id))
		gl.DeleteProgram(id)
		return Program{}, fmt.Errorf("%s: %w", description, ErrLink)
	}
	return Program{id: id}, nil
}

func (p Program) Bind()   { gl.UseProgram(p.id) }
func (p Program) Delete() { gl.DeleteProgram(p.id) }

func (p Program) uniform(name string) int32 {
	return gl.GetUniformLocation(p.id, gl.Str(name+"\x00"))
}

// Uniform setters silently skip names the driver optimized out: shader
// variants with statically substituted flags legitimately drop uniforms.

func (p Program) SetInt(name string, v int32) {
	if loc := p.uniform(name); loc >= 0 {
		gl.Uniform1i(loc, v)
	}
}

func (p Program) SetFloat(name string, v float32) {
	if loc := p.uniform(name); loc >= 0 {
		gl.Uniform1f(loc, v)
	}
}

func (p Program) SetVec4(name string, v mgl32.Vec4) {
	if loc := p.uniform(name); loc >= 0 {
		gl.Uniform4f(loc, v[0], v[1], v[2], v[3])
	}
}

func (p Program) SetMat4(name string, m mgl32.Mat4) {
	if loc := p.uniform(name); loc >= 0 {
		gl.UniformMatrix4fv(loc, 1, false, &m[0])
	}
}

// SetTexture binds tex to the given texture unit and points the sampler
// uniform at it. target is gl.TEXTURE_2D or gl.TEXTURE_3D.
func (p Program) SetTexture(name string, target uint32, unit int32, tex uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(target, tex)
	p.SetInt(name, unit)
}

func programInfoLog(id uint32) string {
	var logLength int32
	gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &logLength)
	if logLength == 0 {
		return ""
	}
	infoLog := strings.Repeat("\x00", int(logLength+1))
	gl.GetProgramInfoLog(id, logLength, nil, gl.Str(infoLog))
	return strings.TrimRight(infoLog, "\x00")
}
