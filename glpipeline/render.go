//go:build !tinygo && cgo

package glpipeline

import (
	"github.com/atmotex/atmotex/glprogram"
	"github.com/go-gl/gl/all-core/gl"
)

// quadRenderer draws the full-viewport quad every pass renders with.
type quadRenderer struct {
	vao, vbo uint32
}

func (q *quadRenderer) create() {
	verts := []float32{
		-1, -1, 0,
		1, -1, 0,
		-1, 1, 0,
		1, 1, 0,
	}
	gl.GenVertexArrays(1, &q.vao)
	gl.BindVertexArray(q.vao)
	gl.GenBuffers(1, &q.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, q.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, 4*len(verts), gl.Ptr(verts), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, 0, 0)
}

func (q *quadRenderer) draw() {
	gl.BindVertexArray(q.vao)
	gl.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)
}

func (q *quadRenderer) release() {
	if q.vbo != 0 {
		gl.DeleteBuffers(1, &q.vbo)
		q.vbo = 0
	}
	if q.vao != 0 {
		gl.DeleteVertexArrays(1, &q.vao)
		q.vao = 0
	}
}

// render3DTexLayers renders every depth layer of the bound 3-D attachment,
// routing each draw to its layer through the geometry stage's layer uniform.
// The per-layer glFinish keeps long passes from tripping GPU watchdogs.
func (p *Pipeline) render3DTexLayers(prog glprogram.Program, what string) {
	p.logger.Printf("%s", what)
	for layer := 0; layer < p.atm.ScatTexDepth(); layer++ {
		prog.SetInt("layer", int32(layer))
		p.quad.draw()
		gl.Finish()
	}
}

func setBlend(enable bool) {
	if enable {
		gl.Enable(gl.BLEND)
	} else {
		gl.Disable(gl.BLEND)
	}
}

// setBlendIndexed toggles blending for a single draw buffer, leaving the
// other attachments of the framebuffer untouched.
func setBlendIndexed(drawBuffer uint32, enable bool) {
	if enable {
		gl.Enablei(gl.BLEND, drawBuffer)
	} else {
		gl.Disablei(gl.BLEND, drawBuffer)
	}
}
