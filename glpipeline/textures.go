//go:build !tinygo && cgo

package glpipeline

import (
	"errors"
	"fmt"

	"github.com/go-gl/gl/all-core/gl"
	"github.com/soypat/glgl/v4.6-core/glgl"
)

// ErrFramebuffer indicates an incomplete framebuffer configuration, usually a
// driver rejecting the RGBA32F attachments.
var ErrFramebuffer = errors.New("framebuffer incomplete")

// textures holds every float texture of the run. The delta textures carry the
// intermediate result of the current order only; irradiance and scattering
// are the accumulators that end up on disk.
type textures struct {
	transmittance   uint32 // 2-D
	deltaIrradiance uint32 // 2-D
	irradiance      uint32 // 2-D
	deltaScattering uint32 // 3-D, single or multiple scattering of one order
	scatDensity     uint32 // 3-D
	scattering      uint32 // 3-D, accumulated output
}

type framebuffers struct {
	transmittance   uint32
	irradiance      uint32
	deltaScattering uint32
	scattering      uint32
}

func (p *Pipeline) createTextures() error {
	atm := p.atm
	p.tex.transmittance = newTexture2D(atm.TransmittanceTexW, atm.TransmittanceTexH)
	p.tex.deltaIrradiance = newTexture2D(atm.IrradianceTexW, atm.IrradianceTexH)
	p.tex.irradiance = newTexture2D(atm.IrradianceTexW, atm.IrradianceTexH)
	p.tex.deltaScattering = newTexture3D(atm.ScatTexWidth(), atm.ScatTexHeight(), atm.ScatTexDepth())
	p.tex.scatDensity = newTexture3D(atm.ScatTexWidth(), atm.ScatTexHeight(), atm.ScatTexDepth())
	p.tex.scattering = newTexture3D(atm.ScatTexWidth(), atm.ScatTexHeight(), atm.ScatTexDepth())
	gl.GenFramebuffers(1, &p.fbo.transmittance)
	gl.GenFramebuffers(1, &p.fbo.irradiance)
	gl.GenFramebuffers(1, &p.fbo.deltaScattering)
	gl.GenFramebuffers(1, &p.fbo.scattering)
	if err := glgl.Err(); err != nil {
		return fmt.Errorf("allocating pipeline textures: %w", err)
	}
	return nil
}

func (p *Pipeline) deleteTextures() {
	for _, tex := range []*uint32{
		&p.tex.transmittance, &p.tex.deltaIrradiance, &p.tex.irradiance,
		&p.tex.deltaScattering, &p.tex.scatDensity, &p.tex.scattering,
	} {
		if *tex != 0 {
			gl.DeleteTextures(1, tex)
			*tex = 0
		}
	}
	for _, fbo := range []*uint32{
		&p.fbo.transmittance, &p.fbo.irradiance, &p.fbo.deltaScattering, &p.fbo.scattering,
	} {
		if *fbo != 0 {
			gl.DeleteFramebuffers(1, fbo)
			*fbo = 0
		}
	}
}

func newTexture2D(w, h int) uint32 {
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	texFilterClamp(gl.TEXTURE_2D)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA32F, int32(w), int32(h), 0, gl.RGBA, gl.FLOAT, nil)
	return tex
}

func newTexture3D(w, h, d int) uint32 {
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_3D, tex)
	texFilterClamp(gl.TEXTURE_3D)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_WRAP_R, gl.CLAMP_TO_EDGE)
	gl.TexImage3D(gl.TEXTURE_3D, 0, gl.RGBA32F, int32(w), int32(h), int32(d), 0, gl.RGBA, gl.FLOAT, nil)
	return tex
}

func texFilterClamp(target uint32) {
	gl.TexParameteri(target, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(target, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(target, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(target, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
}

// bindOutput points fbo's single color attachment at tex and makes it the
// draw target. Works for both 2-D and layered 3-D textures.
func (p *Pipeline) bindOutput(fbo, tex uint32, description string) error {
	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
	gl.FramebufferTexture(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, tex, 0)
	buf := uint32(gl.COLOR_ATTACHMENT0)
	gl.DrawBuffers(1, &buf)
	return checkFramebuffer(description)
}

// bindIrradianceOutputs targets the dual-output irradiance framebuffer:
// attachment 0 the delta, attachment 1 the accumulated total.
func (p *Pipeline) bindIrradianceOutputs() error {
	gl.BindFramebuffer(gl.FRAMEBUFFER, p.fbo.irradiance)
	gl.FramebufferTexture(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, p.tex.deltaIrradiance, 0)
	gl.FramebufferTexture(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT1, p.tex.irradiance, 0)
	bufs := [2]uint32{gl.COLOR_ATTACHMENT0, gl.COLOR_ATTACHMENT1}
	gl.DrawBuffers(2, &bufs[0])
	return checkFramebuffer("irradiance framebuffer")
}

func checkFramebuffer(description string) error {
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	if status != gl.FRAMEBUFFER_COMPLETE {
		return fmt.Errorf("%s: status %#x: %w", description, status, ErrFramebuffer)
	}
	return nil
}
