//go:build !tinygo && cgo

package glpipeline

import (
	"fmt"
	"strconv"

	"github.com/atmotex/atmotex/glprogram"
	"github.com/atmotex/atmotex/glsource"
	"github.com/go-gl/gl/all-core/gl"
)

// Texture unit assignment shared by all phases.
const (
	unitTransmittance = 0
	unitIrradiance    = 1
	unitScattering    = 2
	unitDensity       = 3
)

// Every draw site below sets its own blend state immediately before drawing;
// no pass may rely on the state a previous pass left behind.

func (p *Pipeline) computeTransmittance(setIndex int) error {
	prog, err := p.cache.Link(glsource.TransmittanceShader, "transmittance computation program", false)
	if err != nil {
		return err
	}
	defer prog.Delete()
	if err := p.bindOutput(p.fbo.transmittance, p.tex.transmittance, "transmittance framebuffer"); err != nil {
		return err
	}
	gl.Viewport(0, 0, int32(p.atm.TransmittanceTexW), int32(p.atm.TransmittanceTexH))
	prog.Bind()
	setBlend(false)
	p.logger.Print("Computing transmittance to the atmosphere border")
	p.quad.draw()
	gl.Finish()
	return p.saveTexture(gl.TEXTURE_2D, p.tex.transmittance, "transmittance texture",
		fmt.Sprintf("transmittance-wlset%d.dat", setIndex),
		p.atm.TransmittanceTexW, p.atm.TransmittanceTexH)
}

func (p *Pipeline) computeDirectGroundIrradiance(setIndex int) error {
	prog, err := p.cache.Link(glsource.DirectIrradianceShader, "direct irradiance computation program", false)
	if err != nil {
		return err
	}
	defer prog.Delete()
	if err := p.bindIrradianceOutputs(); err != nil {
		return err
	}
	gl.Viewport(0, 0, int32(p.atm.IrradianceTexW), int32(p.atm.IrradianceTexH))
	prog.Bind()
	prog.SetTexture("transmittanceTexture", gl.TEXTURE_2D, unitTransmittance, p.tex.transmittance)
	prog.SetVec4("solarIrradianceAtTOA", p.atm.SolarIrradianceAtTOA[setIndex])
	setBlend(false)
	p.logger.Print("Computing direct ground irradiance")
	p.quad.draw()
	gl.Finish()
	if p.atm.SaveGroundIrradiance {
		return p.saveTexture(gl.TEXTURE_2D, p.tex.deltaIrradiance, "direct irradiance texture",
			fmt.Sprintf("irradiance-delta-order1-wlset%d.dat", setIndex),
			p.atm.IrradianceTexW, p.atm.IrradianceTexH)
	}
	return nil
}

// computeSingleScattering renders the given scatterer's first-order scattering
// into the delta scattering texture, without the phase function applied.
func (p *Pipeline) computeSingleScattering(setIndex, scattererIndex int) error {
	s := p.atm.Scatterers[scattererIndex]
	p.cache.ReplaceVirtual(glsource.DensitiesShader,
		p.gen.SingleScatteringDensitySrc(s, p.atm.Wavelengths[setIndex]))
	prog, err := p.cache.Link(glsource.SingleScatteringShader,
		fmt.Sprintf("single scattering program for %q", s.Name), true)
	if err != nil {
		return err
	}
	defer prog.Delete()
	if err := p.bindOutput(p.fbo.deltaScattering, p.tex.deltaScattering, "delta scattering framebuffer"); err != nil {
		return err
	}
	p.scatteringViewport()
	prog.Bind()
	p.setScatteringUniforms(prog)
	prog.SetTexture("transmittanceTexture", gl.TEXTURE_2D, unitTransmittance, p.tex.transmittance)
	prog.SetVec4("solarIrradianceAtTOA", p.atm.SolarIrradianceAtTOA[setIndex])
	setBlend(false)
	p.render3DTexLayers(prog, fmt.Sprintf("Computing single scattering by %q", s.Name))
	if p.atm.SaveDeltaScattering {
		return p.saveTexture3D(p.tex.deltaScattering, "single scattering texture",
			fmt.Sprintf("single-scattering-%s-wlset%d.dat", s.Name, setIndex))
	}
	return nil
}

// computeScatteringOrder2 interleaves orders 1 and 2: the ground-reflected
// contribution to the order-2 scattering density is rendered first, then each
// scatterer's single scattering is computed and folded in with its phase
// function, together with its contribution to the first-order indirect
// irradiance. The accumulated density is then converted to radiance.
func (p *Pipeline) computeScatteringOrder2(setIndex int) error {
	p.cache.ReplaceVirtual(glsource.DensitiesShader, p.gen.DensityFunctionsSrc())
	if err := p.substituteShaderMacros(glsource.ScatteringDensityShader, 2, true); err != nil {
		return err
	}
	prog, err := p.cache.Link(glsource.ScatteringDensityShader,
		"scattering density order 2 program (ground radiation)", true)
	if err != nil {
		return err
	}
	if err := p.bindOutput(p.fbo.scattering, p.tex.scatDensity, "scattering density framebuffer"); err != nil {
		prog.Delete()
		return err
	}
	p.scatteringViewport()
	prog.Bind()
	p.setScatteringUniforms(prog)
	prog.SetTexture("transmittanceTexture", gl.TEXTURE_2D, unitTransmittance, p.tex.transmittance)
	prog.SetTexture("irradianceTexture", gl.TEXTURE_2D, unitIrradiance, p.tex.deltaIrradiance)
	setBlend(false)
	p.render3DTexLayers(prog, "Computing scattering density (order 2, ground radiation)")
	prog.Delete()
	if p.atm.SaveScatDensityOrder2Ground {
		if err := p.saveTexture3D(p.tex.scatDensity, "ground-only scattering density texture",
			fmt.Sprintf("scattering-density2-ground-wlset%d.dat", setIndex)); err != nil {
			return err
		}
	}

	for i, s := range p.atm.Scatterers {
		if err := p.computeSingleScattering(setIndex, i); err != nil {
			return err
		}
		phaseSrc, err := p.gen.PhaseFunctionsSrc(s.Name)
		if err != nil {
			return err
		}
		p.cache.ReplaceVirtual(glsource.PhaseFunctionsShader, phaseSrc)
		if err := p.substituteShaderMacros(glsource.ScatteringDensityShader, 2, false); err != nil {
			return err
		}
		prog, err := p.cache.Link(glsource.ScatteringDensityShader,
			fmt.Sprintf("scattering density order 2 program for %q", s.Name), true)
		if err != nil {
			return err
		}
		if err := p.bindOutput(p.fbo.scattering, p.tex.scatDensity, "scattering density framebuffer"); err != nil {
			prog.Delete()
			return err
		}
		p.scatteringViewport()
		prog.Bind()
		p.setScatteringUniforms(prog)
		prog.SetTexture("firstScatteringTexture", gl.TEXTURE_3D, unitScattering, p.tex.deltaScattering)
		setBlend(true)
		p.render3DTexLayers(prog, fmt.Sprintf("Computing scattering density (order 2, %q radiation)", s.Name))
		prog.Delete()

		if err := p.computeIndirectIrradianceOrder1(setIndex, i); err != nil {
			return err
		}
	}
	setBlend(false)
	if p.atm.SaveScatteringDensity {
		if err := p.saveTexture3D(p.tex.scatDensity, "scattering density texture",
			fmt.Sprintf("scattering-density-order2-wlset%d.dat", setIndex)); err != nil {
			return err
		}
	}
	return p.computeMultipleScatteringFromDensity(2, setIndex)
}

// computeIndirectIrradianceOrder1 adds one scatterer's contribution to the
// irradiance due to first-order scattering. The scatterer's phase function
// must already be current.
func (p *Pipeline) computeIndirectIrradianceOrder1(setIndex, scattererIndex int) error {
	if err := p.substituteIrradianceMacros(1); err != nil {
		return err
	}
	prog, err := p.cache.Link(glsource.IndirectIrradianceShader,
		"indirect irradiance computation program (order 1)", false)
	if err != nil {
		return err
	}
	defer prog.Delete()
	if err := p.bindIrradianceOutputs(); err != nil {
		return err
	}
	gl.Viewport(0, 0, int32(p.atm.IrradianceTexW), int32(p.atm.IrradianceTexH))
	prog.Bind()
	p.setScatteringUniforms(prog)
	prog.SetTexture("firstScatteringTexture", gl.TEXTURE_3D, unitScattering, p.tex.deltaScattering)
	blendDelta, blendTotal := IrradianceBlendPolicy(scattererIndex)
	setBlendIndexed(0, blendDelta)
	setBlendIndexed(1, blendTotal)
	p.logger.Printf("Computing indirect irradiance (order 2, %q)", p.atm.Scatterers[scattererIndex].Name)
	p.quad.draw()
	gl.Finish()
	setBlend(false)
	return nil
}

// computeScatteringDensity renders the density of the given order from the
// previous order's delta scattering.
func (p *Pipeline) computeScatteringDensity(order, setIndex int) error {
	if err := p.substituteShaderMacros(glsource.ScatteringDensityShader, order, false); err != nil {
		return err
	}
	prog, err := p.cache.Link(glsource.ScatteringDensityShader,
		fmt.Sprintf("scattering density order %d program", order), true)
	if err != nil {
		return err
	}
	defer prog.Delete()
	if err := p.bindOutput(p.fbo.scattering, p.tex.scatDensity, "scattering density framebuffer"); err != nil {
		return err
	}
	p.scatteringViewport()
	prog.Bind()
	p.setScatteringUniforms(prog)
	// The ground-reflection term needs the previous order's delta irradiance
	// and the transmittance down to the ground.
	prog.SetTexture("transmittanceTexture", gl.TEXTURE_2D, unitTransmittance, p.tex.transmittance)
	prog.SetTexture("irradianceTexture", gl.TEXTURE_2D, unitIrradiance, p.tex.deltaIrradiance)
	prog.SetTexture("multipleScatteringTexture", gl.TEXTURE_3D, unitScattering, p.tex.deltaScattering)
	setBlend(false)
	p.render3DTexLayers(prog, fmt.Sprintf("Computing scattering density (order %d)", order))
	if p.atm.SaveScatteringDensity {
		return p.saveTexture3D(p.tex.scatDensity, "scattering density texture",
			fmt.Sprintf("scattering-density-order%d-wlset%d.dat", order, setIndex))
	}
	return nil
}

// computeIndirectIrradiance renders the irradiance due to radiance scattered
// radianceOrder times, overwriting the delta and accumulating the total.
func (p *Pipeline) computeIndirectIrradiance(radianceOrder, setIndex int) error {
	if err := p.substituteIrradianceMacros(radianceOrder); err != nil {
		return err
	}
	prog, err := p.cache.Link(glsource.IndirectIrradianceShader,
		fmt.Sprintf("indirect irradiance computation program (order %d)", radianceOrder), false)
	if err != nil {
		return err
	}
	defer prog.Delete()
	if err := p.bindIrradianceOutputs(); err != nil {
		return err
	}
	gl.Viewport(0, 0, int32(p.atm.IrradianceTexW), int32(p.atm.IrradianceTexH))
	prog.Bind()
	p.setScatteringUniforms(prog)
	prog.SetTexture("multipleScatteringTexture", gl.TEXTURE_3D, unitScattering, p.tex.deltaScattering)
	setBlendIndexed(0, false)
	setBlendIndexed(1, true)
	p.logger.Printf("Computing indirect irradiance (order %d)", radianceOrder+1)
	p.quad.draw()
	gl.Finish()
	setBlend(false)
	if p.atm.SaveGroundIrradiance {
		return p.saveTexture(gl.TEXTURE_2D, p.tex.deltaIrradiance, "indirect irradiance texture",
			indirectIrradianceDumpName(radianceOrder, setIndex),
			p.atm.IrradianceTexW, p.atm.IrradianceTexH)
	}
	return nil
}

// computeMultipleScatteringFromDensity integrates the current density along
// view rays into the delta scattering texture, then folds the result into the
// accumulator.
func (p *Pipeline) computeMultipleScatteringFromDensity(order, setIndex int) error {
	prog, err := p.cache.Link(glsource.MultipleScatteringShader,
		fmt.Sprintf("multiple scattering order %d program", order), true)
	if err != nil {
		return err
	}
	defer prog.Delete()
	if err := p.bindOutput(p.fbo.deltaScattering, p.tex.deltaScattering, "delta scattering framebuffer"); err != nil {
		return err
	}
	p.scatteringViewport()
	prog.Bind()
	p.setScatteringUniforms(prog)
	prog.SetTexture("transmittanceTexture", gl.TEXTURE_2D, unitTransmittance, p.tex.transmittance)
	prog.SetTexture("scatteringDensityTexture", gl.TEXTURE_3D, unitDensity, p.tex.scatDensity)
	setBlend(false)
	p.render3DTexLayers(prog, fmt.Sprintf("Computing multiple scattering (order %d)", order))
	if p.atm.SaveDeltaScattering {
		if err := p.saveTexture3D(p.tex.deltaScattering, "delta scattering texture",
			fmt.Sprintf("delta-scattering-order%d-wlset%d.dat", order, setIndex)); err != nil {
			return err
		}
	}
	return p.accumulateScattering(order, setIndex)
}

// accumulateScattering adds the delta scattering of one order into the output
// accumulator, converting to luminance unless the run keeps radiance.
func (p *Pipeline) accumulateScattering(order, setIndex int) error {
	prog, err := p.cache.Link(glsource.CopyScatteringShader, "scattering texture accumulation program", true)
	if err != nil {
		return err
	}
	defer prog.Delete()
	if err := p.bindOutput(p.fbo.scattering, p.tex.scattering, "scattering accumulator framebuffer"); err != nil {
		return err
	}
	p.scatteringViewport()
	prog.Bind()
	prog.SetTexture("tex", gl.TEXTURE_3D, unitScattering, p.tex.deltaScattering)
	if !p.atm.SaveResultAsRadiance {
		prog.SetMat4("radianceToLuminance", p.atm.RadianceToLuminance(setIndex))
	}
	setBlend(AccumulateScatteringBlends(order, setIndex, p.atm.SaveResultAsRadiance))
	p.render3DTexLayers(prog, fmt.Sprintf("Accumulating scattering (order %d)", order))
	setBlend(false)
	return nil
}

func (p *Pipeline) scatteringViewport() {
	gl.Viewport(0, 0, int32(p.atm.ScatTexWidth()), int32(p.atm.ScatTexHeight()))
}

// setScatteringUniforms sets the altitude range the scattering texture
// coordinate mapping depends on. Programs without the uniforms skip them.
func (p *Pipeline) setScatteringUniforms(prog glprogram.Program) {
	prog.SetFloat("altitudeMin", 0)
	prog.SetFloat("altitudeMax", p.atm.AtmosphereHeight)
}

// substituteShaderMacros installs a variant of the scattering density shader
// with the order and radiation source baked in as literals.
func (p *Pipeline) substituteShaderMacros(filename string, order int, groundOnly bool) error {
	src, err := p.lib.ResolveDisk(filename)
	if err != nil {
		return err
	}
	p.cache.ReplaceVirtual(filename, glsource.SubstituteMacros(src, map[string]string{
		"SCATTERING_ORDER":              strconv.Itoa(order),
		"RADIATION_IS_FROM_GROUND_ONLY": strconv.FormatBool(groundOnly),
	}))
	return nil
}

// substituteIrradianceMacros installs the indirect irradiance shader variant
// for the given incoming radiance order.
func (p *Pipeline) substituteIrradianceMacros(radianceOrder int) error {
	src, err := p.lib.ResolveDisk(glsource.IndirectIrradianceShader)
	if err != nil {
		return err
	}
	p.cache.ReplaceVirtual(glsource.IndirectIrradianceShader, glsource.SubstituteMacros(src, map[string]string{
		"SCATTERING_ORDER": strconv.Itoa(radianceOrder),
	}))
	return nil
}
