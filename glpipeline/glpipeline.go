//go:build !tinygo && cgo

// Package glpipeline orchestrates the atmosphere precomputation on the GPU:
// one full pass per wavelength quadruplet, each pass computing transmittance,
// ground irradiance and scattering order by order into float textures, with
// the results accumulated either as spectral radiance or as XYZW luminance.
// A current OpenGL 3.3 context is required on the calling goroutine.
package glpipeline

import (
	"log"
	"os"

	"github.com/atmotex/atmotex"
	"github.com/atmotex/atmotex/glprogram"
	"github.com/atmotex/atmotex/glsource"
	"github.com/go-gl/gl/all-core/gl"
	"github.com/soypat/glgl/v4.6-core/glgl"
)

// Pipeline owns every GL resource of a precomputation run. It is not safe for
// concurrent use; all methods must be called from the context's goroutine.
type Pipeline struct {
	atm    *atmotex.Atmosphere
	lib    *glsource.Library
	gen    *glsource.Generator
	cache  *glprogram.Cache
	logger *log.Logger

	tex  textures
	fbo  framebuffers
	quad quadRenderer
}

// New validates atm and allocates the pipeline's textures, framebuffers and
// vertex state. shaderDir optionally overrides the embedded shaders; pass ""
// to use the embedded set. A nil logger logs to stderr.
func New(atm *atmotex.Atmosphere, shaderDir string, logger *log.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "", 0)
	}
	if err := atm.Validate(); err != nil {
		return nil, err
	}
	lib := glsource.NewLibrary(shaderDir)
	p := &Pipeline{
		atm:    atm,
		lib:    lib,
		gen:    glsource.NewGenerator(atm, lib),
		cache:  glprogram.NewCache(lib, logger),
		logger: logger,
	}
	if err := p.createTextures(); err != nil {
		p.Release()
		return nil, err
	}
	p.quad.create()
	gl.BlendFunc(gl.ONE, gl.ONE)
	if err := glgl.Err(); err != nil {
		p.Release()
		return nil, err
	}
	return p, nil
}

// Release frees all GL resources held by the pipeline.
func (p *Pipeline) Release() {
	p.quad.release()
	p.deleteTextures()
	p.cache.InvalidateAll()
}

// Run executes the whole precomputation, sweeping every wavelength set.
func (p *Pipeline) Run() error {
	for setIndex := range p.atm.Wavelengths {
		if err := p.runWavelengthSet(setIndex); err != nil {
			return err
		}
	}
	p.logger.Print("Done")
	return nil
}

// runWavelengthSet regenerates the wavelength-dependent shader sources,
// invalidates the compilation cache and runs every phase for one quadruplet.
func (p *Pipeline) runWavelengthSet(setIndex int) error {
	atm := p.atm
	wl := atm.Wavelengths[setIndex]
	p.logger.Printf("Working on wavelengths %g, %g, %g, %g nm (set %d of %d)",
		wl[0], wl[1], wl[2], wl[3], setIndex+1, len(atm.Wavelengths))

	p.cache.InvalidateAll()
	p.lib.SetConstantsHeader(p.gen.ConstantsHeader())
	// Transmittance generation also populates the densities declaration
	// header, which the total scattering coefficient source includes.
	transSrc, err := p.gen.TransmittanceSrc(wl)
	if err != nil {
		return err
	}
	p.lib.SetVirtual(glsource.TransmittanceShader, transSrc)
	phaseSrc, err := p.gen.PhaseFunctionsSrc("")
	if err != nil {
		return err
	}
	p.lib.SetVirtual(glsource.PhaseFunctionsShader, phaseSrc)
	p.lib.SetVirtual(glsource.TotalScatteringShader, p.gen.TotalScatteringSrc(wl))

	if err := p.computeTransmittance(setIndex); err != nil {
		return err
	}
	if err := p.computeDirectGroundIrradiance(setIndex); err != nil {
		return err
	}
	// Order 2 is interleaved with order 1: the per-scatterer single
	// scattering and first-order irradiance are computed inside the order-2
	// density accumulation.
	if err := p.computeScatteringOrder2(setIndex); err != nil {
		return err
	}
	for order := 3; order <= atm.ScatteringOrdersToCompute; order++ {
		if err := p.computeScatteringDensity(order, setIndex); err != nil {
			return err
		}
		if err := p.computeIndirectIrradiance(order-1, setIndex); err != nil {
			return err
		}
		if err := p.computeMultipleScatteringFromDensity(order, setIndex); err != nil {
			return err
		}
	}
	return p.saveResults(setIndex)
}
