package atmotex

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Atmosphere is the full description of a precomputation run: the participating
// media, the wavelengths to sweep and the sizes of the output textures.
// It is immutable once validated; the pipeline never writes to it.
type Atmosphere struct {
	// EarthRadius and AtmosphereHeight are in meters.
	EarthRadius      float32
	AtmosphereHeight float32
	SunAngularRadius float32

	Scatterers []Scatterer
	Absorbers  []Absorber

	// Wavelengths holds disjoint quadruplets of sampling wavelengths in
	// nanometers, ordered from shortest to longest. One full pipeline pass is
	// executed per quadruplet.
	Wavelengths []mgl32.Vec4
	// SolarIrradianceAtTOA is the spectral solar irradiance at the top of the
	// atmosphere, in W/(m²·nm), sampled at the corresponding Wavelengths entry.
	SolarIrradianceAtTOA []mgl32.Vec4

	TransmittanceTexW, TransmittanceTexH int
	IrradianceTexW, IrradianceTexH       int
	// ScatteringTextureSize packs the four physical parameters of the
	// scattering table: (cosVZA, dotViewSun, cosSZA, altitude) sample counts.
	// The 3-D texture is laid out as [0] x [1]*[2] x [3].
	ScatteringTextureSize [4]int

	TransmittanceIntegrationPoints int
	RadialIntegrationPoints        int

	ScatteringOrdersToCompute int

	// SaveResultAsRadiance keeps the output as per-wavelength-set spectral
	// radiance instead of integrating it into a single XYZW luminance texture.
	SaveResultAsRadiance bool

	// Debug dump toggles. None are required for correctness.
	SaveGroundIrradiance        bool
	SaveScatteringDensity       bool
	SaveDeltaScattering         bool
	SaveAccumulatedScattering   bool
	SaveScatDensityOrder2Ground bool

	TextureOutputDir string
}

// ScatTexWidth returns the 2-D raster width used when rendering one layer of
// the scattering table.
func (atm *Atmosphere) ScatTexWidth() int { return atm.ScatteringTextureSize[0] }

// ScatTexHeight returns the 2-D raster height of one scattering table layer.
func (atm *Atmosphere) ScatTexHeight() int {
	return atm.ScatteringTextureSize[1] * atm.ScatteringTextureSize[2]
}

// ScatTexDepth returns the number of depth layers of the scattering table.
func (atm *Atmosphere) ScatTexDepth() int { return atm.ScatteringTextureSize[3] }

// WavelengthCount returns the total number of sampled wavelengths (4 per set).
func (atm *Atmosphere) WavelengthCount() int { return 4 * len(atm.Wavelengths) }

func (atm *Atmosphere) Validate() error {
	switch {
	case atm.EarthRadius <= 0:
		return errors.New("atmosphere: planet radius must be positive")
	case atm.AtmosphereHeight <= 0:
		return errors.New("atmosphere: atmosphere height must be positive")
	case len(atm.Scatterers) == 0:
		return errors.New("atmosphere: need at least one scatterer")
	case len(atm.Wavelengths) == 0:
		return errors.New("atmosphere: need at least one wavelength set")
	case len(atm.SolarIrradianceAtTOA) != len(atm.Wavelengths):
		return fmt.Errorf("atmosphere: %d solar irradiance sets for %d wavelength sets",
			len(atm.SolarIrradianceAtTOA), len(atm.Wavelengths))
	case atm.TransmittanceIntegrationPoints < 2:
		return errors.New("atmosphere: transmittance integration needs at least 2 points")
	case atm.RadialIntegrationPoints < 2:
		return errors.New("atmosphere: radial integration needs at least 2 points")
	case atm.ScatteringOrdersToCompute < 2:
		return errors.New("atmosphere: at least scattering orders 1 and 2 must be computed")
	case atm.TransmittanceTexW < 1 || atm.TransmittanceTexH < 1:
		return errors.New("atmosphere: invalid transmittance texture size")
	case atm.IrradianceTexW < 1 || atm.IrradianceTexH < 1:
		return errors.New("atmosphere: invalid irradiance texture size")
	}
	for _, n := range atm.ScatteringTextureSize {
		if n < 1 {
			return errors.New("atmosphere: invalid scattering texture size")
		}
	}
	seen := make(map[string]bool)
	for _, s := range atm.Scatterers {
		if err := s.validate(); err != nil {
			return err
		}
		if seen[s.Name] {
			return fmt.Errorf("atmosphere: duplicate agent name %q", s.Name)
		}
		seen[s.Name] = true
	}
	for _, a := range atm.Absorbers {
		if err := a.validate(); err != nil {
			return err
		}
		if seen[a.Name] {
			return fmt.Errorf("atmosphere: duplicate agent name %q", a.Name)
		}
		seen[a.Name] = true
	}
	prev := float32(0)
	for i, wl := range atm.Wavelengths {
		for lane := 0; lane < 4; lane++ {
			if wl[lane] <= prev {
				return fmt.Errorf("atmosphere: wavelengths must strictly increase (set %d lane %d)", i, lane)
			}
			prev = wl[lane]
		}
	}
	return nil
}

const (
	defaultWavelengthMin = 360 // nm
	defaultWavelengthMax = 830 // nm
)

// Default returns the stock atmosphere: Rayleigh air and Mie aerosol
// scatterers, an ozone absorber, and 16 wavelengths in 4 quadruplets spanning
// the visible range.
func Default() *Atmosphere {
	atm := &Atmosphere{
		EarthRadius:      6.371e6,
		AtmosphereHeight: 120e3,
		SunAngularRadius: 0.00935 / 2,

		Scatterers: []Scatterer{RayleighScatterer(), MieScatterer()},
		Absorbers:  []Absorber{OzoneAbsorber()},

		TransmittanceTexW: 256,
		TransmittanceTexH: 64,
		IrradianceTexW:    64,
		IrradianceTexH:    16,
		// cosVZA x dotViewSun*cosSZA x altitude
		ScatteringTextureSize: [4]int{32, 8, 16, 32},

		TransmittanceIntegrationPoints: 500,
		RadialIntegrationPoints:        50,
		ScatteringOrdersToCompute:      4,

		TextureOutputDir: ".",
	}
	const sets = 4
	for i := 0; i < sets; i++ {
		var wl, sun mgl32.Vec4
		for lane := 0; lane < 4; lane++ {
			j := 4*i + lane
			lambda := defaultWavelengthMin +
				(defaultWavelengthMax-defaultWavelengthMin)*float32(j)/float32(4*sets-1)
			wl[lane] = lambda
			sun[lane] = SolarIrradiance(lambda)
		}
		atm.Wavelengths = append(atm.Wavelengths, wl)
		atm.SolarIrradianceAtTOA = append(atm.SolarIrradianceAtTOA, sun)
	}
	return atm
}

// SolarIrradiance approximates the spectral solar irradiance at the top of the
// atmosphere in W/(m²·nm) with a 5778 K blackbody scaled to the solar constant.
func SolarIrradiance(wavelengthNM float32) float32 {
	const (
		temperature   = 5778    // K
		solarConstant = 1361    // W/m², total irradiance at 1 AU
		sigma         = 5.67e-8 // W/(m²·K⁴), Stefan-Boltzmann
		h             = 6.62607015e-34
		c             = 2.99792458e8
		kB            = 1.380649e-23
	)
	lambda := wavelengthNM * 1e-9
	// Planck spectral radiance per unit wavelength, W/(m³·sr).
	x := h * c / (lambda * temperature * kB)
	planck := 2 * h * c * c / (lambda * lambda * lambda * lambda * lambda) /
		(math32.Exp(float32(x)) - 1)
	// Normalize so the integral over all wavelengths matches the solar constant.
	total := sigma * temperature * temperature * temperature * temperature / math32.Pi
	return planck / total * solarConstant * 1e-9
}
