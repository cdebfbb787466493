package atmotex

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// CrossSection is a wavelength-dependent interaction cross section modeled as
// a power law around a reference wavelength:
//
//	σ(λ) = BaseValue·(λ/BaseWavelength)^Exponent
//
// Rayleigh scattering uses Exponent≈-4, large aerosols are nearly flat.
type CrossSection struct {
	// BaseValue is the cross section in m² at BaseWavelength.
	BaseValue float32
	// BaseWavelength is in nanometers.
	BaseWavelength float32
	Exponent       float32
}

// At evaluates the cross section for a quadruplet of wavelengths in nm.
func (cs CrossSection) At(wavelengths mgl32.Vec4) mgl32.Vec4 {
	var out mgl32.Vec4
	for lane := 0; lane < 4; lane++ {
		out[lane] = cs.BaseValue * math32.Pow(wavelengths[lane]/cs.BaseWavelength, cs.Exponent)
	}
	return out
}

func (cs CrossSection) validate(owner string) error {
	if cs.BaseValue <= 0 {
		return fmt.Errorf("agent %q: cross section base value must be positive", owner)
	} else if cs.BaseWavelength <= 0 {
		return fmt.Errorf("agent %q: cross section base wavelength must be positive", owner)
	}
	return nil
}

// Scatterer is a participating medium that scatters light. NumberDensity and
// PhaseFunction are GLSL function bodies spliced verbatim into generated
// shader source; NumberDensity receives `float altitude` in meters and must
// return molecules/m³, PhaseFunction receives `float dotViewSun` and must
// return a spectral vec4.
type Scatterer struct {
	Name          string
	NumberDensity string
	PhaseFunction string
	CrossSection  CrossSection
}

func (s Scatterer) validate() error {
	if err := validateAgentName(s.Name); err != nil {
		return err
	} else if s.NumberDensity == "" {
		return fmt.Errorf("scatterer %q: empty number density expression", s.Name)
	} else if s.PhaseFunction == "" {
		return fmt.Errorf("scatterer %q: empty phase function", s.Name)
	}
	return s.CrossSection.validate(s.Name)
}

// Absorber is a participating medium that only attenuates light.
type Absorber struct {
	Name          string
	NumberDensity string
	CrossSection  CrossSection
}

func (a Absorber) validate() error {
	if err := validateAgentName(a.Name); err != nil {
		return err
	} else if a.NumberDensity == "" {
		return fmt.Errorf("absorber %q: empty number density expression", a.Name)
	}
	return a.CrossSection.validate(a.Name)
}

// validateAgentName ensures the name is usable as part of a GLSL identifier.
func validateAgentName(name string) error {
	if name == "" {
		return errors.New("agent with empty name")
	}
	for i, r := range name {
		ok := r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' ||
			i > 0 && r >= '0' && r <= '9'
		if !ok {
			return fmt.Errorf("agent name %q is not a valid GLSL identifier", name)
		}
	}
	return nil
}

// RayleighScatterer models molecular scattering by air with an exponential
// density profile and λ⁻⁴ cross section.
func RayleighScatterer() Scatterer {
	return Scatterer{
		Name:          "air",
		NumberDensity: "    return 2.546e25*exp(-altitude/8500.);\n",
		PhaseFunction: "    return vec4(3./(16.*PI)*(1.+sqr(dotViewSun)));\n",
		CrossSection: CrossSection{
			BaseValue:      4.56e-31,
			BaseWavelength: 550,
			Exponent:       -4.08,
		},
	}
}

// MieScatterer models aerosol scattering with a Cornette-Shanks phase function.
func MieScatterer() Scatterer {
	return Scatterer{
		Name: "aerosol",
		NumberDensity: "    return 1.e8*exp(-altitude/1200.);\n",
		PhaseFunction: "    const float g=0.76;\n" +
			"    float k=3./(8.*PI)*(1.-sqr(g))/(2.+sqr(g));\n" +
			"    return vec4(k*(1.+sqr(dotViewSun))/pow(1.+sqr(g)-2.*g*dotViewSun,1.5));\n",
		CrossSection: CrossSection{
			BaseValue:      2e-14,
			BaseWavelength: 550,
			Exponent:       -0.6,
		},
	}
}

// OzoneAbsorber models the Chappuis-band ozone layer as a tent profile peaking
// at 25 km.
func OzoneAbsorber() Absorber {
	return Absorber{
		Name: "ozone",
		NumberDensity: "    const float peakAlt=25000., halfWidth=15000.;\n" +
			"    return 8.e18*max(0., 1.-abs(altitude-peakAlt)/halfWidth);\n",
		CrossSection: CrossSection{
			BaseValue:      3.2e-25,
			BaseWavelength: 600,
			Exponent:       0,
		},
	}
}
