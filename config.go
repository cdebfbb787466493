package atmotex

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"
)

// rawAtmosphere is the JSON wire form of an atmosphere description. Fields
// left out of the file keep the stock values from [Default].
type rawAtmosphere struct {
	EarthRadius      *float32 `json:"earth_radius_m"`
	AtmosphereHeight *float32 `json:"atmosphere_height_m"`
	SunAngularRadius *float32 `json:"sun_angular_radius_rad"`

	Scatterers []rawScatterer `json:"scatterers"`
	Absorbers  []rawAbsorber  `json:"absorbers"`

	WavelengthMin  *float32 `json:"wavelength_min_nm"`
	WavelengthMax  *float32 `json:"wavelength_max_nm"`
	WavelengthSets *int     `json:"wavelength_sets"`

	TransmittanceTexSize  *[2]int `json:"transmittance_texture_size"`
	IrradianceTexSize     *[2]int `json:"irradiance_texture_size"`
	ScatteringTextureSize *[4]int `json:"scattering_texture_size"`

	TransmittanceIntegrationPoints *int `json:"transmittance_integration_points"`
	RadialIntegrationPoints        *int `json:"radial_integration_points"`
	ScatteringOrders               *int `json:"scattering_orders"`

	SaveResultAsRadiance bool `json:"save_result_as_radiance"`
}

type rawCrossSection struct {
	BaseValue      float32 `json:"base_value_m2"`
	BaseWavelength float32 `json:"base_wavelength_nm"`
	Exponent       float32 `json:"exponent"`
}

type rawScatterer struct {
	Name          string          `json:"name"`
	NumberDensity string          `json:"number_density"`
	PhaseFunction string          `json:"phase_function"`
	CrossSection  rawCrossSection `json:"cross_section"`
}

type rawAbsorber struct {
	Name          string          `json:"name"`
	NumberDensity string          `json:"number_density"`
	CrossSection  rawCrossSection `json:"cross_section"`
}

// LoadConfig reads a JSON atmosphere description, fills in defaults for
// omitted fields and validates the result.
func LoadConfig(path string) (*Atmosphere, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading atmosphere config: %w", err)
	}
	atm, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return atm, nil
}

// ParseConfig decodes a JSON atmosphere description from memory.
func ParseConfig(data []byte) (*Atmosphere, error) {
	var raw rawAtmosphere
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding atmosphere config: %w", err)
	}
	atm := Default()
	setf := func(dst *float32, src *float32) {
		if src != nil {
			*dst = *src
		}
	}
	seti := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	setf(&atm.EarthRadius, raw.EarthRadius)
	setf(&atm.AtmosphereHeight, raw.AtmosphereHeight)
	setf(&atm.SunAngularRadius, raw.SunAngularRadius)
	seti(&atm.TransmittanceIntegrationPoints, raw.TransmittanceIntegrationPoints)
	seti(&atm.RadialIntegrationPoints, raw.RadialIntegrationPoints)
	seti(&atm.ScatteringOrdersToCompute, raw.ScatteringOrders)
	atm.SaveResultAsRadiance = raw.SaveResultAsRadiance
	if raw.TransmittanceTexSize != nil {
		atm.TransmittanceTexW, atm.TransmittanceTexH = raw.TransmittanceTexSize[0], raw.TransmittanceTexSize[1]
	}
	if raw.IrradianceTexSize != nil {
		atm.IrradianceTexW, atm.IrradianceTexH = raw.IrradianceTexSize[0], raw.IrradianceTexSize[1]
	}
	if raw.ScatteringTextureSize != nil {
		atm.ScatteringTextureSize = *raw.ScatteringTextureSize
	}

	if raw.Scatterers != nil {
		atm.Scatterers = atm.Scatterers[:0]
		for _, rs := range raw.Scatterers {
			atm.Scatterers = append(atm.Scatterers, Scatterer{
				Name:          rs.Name,
				NumberDensity: rs.NumberDensity,
				PhaseFunction: rs.PhaseFunction,
				CrossSection:  CrossSection(rs.CrossSection),
			})
		}
	}
	if raw.Absorbers != nil {
		atm.Absorbers = atm.Absorbers[:0]
		for _, ra := range raw.Absorbers {
			atm.Absorbers = append(atm.Absorbers, Absorber{
				Name:          ra.Name,
				NumberDensity: ra.NumberDensity,
				CrossSection:  CrossSection(ra.CrossSection),
			})
		}
	}

	if raw.WavelengthMin != nil || raw.WavelengthMax != nil || raw.WavelengthSets != nil {
		min, max, sets := float32(defaultWavelengthMin), float32(defaultWavelengthMax), len(atm.Wavelengths)
		setf(&min, raw.WavelengthMin)
		setf(&max, raw.WavelengthMax)
		seti(&sets, raw.WavelengthSets)
		if sets < 1 || max <= min {
			return nil, fmt.Errorf("invalid wavelength range %g..%g nm over %d sets", min, max, sets)
		}
		atm.Wavelengths = atm.Wavelengths[:0]
		atm.SolarIrradianceAtTOA = atm.SolarIrradianceAtTOA[:0]
		for i := 0; i < sets; i++ {
			var wl, sun mgl32.Vec4
			for lane := 0; lane < 4; lane++ {
				j := 4*i + lane
				lambda := min + (max-min)*float32(j)/float32(4*sets-1)
				wl[lane] = lambda
				sun[lane] = SolarIrradiance(lambda)
			}
			atm.Wavelengths = append(atm.Wavelengths, wl)
			atm.SolarIrradianceAtTOA = append(atm.SolarIrradianceAtTOA, sun)
		}
	}

	if err := atm.Validate(); err != nil {
		return nil, err
	}
	return atm, nil
}
