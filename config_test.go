package atmotex

import (
	"testing"
)

func TestParseConfigEmpty(t *testing.T) {
	atm, err := ParseConfig([]byte(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	def := Default()
	if atm.EarthRadius != def.EarthRadius {
		t.Errorf("earth radius %g, want default %g", atm.EarthRadius, def.EarthRadius)
	}
	if len(atm.Scatterers) != len(def.Scatterers) || len(atm.Wavelengths) != len(def.Wavelengths) {
		t.Error("empty config must keep the stock agents and wavelengths")
	}
}

func TestParseConfigOverrides(t *testing.T) {
	atm, err := ParseConfig([]byte(`{
		"earth_radius_m": 3389500,
		"atmosphere_height_m": 80000,
		"scattering_orders": 6,
		"wavelength_min_nm": 400,
		"wavelength_max_nm": 700,
		"wavelength_sets": 2,
		"scattering_texture_size": [16, 4, 8, 16],
		"save_result_as_radiance": true,
		"scatterers": [{
			"name": "co2",
			"number_density": "    return 2.1e23*exp(-altitude/11100.);\n",
			"phase_function": "    return vec4(3./(16.*PI)*(1.+sqr(dotViewSun)));\n",
			"cross_section": {"base_value_m2": 1.2e-30, "base_wavelength_nm": 550, "exponent": -4}
		}]
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if atm.EarthRadius != 3389500 {
		t.Errorf("earth radius %g, want 3389500", atm.EarthRadius)
	}
	if atm.ScatteringOrdersToCompute != 6 {
		t.Errorf("orders %d, want 6", atm.ScatteringOrdersToCompute)
	}
	if len(atm.Wavelengths) != 2 || len(atm.SolarIrradianceAtTOA) != 2 {
		t.Fatalf("got %d wavelength sets, want 2", len(atm.Wavelengths))
	}
	if atm.Wavelengths[0][0] != 400 || atm.Wavelengths[1][3] != 700 {
		t.Errorf("sweep is %g..%g nm, want 400..700",
			atm.Wavelengths[0][0], atm.Wavelengths[1][3])
	}
	if atm.ScatteringTextureSize != [4]int{16, 4, 8, 16} {
		t.Errorf("scattering texture size %v", atm.ScatteringTextureSize)
	}
	if !atm.SaveResultAsRadiance {
		t.Error("save_result_as_radiance not honored")
	}
	if len(atm.Scatterers) != 1 || atm.Scatterers[0].Name != "co2" {
		t.Errorf("scatterers not replaced: %+v", atm.Scatterers)
	}
	if len(atm.Absorbers) != 1 {
		t.Error("absent absorbers list must keep the stock absorbers")
	}
}

func TestParseConfigErrors(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"bad json", `{`},
		{"no scatterers", `{"scatterers": []}`},
		{"inverted wavelengths", `{"wavelength_min_nm": 700, "wavelength_max_nm": 400}`},
		{"zero sets", `{"wavelength_sets": 0}`},
		{"bad agent", `{"scatterers": [{"name": "2bad", "number_density": "x", "phase_function": "x",
			"cross_section": {"base_value_m2": 1, "base_wavelength_nm": 550}}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseConfig([]byte(tc.data)); err == nil {
				t.Error("parse succeeded, want error")
			}
		})
	}
}
