package atmotex

import (
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestDefaultValidates(t *testing.T) {
	atm := Default()
	if err := atm.Validate(); err != nil {
		t.Fatal(err)
	}
	if got := atm.WavelengthCount(); got != 16 {
		t.Errorf("default atmosphere samples %d wavelengths, want 16", got)
	}
	if atm.Wavelengths[0][0] != 360 || atm.Wavelengths[3][3] != 830 {
		t.Errorf("default sweep is %g..%g nm, want 360..830",
			atm.Wavelengths[0][0], atm.Wavelengths[3][3])
	}
}

func TestScatteringTextureLayout(t *testing.T) {
	atm := Default()
	if atm.ScatTexWidth() != 32 {
		t.Errorf("width %d, want 32", atm.ScatTexWidth())
	}
	if atm.ScatTexHeight() != 8*16 {
		t.Errorf("height %d, want %d", atm.ScatTexHeight(), 8*16)
	}
	if atm.ScatTexDepth() != 32 {
		t.Errorf("depth %d, want 32", atm.ScatTexDepth())
	}
}

func TestValidateErrors(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Atmosphere)
		wantSub string
	}{
		{"no scatterers", func(a *Atmosphere) { a.Scatterers = nil }, "at least one scatterer"},
		{"duplicate agent", func(a *Atmosphere) {
			a.Absorbers = append(a.Absorbers, Absorber{
				Name:          "air",
				NumberDensity: "    return 1.;\n",
				CrossSection:  CrossSection{BaseValue: 1, BaseWavelength: 550},
			})
		}, "duplicate agent"},
		{"bad agent name", func(a *Atmosphere) { a.Scatterers[0].Name = "2air" }, "identifier"},
		{"bad name char", func(a *Atmosphere) { a.Scatterers[0].Name = "air-dry" }, "identifier"},
		{"wavelengths not increasing", func(a *Atmosphere) {
			a.Wavelengths[1] = mgl32.Vec4{100, 200, 300, 400}
		}, "strictly increase"},
		{"one order", func(a *Atmosphere) { a.ScatteringOrdersToCompute = 1 }, "orders"},
		{"irradiance mismatch", func(a *Atmosphere) {
			a.SolarIrradianceAtTOA = a.SolarIrradianceAtTOA[:2]
		}, "solar irradiance"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			atm := Default()
			tc.mutate(atm)
			err := atm.Validate()
			if err == nil {
				t.Fatal("validation passed, want error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Errorf("error %q does not mention %q", err, tc.wantSub)
			}
		})
	}
}

func TestSolarIrradiance(t *testing.T) {
	// 5778 K blackbody scaled to the solar constant: roughly 1.8 W/(m²·nm)
	// near its 500 nm peak.
	got := SolarIrradiance(500)
	if got < 1.5 || got > 2.2 {
		t.Errorf("SolarIrradiance(500) = %g, want about 1.8", got)
	}
	prev := SolarIrradiance(550)
	for _, wl := range []float32{600, 700, 830} {
		v := SolarIrradiance(wl)
		if v <= 0 || v >= prev {
			t.Errorf("SolarIrradiance(%g) = %g, want positive and decreasing past the peak", wl, v)
		}
		prev = v
	}
}
