package atmotex

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

func TestQuadratureWeights(t *testing.T) {
	cases := []struct {
		setIndex, setCount int
		want               mgl32.Vec4
	}{
		// A single quadruplet carries both sweep ends.
		{0, 1, mgl32.Vec4{0.5, 1, 1, 0.5}},
		{0, 2, mgl32.Vec4{0.5, 1, 1, 1}},
		{1, 2, mgl32.Vec4{1, 1, 1, 0.5}},
		{0, 4, mgl32.Vec4{0.5, 1, 1, 1}},
		{1, 4, mgl32.Vec4{1, 1, 1, 1}},
		{2, 4, mgl32.Vec4{1, 1, 1, 1}},
		{3, 4, mgl32.Vec4{1, 1, 1, 0.5}},
	}
	for _, tc := range cases {
		if got := QuadratureWeights(tc.setIndex, tc.setCount); got != tc.want {
			t.Errorf("QuadratureWeights(%d, %d) = %v, want %v", tc.setIndex, tc.setCount, got, tc.want)
		}
	}
}

func TestWavelengthToXYZW(t *testing.T) {
	// The photopic luminosity function peaks near 555 nm at 1.
	y := WavelengthToXYZW(555).Y()
	if math32.Abs(y-1) > 0.05 {
		t.Errorf("ybar(555) = %g, want about 1", y)
	}
	// The scotopic curve peaks near 507 nm.
	if w := WavelengthToXYZW(507).W(); math32.Abs(w-1) > 1e-6 {
		t.Errorf("V'(507) = %g, want 1", w)
	}
	// All components vanish far outside the visible range.
	far := WavelengthToXYZW(1200)
	for lane := 0; lane < 4; lane++ {
		if far[lane] > 1e-6 {
			t.Errorf("component %d at 1200 nm is %g, want about 0", lane, far[lane])
		}
	}
}

func TestRadianceToLuminance(t *testing.T) {
	atm := Default()
	setCount := len(atm.Wavelengths)
	dlambda := (atm.Wavelengths[setCount-1][3] - atm.Wavelengths[0][0]) /
		float32(atm.WavelengthCount()-1)

	for setIndex := 0; setIndex < setCount; setIndex++ {
		m := atm.RadianceToLuminance(setIndex)
		weights := QuadratureWeights(setIndex, setCount)
		for col := 0; col < 4; col++ {
			xyzw := WavelengthToXYZW(atm.Wavelengths[setIndex][col])
			for row := 0; row < 4; row++ {
				efficacy := float32(MaxLuminousEfficacy)
				if row == 3 {
					efficacy = MaxScotopicLuminousEfficacy
				}
				want := efficacy * xyzw[row] * weights[col] * dlambda
				got := m.At(row, col)
				if math32.Abs(got-want) > 1e-3*math32.Max(1, math32.Abs(want)) {
					t.Errorf("set %d entry (%d,%d) = %g, want %g", setIndex, row, col, got, want)
				}
			}
		}
	}
}
