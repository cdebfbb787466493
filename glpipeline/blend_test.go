package glpipeline

import "testing"

func TestIrradianceBlendPolicy(t *testing.T) {
	cases := []struct {
		scattererIndex         int
		blendDelta, blendTotal bool
	}{
		{0, false, true},
		{1, true, true},
		{5, true, true},
	}
	for _, tc := range cases {
		blendDelta, blendTotal := IrradianceBlendPolicy(tc.scattererIndex)
		if blendDelta != tc.blendDelta || blendTotal != tc.blendTotal {
			t.Errorf("IrradianceBlendPolicy(%d) = (%t, %t), want (%t, %t)",
				tc.scattererIndex, blendDelta, blendTotal, tc.blendDelta, tc.blendTotal)
		}
	}
}

func TestIndirectIrradianceDumpName(t *testing.T) {
	cases := []struct {
		radianceOrder, setIndex int
		want                    string
	}{
		// Irradiance from radiance scattered n times feeds order n+1; the
		// direct ground irradiance dump holds the order-1 name.
		{1, 0, "irradiance-delta-order2-wlset0.dat"},
		{2, 0, "irradiance-delta-order3-wlset0.dat"},
		{3, 2, "irradiance-delta-order4-wlset2.dat"},
	}
	for _, tc := range cases {
		if got := indirectIrradianceDumpName(tc.radianceOrder, tc.setIndex); got != tc.want {
			t.Errorf("indirectIrradianceDumpName(%d, %d) = %q, want %q",
				tc.radianceOrder, tc.setIndex, got, tc.want)
		}
	}
}

func TestAccumulateScatteringBlends(t *testing.T) {
	cases := []struct {
		order, setIndex int
		radianceMode    bool
		want            bool
	}{
		// First order accumulated into a fresh texture.
		{2, 0, false, false},
		{2, 0, true, false},
		// Higher orders always add onto the lower ones.
		{3, 0, false, true},
		{4, 0, true, true},
		// Luminance accumulates across wavelength sets, radiance restarts.
		{2, 1, false, true},
		{2, 1, true, false},
		{2, 3, true, false},
		{3, 3, true, true},
	}
	for _, tc := range cases {
		if got := AccumulateScatteringBlends(tc.order, tc.setIndex, tc.radianceMode); got != tc.want {
			t.Errorf("AccumulateScatteringBlends(%d, %d, %t) = %t, want %t",
				tc.order, tc.setIndex, tc.radianceMode, got, tc.want)
		}
	}
}
