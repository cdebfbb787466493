package glpipeline

import "fmt"

// Blending decisions are kept as pure functions so the accumulation rules can
// be tested without a GL context; render.go applies them to GL state.

// IrradianceBlendPolicy returns the per-attachment blend state of an indirect
// irradiance pass. The delta output (attachment 0) holds the contribution of a
// single scattering order, accumulated scatterer by scatterer, so it
// overwrites for the first scatterer and adds for the rest. The total output
// (attachment 1) always accumulates.
func IrradianceBlendPolicy(scattererIndex int) (blendDelta, blendTotal bool) {
	return scattererIndex > 0, true
}

// AccumulateScatteringBlends reports whether the spectral accumulation pass
// adds onto the accumulator texture instead of overwriting it. Orders beyond 2
// add to the lower orders already present; in luminance mode every wavelength
// set after the first also adds onto the earlier sets.
func AccumulateScatteringBlends(order, setIndex int, radianceMode bool) bool {
	return order > 2 || (setIndex > 0 && !radianceMode)
}

// indirectIrradianceDumpName names a saved delta irradiance texture by the
// scattering order it feeds, one above the order of the radiance it was
// integrated from. Direct ground irradiance is order 1.
func indirectIrradianceDumpName(radianceOrder, setIndex int) string {
	return fmt.Sprintf("irradiance-delta-order%d-wlset%d.dat", radianceOrder+1, setIndex)
}
