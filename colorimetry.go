package atmotex

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Maximum luminous efficacy in lm/W for photopic (XYZ) and scotopic (W)
// vision. Ref: Rapport BIPM-2019/05, Principles Governing Photometry, 2nd
// edition, sections 6.2 and 6.3.
const (
	MaxLuminousEfficacy         = 683.002
	MaxScotopicLuminousEfficacy = 1700.13
)

// piecewiseGaussian is the asymmetric lobe used by the Wyman-Sloan-Shirley
// fits of the CIE 1931 color matching functions.
func piecewiseGaussian(x, mu, sigma1, sigma2 float32) float32 {
	sigma := sigma1
	if x >= mu {
		sigma = sigma2
	}
	t := (x - mu) / sigma
	return math32.Exp(-0.5 * t * t)
}

// WavelengthToXYZW returns the CIE 1931 color matching functions x̄, ȳ, z̄
// and the scotopic luminous efficiency V′ evaluated at the given wavelength
// in nanometers. The photopic fits are from Wyman, Sloan & Shirley, "Simple
// Analytic Approximations to the CIE XYZ Color Matching Functions" (JCGT
// 2013); V′ uses a piecewise Gaussian of the CIE 1951 scotopic curve.
func WavelengthToXYZW(wavelengthNM float32) mgl32.Vec4 {
	l := wavelengthNM
	x := 1.056*piecewiseGaussian(l, 599.8, 37.9, 31.0) +
		0.362*piecewiseGaussian(l, 442.0, 16.0, 26.7) -
		0.065*piecewiseGaussian(l, 501.1, 20.4, 26.2)
	y := 0.821*piecewiseGaussian(l, 568.8, 46.9, 40.5) +
		0.286*piecewiseGaussian(l, 530.9, 16.3, 31.1)
	z := 1.217*piecewiseGaussian(l, 437.0, 11.8, 36.0) +
		0.681*piecewiseGaussian(l, 459.0, 26.0, 13.8)
	w := piecewiseGaussian(l, 507.0, 33.0, 44.0)
	return mgl32.Vec4{x, y, z, w}
}

// QuadratureWeights returns the trapezoidal spectral quadrature weights for
// the four wavelengths of one set. The half weights must land on the first
// and last wavelength of the whole sweep, not of each individual quadruplet.
func QuadratureWeights(setIndex, setCount int) mgl32.Vec4 {
	switch {
	case setCount == 1:
		return mgl32.Vec4{0.5, 1, 1, 0.5}
	case setIndex == 0:
		return mgl32.Vec4{0.5, 1, 1, 1}
	case setIndex == setCount-1:
		return mgl32.Vec4{1, 1, 1, 0.5}
	}
	return mgl32.Vec4{1, 1, 1, 1}
}

// RadianceToLuminance builds the matrix converting one wavelength set's
// spectral radiance samples into accumulated XYZW luminance, including the
// trapezoidal quadrature step for integrating over the whole sweep.
func (atm *Atmosphere) RadianceToLuminance(setIndex int) mgl32.Mat4 {
	setCount := len(atm.Wavelengths)
	wlCount := 4 * setCount
	first := atm.Wavelengths[0][0]
	last := atm.Wavelengths[setCount-1][3]
	dlambda := math32.Abs(last-first) / float32(wlCount-1)

	weights := QuadratureWeights(setIndex, setCount)
	quad := mgl32.Diag4(weights.Mul(dlambda))

	wl := atm.Wavelengths[setIndex]
	colorMatching := mgl32.Mat4FromCols(
		WavelengthToXYZW(wl[0]),
		WavelengthToXYZW(wl[1]),
		WavelengthToXYZW(wl[2]),
		WavelengthToXYZW(wl[3]),
	)
	efficacy := mgl32.Diag4(mgl32.Vec4{
		MaxLuminousEfficacy,
		MaxLuminousEfficacy,
		MaxLuminousEfficacy,
		MaxScotopicLuminousEfficacy,
	})
	return efficacy.Mul4(colorMatching).Mul4(quad)
}
