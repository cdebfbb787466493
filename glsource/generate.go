package glsource

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/atmotex/atmotex"
	"github.com/go-gl/mathgl/mgl32"
)

// Generator synthesizes the virtual shader sources that depend on the agent
// list and the active wavelength set. It owns the once-per-run densities
// declaration header.
type Generator struct {
	atm *atmotex.Atmosphere
	lib *Library

	densitiesOnce sync.Once
}

func NewGenerator(atm *atmotex.Atmosphere, lib *Library) *Generator {
	return &Generator{atm: atm, lib: lib}
}

const shaderHead = "#version 330\n" +
	"#extension GL_ARB_shading_language_420pack : require\n\n"

// ConstantsHeader renders the constants block shared by every shader of the
// run. The pipeline installs it in the library at the start of each
// wavelength-set pass.
func (g *Generator) ConstantsHeader() string {
	atm := g.atm
	var b strings.Builder
	fmt.Fprintf(&b, "const float earthRadius=%s; // must be in meters\n", glslFloat(atm.EarthRadius))
	fmt.Fprintf(&b, "const float atmosphereHeight=%s; // must be in meters\n", glslFloat(atm.AtmosphereHeight))
	b.WriteString(`
const vec3 earthCenter=vec3(0,0,-earthRadius);

const float dobsonUnit=2.687e20; // molecules/m^2
const float PI=3.1415926535897932;
const float km=1000.;
#define sqr(x) ((x)*(x))

`)
	fmt.Fprintf(&b, "const float sunAngularRadius=%s;\n", glslFloat(atm.SunAngularRadius))
	fmt.Fprintf(&b, "const vec4 scatteringTextureSize=vec4(%s,%s,%s,%s);\n",
		glslFloat(float32(atm.ScatteringTextureSize[0])), glslFloat(float32(atm.ScatteringTextureSize[1])),
		glslFloat(float32(atm.ScatteringTextureSize[2])), glslFloat(float32(atm.ScatteringTextureSize[3])))
	fmt.Fprintf(&b, "const vec2 irradianceTextureSize=vec2(%s,%s);\n",
		glslFloat(float32(atm.IrradianceTexW)), glslFloat(float32(atm.IrradianceTexH)))
	fmt.Fprintf(&b, "const vec2 transmittanceTextureSize=vec2(%s,%s);\n",
		glslFloat(float32(atm.TransmittanceTexW)), glslFloat(float32(atm.TransmittanceTexH)))
	fmt.Fprintf(&b, "const int radialIntegrationPoints=%d;\n", atm.RadialIntegrationPoints)
	fmt.Fprintf(&b, "const int numTransmittanceIntegrationPoints=%d;\n", atm.TransmittanceIntegrationPoints)
	return b.String()
}

var densityFunctionTemplate = mustTemplate(
	"float ${kind}NumberDensity_${name}(float altitude)\n{\n${body}}\n")

// densityFunctions emits one density function per agent with the agent's
// density expression spliced verbatim into a fixed signature, and populates
// the forward-declaration header on first use.
func (g *Generator) densityFunctions() string {
	var src, header strings.Builder
	emit := func(kind, name, body string) {
		fn, err := densityFunctionTemplate.render(map[string]string{
			"kind": kind, "name": name, "body": body,
		})
		if err != nil {
			panic(err) // placeholder set is fixed above
		}
		src.WriteString(fn)
		fmt.Fprintf(&header, "float %sNumberDensity_%s(float altitude);\n", kind, name)
	}
	for _, s := range g.atm.Scatterers {
		emit("scatterer", s.Name, s.NumberDensity)
	}
	for _, a := range g.atm.Absorbers {
		emit("absorber", a.Name, a.NumberDensity)
	}
	// The two functions below are defined per use site, not here.
	header.WriteString("vec4 scatteringCrossSection();\n" +
		"float scattererDensity(float altitude);\n")
	g.densitiesOnce.Do(func() {
		g.lib.SetDensitiesHeader(header.String())
	})
	return src.String()
}

var opticalDepthTemplate = mustTemplate(`
vec4 opticalDepthToAtmosphereBorder_${name}(float altitude, float cosZenithAngle, vec4 crossSection)
{
    float integrInterval=distanceToAtmosphereBorder(cosZenithAngle, altitude);

    float R=earthRadius;
    float r1=R+altitude;
    float l=integrInterval;
    float mu=cosZenithAngle;
    /* From law of cosines: r2^2=r1^2+l^2+2*r1*l*mu */
    float endAltitude=-R+sqrt(sqr(r1)+sqr(l)+2.*r1*l*mu);

    float dl=integrInterval/(numTransmittanceIntegrationPoints-1);

    /* Trapezoid rule on a uniform grid: f0/2+f1+f2+...+f(N-2)+f(N-1)/2. */
    float sum=(${kind}NumberDensity_${name}(altitude)+
               ${kind}NumberDensity_${name}(endAltitude))/2.;
    for(int n=1;n<numTransmittanceIntegrationPoints-1;++n)
    {
        float dist=n*dl;
        float currAlt=-R+sqrt(sqr(r1)+sqr(dist)+2.*r1*dist*mu);
        sum+=${kind}NumberDensity_${name}(currAlt);
    }
    return sum*dl*crossSection;
}
`)

// TransmittanceSrc assembles the transmittance computation source for one
// wavelength set: a per-agent optical depth integral plus a top-level
// function summing them. The result is only valid for view rays that do not
// intersect the ground; callers of the generated function must guarantee
// that.
func (g *Generator) TransmittanceSrc(wavelengths mgl32.Vec4) (string, error) {
	head := shaderHead +
		"#include \"" + ConstantsHeader + "\"\n" +
		"#include \"common-functions.h.glsl\"\n" +
		"#include \"texture-coordinates.h.glsl\"\n"

	var depthFuncs, compute strings.Builder
	compute.WriteString(`
// This assumes that ray doesn't intersect Earth
vec4 computeTransmittanceToAtmosphereBorder(float cosZenithAngle, float altitude)
{
    vec4 depth=vec4(0)
`)
	emit := func(kind, name string, cs mgl32.Vec4) error {
		fn, err := opticalDepthTemplate.render(map[string]string{"kind": kind, "name": name})
		if err != nil {
			return err
		}
		depthFuncs.WriteString(fn)
		fmt.Fprintf(&compute, "        +opticalDepthToAtmosphereBorder_%s(altitude,cosZenithAngle,%s)\n",
			name, glslVec4(cs))
		return nil
	}
	for _, s := range g.atm.Scatterers {
		if err := emit("scatterer", s.Name, s.CrossSection.At(wavelengths)); err != nil {
			return "", err
		}
	}
	for _, a := range g.atm.Absorbers {
		if err := emit("absorber", a.Name, a.CrossSection.At(wavelengths)); err != nil {
			return "", err
		}
	}
	compute.WriteString(`      ;
    return exp(-depth);
}

out vec4 transmittanceOutput;

void main()
{
    float cosZenithAngle, altitude;
    transmittanceTexVarsFromFragCoord(cosZenithAngle, altitude);
    transmittanceOutput=computeTransmittanceToAtmosphereBorder(cosZenithAngle, altitude);
}
`)
	return head + g.densityFunctions() + depthFuncs.String() + compute.String(), nil
}

// DensityFunctionsSrc assembles the generic densities source covering every
// agent, used by passes that sum over all scatterers.
func (g *Generator) DensityFunctionsSrc() string {
	return shaderHead + "#include \"" + ConstantsHeader + "\"\n" + g.densityFunctions()
}

// SingleScatteringDensitySrc restricts the densities source to one scatterer,
// defining the caller-supplied scattererDensity and scatteringCrossSection
// hooks for the single-scattering pass.
func (g *Generator) SingleScatteringDensitySrc(s atmotex.Scatterer, wavelengths mgl32.Vec4) string {
	return shaderHead + "#include \"" + ConstantsHeader + "\"\n" + g.densityFunctions() +
		"float scattererDensity(float alt) { return scattererNumberDensity_" + s.Name + "(alt); }\n" +
		"vec4 scatteringCrossSection() { return " + glslVec4(s.CrossSection.At(wavelengths)) + "; }\n"
}

var phaseFunctionTemplate = mustTemplate(
	"vec4 phaseFunction_${name}(float dotViewSun)\n{\n${body}}\n")

func (g *Generator) phaseFunctions() (string, error) {
	var b strings.Builder
	for _, s := range g.atm.Scatterers {
		fn, err := phaseFunctionTemplate.render(map[string]string{
			"name": s.Name, "body": s.PhaseFunction,
		})
		if err != nil {
			return "", err
		}
		b.WriteString(fn)
	}
	return b.String(), nil
}

// PhaseFunctionsSrc emits every scatterer's phase function with
// currentPhaseFunction dispatching to the named one, or to an obviously
// broken stub for the ground-only pass where no phase function applies but
// the linker still needs the symbol.
func (g *Generator) PhaseFunctionsSrc(currentScatterer string) (string, error) {
	fns, err := g.phaseFunctions()
	if err != nil {
		return "", err
	}
	current := "vec4 currentPhaseFunction(float dotViewSun) { return vec4(3.4028235e38); }\n"
	if currentScatterer != "" {
		current = "vec4 currentPhaseFunction(float dotViewSun) { return phaseFunction_" +
			currentScatterer + "(dotViewSun); }\n"
	}
	return shaderHead + "#include \"" + ConstantsHeader + "\"\n" + fns + current, nil
}

// TotalScatteringSrc emits the sum of every scatterer's density times its
// cross section for the active wavelength set.
func (g *Generator) TotalScatteringSrc(wavelengths mgl32.Vec4) string {
	var b strings.Builder
	b.WriteString(shaderHead +
		"#include \"" + ConstantsHeader + "\"\n" +
		"#include \"" + DensitiesHeader + "\"\n\n" +
		"vec4 totalScatteringCoefficient(float altitude)\n{\n    return vec4(0)\n")
	for _, s := range g.atm.Scatterers {
		fmt.Fprintf(&b, "        +scattererNumberDensity_%s(altitude)*%s\n",
			s.Name, glslVec4(s.CrossSection.At(wavelengths)))
	}
	b.WriteString("      ;\n}\n")
	return b.String()
}

func glslFloat(v float32) string {
	s := strconv.FormatFloat(float64(v), 'g', -1, 32)
	if !strings.ContainsAny(s, ".e") {
		s += "."
	}
	return s
}

func glslVec4(v mgl32.Vec4) string {
	return "vec4(" + glslFloat(v[0]) + "," + glslFloat(v[1]) + "," +
		glslFloat(v[2]) + "," + glslFloat(v[3]) + ")"
}
