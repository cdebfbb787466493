// Package glsource resolves, composes and generates the GLSL sources of the
// atmosphere precomputation pipeline. It is pure text manipulation: no GL
// context is required, which keeps the whole include/link-dependency logic
// unit testable.
package glsource

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Logical shader file names. Names ending in HeaderSuffix denote headers; a
// header has a same-stem ".frag" companion used for link-dependency
// discovery, except ConstantsHeader which never has one.
const (
	HeaderSuffix = ".h.glsl"

	ConstantsHeader = "const.h.glsl"
	DensitiesHeader = "densities.h.glsl"

	DensitiesShader          = "densities.frag"
	PhaseFunctionsShader     = "phase-functions.frag"
	TotalScatteringShader    = "total-scattering-coefficient.frag"
	TransmittanceShader      = "compute-transmittance.frag"
	DirectIrradianceShader   = "compute-direct-irradiance.frag"
	SingleScatteringShader   = "compute-single-scattering.frag"
	ScatteringDensityShader  = "compute-scattering-density.frag"
	IndirectIrradianceShader = "compute-indirect-irradiance.frag"
	MultipleScatteringShader = "compute-multiple-scattering.frag"
	CopyScatteringShader     = "copy-scattering-texture.frag"

	VertexShader   = "shader.vert"
	GeometryShader = "shader.geom"
)

// Error taxonomy of source composition. All are unrecoverable: they indicate
// a configuration or shader authoring defect.
var (
	ErrSourceMissing  = errors.New("shader source missing")
	ErrIncludeSyntax  = errors.New("syntax error in #include directive")
	ErrHeaderSuffix   = errors.New("included file must have header suffix")
	ErrRecursionLimit = errors.New("include recursion depth exceeded")
)

// virtualSources are regenerated between pipeline phases; their include sets
// never grow the link closure, so dependency scanning does not recurse into
// them.
var virtualSources = map[string]bool{
	DensitiesShader:       true,
	PhaseFunctionsShader:  true,
	TotalScatteringShader: true,
	TransmittanceShader:   true,
}

//go:embed shaders
var defaultSources embed.FS

// Library resolves logical shader names to source text. Resolution order:
// in-memory virtual override, then the configured shader directory, then the
// embedded defaults. The two dedicated header slots (constants, densities)
// are set by the pipeline once per wavelength-set pass.
type Library struct {
	dir     string
	virtual map[string]string

	constantsHeader string
	densitiesHeader string
}

// NewLibrary returns a library reading disk sources from dir. An empty dir
// restricts lookup to virtual overrides and the embedded defaults.
func NewLibrary(dir string) *Library {
	return &Library{dir: dir, virtual: make(map[string]string)}
}

// SetVirtual registers or replaces the in-memory override for name. The
// override always wins over disk and embedded sources.
func (lib *Library) SetVirtual(name, src string) { lib.virtual[name] = src }

// EraseVirtual removes the override for name so that subsequent resolution
// falls back to disk or embedded sources.
func (lib *Library) EraseVirtual(name string) { delete(lib.virtual, name) }

// SetConstantsHeader replaces the dedicated constants header text.
func (lib *Library) SetConstantsHeader(src string) { lib.constantsHeader = src }

// SetDensitiesHeader populates the dedicated densities declaration header.
// The first caller wins; the header is identical for the whole run so
// regenerating it on every call would be wasteful.
func (lib *Library) SetDensitiesHeader(src string) {
	if lib.densitiesHeader == "" {
		lib.densitiesHeader = src
	}
}

// Resolve returns the source text of the named shader file.
func (lib *Library) Resolve(name string) (string, error) {
	if src, ok := lib.virtual[name]; ok {
		return src, nil
	}
	return lib.ResolveDisk(name)
}

// ResolveDisk bypasses virtual overrides, always returning the pristine
// on-disk (or embedded) text. The pipeline uses it to re-read a shader before
// substituting a fresh set of macros into it.
func (lib *Library) ResolveDisk(name string) (string, error) {
	if lib.dir != "" {
		data, err := os.ReadFile(filepath.Join(lib.dir, name))
		if err == nil {
			return string(data), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("shader source %q: %v: %w", name, err, ErrSourceMissing)
		}
	}
	data, err := defaultSources.ReadFile("shaders/" + name)
	if err != nil {
		return "", fmt.Errorf("shader source %q: %w", name, ErrSourceMissing)
	}
	return string(data), nil
}

// resolveHeader resolves an include target, serving the two dedicated header
// slots from their library fields.
func (lib *Library) resolveHeader(name string) (string, error) {
	switch name {
	case ConstantsHeader:
		return lib.constantsHeader, nil
	case DensitiesHeader:
		return lib.densitiesHeader, nil
	}
	return lib.Resolve(name)
}
