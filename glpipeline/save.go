//go:build !tinygo && cgo

package glpipeline

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gl/gl/all-core/gl"
	"github.com/soypat/glgl/v4.6-core/glgl"
)

// saveTexture reads tex back from the GPU and writes it to the output
// directory as little-endian float32 RGBA data prefixed with its dimensions:
// a uint32 rank, rank uint32 extents, then the texels.
func (p *Pipeline) saveTexture(target uint32, tex uint32, description, filename string, dims ...int) error {
	path := filepath.Join(p.atm.TextureOutputDir, filename)
	p.logger.Printf("Saving %s to %s", description, path)

	count := 4
	for _, d := range dims {
		count *= d
	}
	pixels := make([]float32, count)
	gl.BindTexture(target, tex)
	gl.GetTexImage(target, 0, gl.RGBA, gl.FLOAT, gl.Ptr(pixels))
	if err := glgl.Err(); err != nil {
		return fmt.Errorf("reading back %s: %w", description, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, uint32(len(dims))); err != nil {
		f.Close()
		return err
	}
	for _, d := range dims {
		if err := binary.Write(w, binary.LittleEndian, uint32(d)); err != nil {
			f.Close()
			return err
		}
	}
	if err := binary.Write(w, binary.LittleEndian, pixels); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (p *Pipeline) saveTexture3D(tex uint32, description, filename string) error {
	return p.saveTexture(gl.TEXTURE_3D, tex, description, filename,
		p.atm.ScatTexWidth(), p.atm.ScatTexHeight(), p.atm.ScatTexDepth())
}

// saveResults writes the per-set outputs after all orders are accumulated. In
// radiance mode the scattering accumulator holds one wavelength set and is
// saved every pass; in luminance mode it accumulates across sets and only the
// final state is saved.
func (p *Pipeline) saveResults(setIndex int) error {
	atm := p.atm
	if atm.SaveGroundIrradiance {
		if err := p.saveTexture(gl.TEXTURE_2D, p.tex.irradiance, "ground irradiance texture",
			fmt.Sprintf("irradiance-wlset%d.dat", setIndex),
			atm.IrradianceTexW, atm.IrradianceTexH); err != nil {
			return err
		}
	}
	last := setIndex == len(atm.Wavelengths)-1
	switch {
	case atm.SaveResultAsRadiance:
		if err := p.saveTexture3D(p.tex.scattering, "multiple scattering texture",
			fmt.Sprintf("scattering-wlset%d.dat", setIndex)); err != nil {
			return err
		}
	case last:
		if err := p.saveTexture3D(p.tex.scattering, "scattering luminance texture",
			"scattering-xyzw.dat"); err != nil {
			return err
		}
	default:
		if atm.SaveAccumulatedScattering {
			if err := p.saveTexture3D(p.tex.scattering, "partially accumulated scattering texture",
				fmt.Sprintf("scattering-accum-wlset%d.dat", setIndex)); err != nil {
				return err
			}
		}
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return nil
}
