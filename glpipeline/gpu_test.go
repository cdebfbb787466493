//go:build !tinygo && cgo

package glpipeline

import (
	"bytes"
	"encoding/binary"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/atmotex/atmotex"
	"github.com/chewxy/math32"
	"github.com/soypat/glgl/v4.6-core/glgl"
)

// GL requires the context thread to be locked before any window is created.
func TestMain(m *testing.M) {
	runtime.LockOSThread()
	os.Exit(m.Run())
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Logf("%s", p)
	return len(p), nil
}

func TestPipelineEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("GPU test skipped in short mode")
	}
	_, terminate, err := glgl.InitWithCurrentWindow33(glgl.WindowConfig{
		Title:   "atmotex-test",
		Version: [2]int{3, 3},
		Width:   1,
		Height:  1,
	})
	if err != nil {
		t.Skipf("no GL context available: %v", err)
	}
	defer terminate()

	atm := atmotex.Default()
	atm.Wavelengths = atm.Wavelengths[:1]
	atm.SolarIrradianceAtTOA = atm.SolarIrradianceAtTOA[:1]
	atm.TransmittanceTexW, atm.TransmittanceTexH = 64, 16
	atm.IrradianceTexW, atm.IrradianceTexH = 16, 4
	atm.ScatteringTextureSize = [4]int{8, 2, 4, 4}
	atm.TransmittanceIntegrationPoints = 50
	atm.RadialIntegrationPoints = 10
	// Order 3 exercises the generic density path with its ground-reflection
	// term on top of the interleaved orders 1 and 2.
	atm.ScatteringOrdersToCompute = 3
	atm.SaveResultAsRadiance = true
	atm.TextureOutputDir = t.TempDir()

	p, err := New(atm, "", log.New(testWriter{t}, "", 0))
	if err != nil {
		t.Fatal(err)
	}
	defer p.Release()
	if err := p.Run(); err != nil {
		t.Fatal(err)
	}

	dims, texels := readDump(t, filepath.Join(atm.TextureOutputDir, "transmittance-wlset0.dat"))
	if len(dims) != 2 || dims[0] != 64 || dims[1] != 16 {
		t.Fatalf("transmittance dump dimensions %v, want [64 16]", dims)
	}
	for i, v := range texels {
		if math32.IsNaN(v) || math32.IsInf(v, 0) || v < 0 || v > 1.0001 {
			t.Fatalf("transmittance texel %d out of range: %g", i, v)
		}
	}
	// Top-right texel: top of atmosphere looking straight up, no air along
	// the ray.
	last := (16*64 - 1) * 4
	for lane := 0; lane < 4; lane++ {
		if v := texels[last+lane]; math32.Abs(v-1) > 1e-3 {
			t.Errorf("transmittance at TOA looking up, lane %d: %g, want 1", lane, v)
		}
	}
	// At fixed altitude, transmittance must not decrease as the view
	// direction rises towards the zenith.
	for y := 0; y < 16; y++ {
		for x := 1; x < 64; x++ {
			prev := texels[(y*64+x-1)*4]
			cur := texels[(y*64+x)*4]
			if cur < prev-1e-3 {
				t.Fatalf("transmittance not monotone in cos(zenith) at row %d col %d: %g -> %g",
					y, x, prev, cur)
			}
		}
	}

	dims, texels = readDump(t, filepath.Join(atm.TextureOutputDir, "scattering-wlset0.dat"))
	if len(dims) != 3 || dims[0] != 8 || dims[1] != 8 || dims[2] != 4 {
		t.Fatalf("scattering dump dimensions %v, want [8 8 4]", dims)
	}
	var maxRadiance float32
	for i, v := range texels {
		if math32.IsNaN(v) || math32.IsInf(v, 0) || v < -1e-6 {
			t.Fatalf("scattering texel %d invalid: %g", i, v)
		}
		maxRadiance = math32.Max(maxRadiance, v)
	}
	if maxRadiance == 0 {
		t.Error("scattering texture is all zero")
	}
}

// readDump parses the dimension-prefixed float32 dump format.
func readDump(t *testing.T, path string) ([]uint32, []float32) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	r := bytes.NewReader(data)
	var rank uint32
	if err := binary.Read(r, binary.LittleEndian, &rank); err != nil {
		t.Fatal(err)
	}
	dims := make([]uint32, rank)
	if err := binary.Read(r, binary.LittleEndian, dims); err != nil {
		t.Fatal(err)
	}
	count := uint32(4)
	for _, d := range dims {
		count *= d
	}
	texels := make([]float32, count)
	if err := binary.Read(r, binary.LittleEndian, texels); err != nil {
		t.Fatal(err)
	}
	return dims, texels
}
