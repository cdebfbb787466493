//go:build !tinygo && cgo

// Command atmotex precomputes atmospheric scattering textures on the GPU.
//
// Exit codes: 0 on success, 1 on a configuration or GL error, 111 on an
// unexpected internal failure.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/atmotex/atmotex"
	"github.com/atmotex/atmotex/glpipeline"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/soypat/glgl/v4.6-core/glgl"
)

var (
	configPath = flag.String("config", "", "JSON atmosphere description; built-in defaults when empty")
	outDir     = flag.String("out-dir", ".", "directory the output textures are written to")
	shaderDir  = flag.String("shader-dir", "", "directory overriding the embedded shaders")
	radiance   = flag.Bool("radiance", false, "save spectral radiance per wavelength set instead of XYZW luminance")

	saveIrradiance  = flag.Bool("save-irradiance", false, "also save ground irradiance textures")
	saveScatDensity = flag.Bool("save-scattering-density", false, "also save per-order scattering density textures")
	saveDelta       = flag.Bool("save-delta-scattering", false, "also save per-order delta scattering textures")
	saveAccum       = flag.Bool("save-accumulated-scattering", false, "also save the partially accumulated scattering texture after each wavelength set")
)

func init() {
	runtime.LockOSThread() // GL context affinity.
}

func main() {
	flag.Parse()
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintln(os.Stderr, "unexpected error:", r)
			os.Exit(111)
		}
	}()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	atm := atmotex.Default()
	if *configPath != "" {
		var err error
		atm, err = atmotex.LoadConfig(*configPath)
		if err != nil {
			return err
		}
	}
	atm.TextureOutputDir = *outDir
	atm.SaveResultAsRadiance = atm.SaveResultAsRadiance || *radiance
	atm.SaveGroundIrradiance = atm.SaveGroundIrradiance || *saveIrradiance
	atm.SaveScatteringDensity = atm.SaveScatteringDensity || *saveScatDensity
	atm.SaveDeltaScattering = atm.SaveDeltaScattering || *saveDelta
	atm.SaveAccumulatedScattering = atm.SaveAccumulatedScattering || *saveAccum
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	_, terminate, err := glgl.InitWithCurrentWindow33(glgl.WindowConfig{
		Title:   "atmotex",
		Version: [2]int{3, 3},
		Width:   1,
		Height:  1,
	})
	if err != nil {
		return fmt.Errorf("failed to start GLFW: %w", err)
	}
	defer terminate()
	// Batch tool: no reason to flash a 1x1 window at the user.
	if win := glfw.GetCurrentContext(); win != nil {
		win.Hide()
	}

	logger := log.New(os.Stderr, "", 0)
	pipeline, err := glpipeline.New(atm, *shaderDir, logger)
	if err != nil {
		return err
	}
	defer pipeline.Release()
	return pipeline.Run()
}
