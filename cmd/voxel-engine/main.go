package main

import (
	"flag"
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/xlab/closer"

	"voxel-engine/internal/app"
	"voxel-engine/internal/config"
	"voxel-engine/internal/engine"
	"voxel-engine/internal/logging"
	"voxel-engine/internal/meshing"
	"voxel-engine/internal/scene"
	"voxel-engine/internal/teardown"
	"voxel-engine/internal/vulkan"
	"voxel-engine/internal/window"
)

func init() {
	runtime.LockOSThread()
}

var (
	raycast    = flag.Bool("raycast", false, "render with the compute ray caster instead of the mesh rasterizer")
	voxels     = flag.Int("voxels", config.GetVoxelMassCount(), "number of random voxels in the generated scene")
	shaders    = flag.String("shaders", config.GetShaderDir(), "directory holding the compiled SPIR-V shaders")
	validation = flag.Bool("validation", false, "enable Vulkan validation layers")
	fpsLimit   = flag.Int("fps", config.GetFPSLimit(), "frame cap, 0 for uncapped")
	debug      = flag.Bool("debug", false, "enable debug logging")
)

func main() {
	defer closer.Close()
	flag.Parse()

	config.SetRaycast(*raycast)
	config.SetVoxelMassCount(*voxels)
	config.SetShaderDir(*shaders)
	config.SetFPSLimit(*fpsLimit)

	log := logging.New("voxel-engine", *debug)
	resources := teardown.NewStack("main")
	// signal exit only; the normal path releases below on the main thread,
	// leaving the bound release with an empty stack
	closer.Bind(resources.Release)

	err := run(log, resources)
	resources.Release()
	if err != nil {
		closer.Fatalln(err)
	}
}

// run builds everything onto resources, which releases in reverse order
func run(log logging.Logger, resources *teardown.Stack) error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("glfw init: %w", err)
	}
	resources.PushFunc(glfw.Terminate)

	win, err := window.New(log)
	if err != nil {
		return err
	}
	resources.PushFunc(win.Destroy)

	mode := engine.ModeRaster
	if config.GetRaycast() {
		mode = engine.ModeRaycast
	}

	backend, err := vulkan.New(win.GLFW(), vulkan.Options{
		Mode:       mode,
		ShaderDir:  config.GetShaderDir(),
		Validation: *validation,
		Logger:     log,
	})
	if err != nil {
		return err
	}
	resources.PushFunc(backend.Destroy)

	pool := meshing.NewWorkerPool(config.MeshWorkers)
	resources.PushFunc(pool.Shutdown)

	s := scene.Build(scene.DefaultPopulator)
	log.Infof("scene %s: %d voxels", s.ID(), s.Len())

	eng, err := engine.New(backend, win, s, pool, engine.Options{Mode: mode, Logger: log})
	if err != nil {
		return err
	}
	resources.PushFunc(eng.Destroy)

	return app.New(win, eng, s, log).Run()
}
