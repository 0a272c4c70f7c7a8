package ui

import (
	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/golang/glog"

	"github.com/okmt/fnes/nes"
)

func mainLoop(window *glfw.Window, console nes.Console) {
	for !window.ShouldClose() {
		// RunFrame emulates until the PPU completes a frame, which takes
		// (almost) 1/60 second on the console clock. VSync paces us.
		frame, err := console.RunFrame()
		if err != nil {
			glog.Fatalln(err)
		}
		updateTexture(frame)
		window.SwapBuffers()
		glfw.PollEvents()
		console.SetButtons(getKeys(window))
	}
}

// Start is the main entrypoint, runs the console inside a GLFW window.
func Start(console nes.Console, width int, height int) {
	err := glfw.Init()
	if err != nil {
		glog.Fatalln(err)
	}
	defer glfw.Terminate()
	glfw.WindowHint(glfw.ContextVersionMajor, 3)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	window, err := glfw.CreateWindow(width, height, "FNES", nil, nil)
	if err != nil {
		glog.Fatalln(err)
	}
	window.MakeContextCurrent()
	glfw.SwapInterval(1)
	if err := gl.Init(); err != nil {
		glog.Fatalln(err)
	}
	program, err := newProgram()
	if err != nil {
		glog.Fatalln(err)
	}
	gl.UseProgram(program)
	mainLoop(window, console)
}
