package main

import (
	"flag"
	"io"
	"os"
	"runtime"

	"github.com/golang/glog"
	"github.com/pkg/profile"

	"github.com/okmt/fnes/nes"
	"github.com/okmt/fnes/ui"
)

var (
	path       = flag.String("path", "./rom/sample1.nes", "path to NES ROM file")
	width      = flag.Int("width", 256*4, "window width")
	height     = flag.Int("height", 240*4, "window height")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to the directory")
	debug      = flag.Bool("debug", false, "run as debug mode")
)

// readFile reads file as bytes
func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func init() {
	// The UI must run on the main thread.
	runtime.LockOSThread()
}

func main() {
	flag.Parse()
	if *cpuprofile != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(*cpuprofile)).Stop()
	}
	buf, err := readFile(*path)
	if err != nil {
		glog.Fatalln("Failed to read: " + *path)
	}
	console, err := nes.NewConsole(buf, *debug)
	if err != nil {
		glog.Fatalln("Failed to initiate Console: ", err)
	}
	ui.Start(console, *width, *height)
}
