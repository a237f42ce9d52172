package main

import (
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

// TestMain lets testscript re-exec this binary as "sysyc" inside each
// script, instead of requiring a separate `go build` step.
func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"sysyc": run,
	}))
}

// run is main's body factored out so TestMain can invoke it in-process
// without calling os.Exit itself.
func run() int {
	main()
	return 0
}

func TestCLI(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata/script",
	})
}
