// cmd/sysyc/commands/build.go
package commands

import (
	"fmt"
	"path/filepath"

	"sysyc/internal/build"
)

func projectRoot(args []string) (string, error) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	return filepath.Abs(root)
}

// BuildCommand handles "sysyc build [dir]".
func BuildCommand(args []string) error {
	root, err := projectRoot(args)
	if err != nil {
		return fmt.Errorf("resolving project path: %w", err)
	}
	builder, err := build.NewBuilder(root)
	if err != nil {
		return fmt.Errorf("initializing builder: %w", err)
	}
	defer builder.Close()
	return builder.Build()
}

// CleanCommand removes the build output directory of the project in
// args[0] (default "."). cmd/sysyc's main does not dispatch it.
func CleanCommand(args []string) error {
	root, err := projectRoot(args)
	if err != nil {
		return err
	}
	builder, err := build.NewBuilder(root)
	if err != nil {
		return err
	}
	defer builder.Close()
	return builder.Clean()
}
