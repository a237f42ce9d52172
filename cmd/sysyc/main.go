// cmd/sysyc/main.go
package main

import (
	"fmt"
	"log"
	"os"

	"sysyc/cmd/sysyc/commands"
)

const version = "1.0.0"

// commandAliases mirrors the teacher driver's single-letter shortcuts.
var commandAliases = map[string]string{
	"b": "build",
	"w": "watch",
	"t": "test",
	"c": "compile",
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		os.Exit(1)
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}

	if cmd == "--help" || cmd == "-h" || cmd == "help" {
		showUsage()
		return
	}
	if cmd == "--version" || cmd == "-v" || cmd == "version" {
		fmt.Println("sysyc " + version)
		return
	}

	// Bare "sysyc -koopa/-riscv/-perf INPUT -o OUTPUT" aliases to compile.
	if cmd == "-koopa" || cmd == "-riscv" || cmd == "-perf" {
		if err := commands.CompileCommand(args); err != nil {
			log.Fatalf("Error: %v", err)
		}
		return
	}

	switch cmd {
	case "compile":
		if err := commands.CompileCommand(args[1:]); err != nil {
			log.Fatalf("Error: %v", err)
		}
	case "build":
		if err := commands.BuildCommand(args[1:]); err != nil {
			log.Fatalf("Error: %v", err)
		}
	case "watch":
		if err := commands.WatchCommand(args[1:]); err != nil {
			log.Fatalf("Error: %v", err)
		}
	case "test":
		if err := commands.TestCommand(args[1:]); err != nil {
			log.Fatalf("Error: %v", err)
		}
	default:
		fmt.Fprintf(os.Stderr, "sysyc: unknown command %q\n", cmd)
		showUsage()
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`sysyc - SysY to RISC-V32 compiler

Usage:
  sysyc compile MODE INPUT -o OUTPUT [-v]   compile one file (MODE: -koopa | -riscv | -perf)
  sysyc MODE INPUT -o OUTPUT [-v]           shorthand for "compile"
  sysyc build [dir]                         build the project in dir (default .)
  sysyc watch [dir]                         rebuild on change, serve diagnostics over websocket
  sysyc test [dir]                          run the corpus under dir/tests

  -h, --help       show this message
  -v, --version    show the version`)
}
