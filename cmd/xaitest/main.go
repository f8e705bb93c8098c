package main

import (
	"errors"
	"fmt"
	"os"
)

const cliToolVersion = "xaitest 0.0.1-dev"

var errManifestNotFound = errors.New("harness.yml not found")

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		return runRun(nil)
	}

	switch args[0] {
	case "--help", "-h", "help":
		printUsage()
		return 0
	case "--version", "-V", "version":
		fmt.Fprintln(os.Stdout, cliToolVersion)
		return 0
	case "run":
		return runRun(args[1:])
	case "list":
		return runList(args[1:])
	case "packs":
		return runPacks(args[1:])
	default:
		// Bare flags select the default command.
		return runRun(args)
	}
}
