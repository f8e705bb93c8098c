package main

import (
	"fmt"
	"os"
)

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  xaitest [run] [--count N] [--template T] [--analyzer PATH] [--flag F ...]")
	fmt.Fprintln(os.Stderr, "          [--manifest FILE] [--skip-build] [--format doc|json]")
	fmt.Fprintln(os.Stderr, "  xaitest list [--count N] [--template T] [--format doc|json]")
	fmt.Fprintln(os.Stderr, "  xaitest packs install [pack ...]")
	fmt.Fprintln(os.Stderr, "  xaitest packs update [pack ...]")
	fmt.Fprintln(os.Stderr, "  xaitest version")
}
