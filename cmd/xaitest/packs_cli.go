package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"xai/harness-go/pkg/driver"
)

const cacheDirName = ".xaitest"

func runPacks(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 1
	}
	switch args[0] {
	case "install", "update":
		return runPacksInstall(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "xaitest packs: unknown subcommand '%s'\n", args[0])
		return 1
	}
}

func runPacksInstall(names []string) int {
	manifest, err := loadManifestFrom(".")
	if err != nil {
		if errors.Is(err, errManifestNotFound) {
			fmt.Fprintln(os.Stderr, "xaitest packs: harness.yml not found")
			return 1
		}
		fmt.Fprintf(os.Stderr, "xaitest packs: %v\n", err)
		return 1
	}
	if len(manifest.Packs) == 0 {
		fmt.Fprintln(os.Stdout, "xaitest packs: no packs declared")
		return 0
	}

	base := filepath.Dir(manifest.Path)
	lockPath := filepath.Join(base, driver.LockFileName)
	lock, err := driver.LoadLockfile(lockPath)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "xaitest packs: %v\n", err)
			return 1
		}
		lock = driver.NewLockfile(manifest.Name, cliToolVersion)
	}

	installer := newPackInstaller(manifest, filepath.Join(base, cacheDirName))
	changed, logs, err := installer.Install(lock, names)
	for _, line := range logs {
		fmt.Fprintln(os.Stdout, line)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "xaitest packs: %v\n", err)
		return 1
	}

	if changed {
		if err := driver.WriteLockfile(lock, lockPath); err != nil {
			fmt.Fprintf(os.Stderr, "xaitest packs: %v\n", err)
			return 1
		}
		fmt.Fprintf(os.Stdout, "xaitest packs: wrote %s\n", driver.LockFileName)
	} else {
		fmt.Fprintln(os.Stdout, "xaitest packs: already up to date")
	}
	return 0
}
