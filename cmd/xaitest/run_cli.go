package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"xai/harness-go/pkg/driver"
	"xai/harness-go/pkg/harness"
)

type outputFormat string

const (
	formatDoc  outputFormat = "doc"
	formatJSON outputFormat = "json"
)

type runCliConfig struct {
	ManifestPath string
	Count        int
	Template     string
	Analyzer     string
	Flags        []string
	SkipBuild    bool
	Format       outputFormat
}

func runRun(args []string) int {
	config, err := parseRunArguments(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "xaitest run: %v\n", err)
		return 1
	}

	manifest, err := resolveManifest(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "xaitest run: %v\n", err)
		return 1
	}

	runner := &harness.Runner{
		Plan:  planFromConfig(manifest, config),
		Build: manifest.Build.Command,
		Dir:   manifestDir(manifest),
		Quiet: config.Format == formatJSON,
	}
	if config.SkipBuild {
		runner.Build = nil
	}
	if config.Format == formatJSON {
		// Stdout carries only the outcome records; build output joins the
		// diagnostics on stderr.
		runner.Stdout = os.Stderr
	}

	if err := runner.BuildAnalyzer(); err != nil {
		fmt.Fprintf(os.Stderr, "xaitest run: %v\n", err)
		return 1
	}

	outcomes := runner.Run()

	if config.Format == formatJSON {
		for _, outcome := range outcomes {
			payload, err := json.Marshal(outcome)
			if err != nil {
				fmt.Fprintf(os.Stderr, "xaitest run: %v\n", err)
				return 1
			}
			fmt.Fprintln(os.Stdout, string(payload))
		}
	}

	// Individual analyzer outcomes never fail the harness; the operator reads
	// the displayed output and judges it themselves.
	return 0
}

func runList(args []string) int {
	config, err := parseRunArguments(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "xaitest list: %v\n", err)
		return 1
	}

	manifest, err := resolveManifest(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "xaitest list: %v\n", err)
		return 1
	}

	plan := planFromConfig(manifest, config)
	invocations := plan.Invocations()

	if config.Format == formatJSON {
		payload, err := json.MarshalIndent(invocations, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "xaitest list: %v\n", err)
			return 1
		}
		fmt.Fprintln(os.Stdout, string(payload))
		return 0
	}

	for _, invocation := range invocations {
		parts := []string{
			fmt.Sprintf("Test %d", invocation.Index),
			invocation.Path,
			plan.Analyzer + " " + strings.Join(invocation.Args, " "),
		}
		fmt.Fprintln(os.Stdout, strings.Join(parts, " | "))
	}
	return 0
}

func parseRunArguments(args []string) (runCliConfig, error) {
	config := runCliConfig{Format: formatDoc}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--manifest":
			val, err := expectFlagValue(arg, nextArg(args, &i))
			if err != nil {
				return runCliConfig{}, err
			}
			config.ManifestPath = val
		case "--count":
			val, err := expectFlagValue(arg, nextArg(args, &i))
			if err != nil {
				return runCliConfig{}, err
			}
			count, err := parsePositiveInt(val, arg, 1)
			if err != nil {
				return runCliConfig{}, err
			}
			config.Count = count
		case "--template":
			val, err := expectFlagValue(arg, nextArg(args, &i))
			if err != nil {
				return runCliConfig{}, err
			}
			config.Template = val
		case "--analyzer":
			val, err := expectFlagValue(arg, nextArg(args, &i))
			if err != nil {
				return runCliConfig{}, err
			}
			config.Analyzer = val
		case "--flag":
			// Analyzer flags themselves start with a dash, so only an
			// absent value is an error here.
			val := nextArg(args, &i)
			if val == "" {
				return runCliConfig{}, fmt.Errorf("%s expects a value", arg)
			}
			config.Flags = append(config.Flags, val)
		case "--skip-build":
			config.SkipBuild = true
		case "--format":
			val, err := expectFlagValue(arg, nextArg(args, &i))
			if err != nil {
				return runCliConfig{}, err
			}
			parsed, err := parseOutputFormat(val)
			if err != nil {
				return runCliConfig{}, err
			}
			config.Format = parsed
		default:
			if strings.HasPrefix(arg, "-") {
				return runCliConfig{}, fmt.Errorf("unknown flag '%s'", arg)
			}
			return runCliConfig{}, fmt.Errorf("unexpected argument '%s'", arg)
		}
	}

	return config, nil
}

func nextArg(args []string, index *int) string {
	*index = *index + 1
	if *index >= len(args) {
		return ""
	}
	return args[*index]
}

func expectFlagValue(flag string, value string) (string, error) {
	if value == "" || strings.HasPrefix(value, "-") {
		return "", fmt.Errorf("%s expects a value", flag)
	}
	return value, nil
}

func parseOutputFormat(value string) (outputFormat, error) {
	switch value {
	case "doc":
		return formatDoc, nil
	case "json":
		return formatJSON, nil
	default:
		return "", fmt.Errorf("unknown --format value '%s' (expected doc or json)", value)
	}
}

func parsePositiveInt(value string, flag string, min int) (int, error) {
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < min {
		return 0, fmt.Errorf("%s expects an integer >= %d", flag, min)
	}
	return parsed, nil
}

// resolveManifest loads the manifest named by --manifest, or searches upward
// from the working directory, falling back to built-in defaults when no
// harness.yml exists.
func resolveManifest(config runCliConfig) (*driver.Manifest, error) {
	if config.ManifestPath != "" {
		return driver.LoadManifest(config.ManifestPath)
	}
	manifest, err := loadManifestFrom(".")
	if err != nil {
		if errors.Is(err, errManifestNotFound) {
			return driver.DefaultManifest(), nil
		}
		return nil, err
	}
	return manifest, nil
}

func loadManifestFrom(dir string) (*driver.Manifest, error) {
	path, err := findManifest(dir)
	if err != nil {
		return nil, err
	}
	return driver.LoadManifest(path)
}

func findManifest(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, driver.ManifestFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errManifestNotFound
		}
		dir = parent
	}
}

func manifestDir(manifest *driver.Manifest) string {
	if manifest == nil || manifest.Path == "" {
		return ""
	}
	return filepath.Dir(manifest.Path)
}

func planFromConfig(manifest *driver.Manifest, config runCliConfig) harness.Plan {
	plan := manifest.Plan()
	if config.Count > 0 {
		plan.Count = config.Count
	}
	if config.Template != "" {
		plan.Template = config.Template
	}
	if config.Analyzer != "" {
		plan.Analyzer = config.Analyzer
	}
	if config.Flags != nil {
		plan.Flags = config.Flags
	}
	return plan
}
