package harness

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// BuildError reports a failed analyzer build. It is the only condition the
// harness treats as fatal: nothing runs after it.
type BuildError struct {
	Command []string
	Err     error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build %s: %v", strings.Join(e.Command, " "), e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// InvocationOutcome captures one analyzer run. The runner records it and moves
// on; it never inspects the exit code or the output.
type InvocationOutcome struct {
	Index    int    `json:"index"`
	Path     string `json:"path"`
	ExitCode int    `json:"exit_code"`
	Output   string `json:"output"`
	Error    string `json:"error,omitempty"`
}

// Runner drives the analyzer across a plan's fixture battery, one subprocess
// at a time. It blocks on each invocation until the analyzer exits; there is
// no timeout, so a hung analyzer hangs the run.
type Runner struct {
	Plan  Plan
	Build []string
	Dir   string

	// Quiet suppresses the per-fixture headers and the verbatim output
	// forwarding; outcomes still capture everything.
	Quiet bool

	Stdout io.Writer
	Stderr io.Writer
}

func (r *Runner) stdout() io.Writer {
	if r.Stdout != nil {
		return r.Stdout
	}
	return os.Stdout
}

func (r *Runner) stderr() io.Writer {
	if r.Stderr != nil {
		return r.Stderr
	}
	return os.Stderr
}

// BuildAnalyzer runs the configured build command once. An empty command skips
// the build phase. Any failure comes back as a *BuildError.
func (r *Runner) BuildAnalyzer() error {
	if len(r.Build) == 0 {
		return nil
	}
	cmd := exec.Command(r.Build[0], r.Build[1:]...)
	cmd.Dir = r.Dir
	cmd.Stdout = r.stdout()
	cmd.Stderr = r.stderr()
	if err := cmd.Run(); err != nil {
		return &BuildError{Command: r.Build, Err: err}
	}
	return nil
}

// Run visits every fixture index in ascending order and invokes the analyzer
// once per index. It always completes the full battery: analyzer crashes,
// non-zero exits, and missing fixture files are recorded in the outcome and
// otherwise ignored.
func (r *Runner) Run() []InvocationOutcome {
	invocations := r.Plan.Invocations()
	outcomes := make([]InvocationOutcome, 0, len(invocations))
	for _, invocation := range invocations {
		if !r.Quiet {
			fmt.Fprintf(r.stdout(), "Test %d\n", invocation.Index)
		}
		outcomes = append(outcomes, r.invoke(invocation))
		if !r.Quiet {
			fmt.Fprintln(r.stdout())
		}
	}
	return outcomes
}

func (r *Runner) invoke(invocation Invocation) InvocationOutcome {
	outcome := InvocationOutcome{
		Index: invocation.Index,
		Path:  invocation.Path,
	}

	var captured bytes.Buffer
	combined := io.Writer(&captured)
	if !r.Quiet {
		combined = io.MultiWriter(r.stdout(), &captured)
	}

	cmd := exec.Command(r.Plan.Analyzer, invocation.Args...)
	cmd.Dir = r.Dir
	cmd.Stdout = combined
	cmd.Stderr = combined

	err := cmd.Run()
	outcome.Output = captured.String()
	switch err := err.(type) {
	case nil:
		outcome.ExitCode = 0
	case *exec.ExitError:
		outcome.ExitCode = err.ExitCode()
	default:
		// The analyzer never started (missing binary, permission denied).
		// Surface the reason the way a shell would and keep going.
		outcome.ExitCode = -1
		outcome.Error = err.Error()
		if !r.Quiet {
			fmt.Fprintln(r.stderr(), err)
		}
	}
	return outcome
}
