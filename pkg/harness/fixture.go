package harness

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultCount matches the size of the bundled fixture battery.
	DefaultCount = 18

	// DefaultTemplate renders the bundled fixture layout: test1.xai .. testN.xai.
	DefaultTemplate = "./Code/Tests/test%d.xai"
)

// DefaultFlags are the analyzer flags every invocation carries: pretty
// printing plus the code-file flag that the fixture path follows.
func DefaultFlags() []string {
	return []string{"-p", "-c"}
}

// Plan describes one full battery: how many fixtures to visit, how to render
// their paths, and how to invoke the analyzer for each of them.
type Plan struct {
	Count    int
	Template string
	Analyzer string
	Flags    []string
}

// Invocation is a single planned analyzer run.
type Invocation struct {
	Index int      `json:"index"`
	Path  string   `json:"path"`
	Args  []string `json:"args"`
}

// RenderFixturePath renders the fixture path for a 1-based index. It is total:
// an empty template falls back to the default, and a template without a %d
// verb simply gets the index appended.
func RenderFixturePath(template string, index int) string {
	if template == "" {
		template = DefaultTemplate
	}
	if !strings.Contains(template, "%d") {
		return template + strconv.Itoa(index)
	}
	return fmt.Sprintf(template, index)
}

// Invocations expands the plan into its ordered invocation list, index 1
// through Count with no gaps.
func (p Plan) Invocations() []Invocation {
	flags := p.Flags
	if flags == nil {
		flags = DefaultFlags()
	}
	invocations := make([]Invocation, 0, p.Count)
	for index := 1; index <= p.Count; index++ {
		path := RenderFixturePath(p.Template, index)
		args := make([]string, 0, len(flags)+1)
		args = append(args, flags...)
		args = append(args, path)
		invocations = append(invocations, Invocation{
			Index: index,
			Path:  path,
			Args:  args,
		})
	}
	return invocations
}
