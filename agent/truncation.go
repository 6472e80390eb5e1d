package agent

import "fmt"

// Per-tool character limits applied to tool output before it is persisted
// and fed back into history. The shell's own 10 MB capture cap is the hard
// bound; these keep the context window usable.
var toolOutputLimits = map[string]int{
	"read_file":       50000,
	"execute_shell":   30000,
	"list_directory":  20000,
	"web_search":      10000,
	"git_operation":   30000,
	"install_package": 20000,
	"deploy":          20000,
}

const defaultOutputLimit = 20000

// truncateToolOutput bounds a tool result. Oversized output keeps its head
// and tail with a marker in the middle, so the model sees both the start of
// the output and its final state.
func truncateToolOutput(tool, output string) string {
	limit, ok := toolOutputLimits[tool]
	if !ok {
		limit = defaultOutputLimit
	}
	if len(output) <= limit {
		return output
	}
	half := limit / 2
	removed := len(output) - limit
	return output[:half] +
		fmt.Sprintf("\n\n[%d characters removed; re-run the tool with narrower parameters to see the rest]\n\n", removed) +
		output[len(output)-half:]
}
