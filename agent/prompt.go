package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/ferrywell/devpad/llm"
)

// BuildSystemPrompt generates the permanent first turn of every
// conversation: who the assistant is, where it is working, what it can do,
// and the path rule tools are held to.
func BuildSystemPrompt(project ProjectContext, toolDefs []llm.ToolDefinition) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are a coding assistant working on the project %q.\n", project.DisplayName())
	fmt.Fprintf(&sb, "Project directory: %s\n", project.WorkingDirectory())
	fmt.Fprintf(&sb, "Today's date: %s\n\n", time.Now().Format("2006-01-02"))

	sb.WriteString("You can read and modify project files, run shell commands, search the web, ")
	sb.WriteString("install packages, use git, deploy the project, and manage background processes ")
	sb.WriteString("through the tools listed below.\n\n")

	sb.WriteString("Available tools:\n")
	for _, def := range toolDefs {
		fmt.Fprintf(&sb, "- %s: %s\n", def.Name, def.Description)
	}

	sb.WriteString("\nRules:\n")
	sb.WriteString("- All file paths are relative to the project directory. Never use absolute paths or `..`; operations outside the project will be rejected.\n")
	sb.WriteString("- Prefer small, verifiable steps: read before you edit, and check command output before moving on.\n")
	sb.WriteString("- When a tool fails, read its error message and adjust; do not repeat the identical call.\n")

	return sb.String()
}
