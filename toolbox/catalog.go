package toolbox

import "github.com/ferrywell/devpad/llm"

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func boolProp(description string) map[string]any {
	return map[string]any{"type": "boolean", "description": description}
}

func intProp(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}

// catalog builds the full tool table. Definitions are what the model sees;
// keep descriptions short and imperative so every vendor renders them well.
func catalog() map[string]toolSpec {
	specs := []toolSpec{
		{
			def: llm.ToolDefinition{
				Name:        "read_file",
				Description: "Read a file from the project and return its full text content.",
				Parameters: objectSchema(map[string]any{
					"path": stringProp("Path relative to the project root."),
				}, "path"),
			},
			handler: (*Executor).readFile,
		},
		{
			def: llm.ToolDefinition{
				Name:        "write_file",
				Description: "Write content to a file, creating it and any parent directories as needed.",
				Parameters: objectSchema(map[string]any{
					"path":    stringProp("Path relative to the project root."),
					"content": stringProp("Full file content to write."),
				}, "path", "content"),
			},
			handler: (*Executor).writeFile,
		},
		{
			def: llm.ToolDefinition{
				Name:        "list_directory",
				Description: "List a directory's entries with type markers and sizes.",
				Parameters: objectSchema(map[string]any{
					"path":      stringProp("Path relative to the project root. Defaults to the root."),
					"recursive": boolProp("List the whole subtree. Default: false."),
				}),
			},
			handler: (*Executor).listDirectory,
		},
		{
			def: llm.ToolDefinition{
				Name:        "create_directory",
				Description: "Create a directory, including any missing parents.",
				Parameters: objectSchema(map[string]any{
					"path": stringProp("Path relative to the project root."),
				}, "path"),
			},
			handler: (*Executor).createDirectory,
		},
		{
			def: llm.ToolDefinition{
				Name:        "delete_file",
				Description: "Delete a file or directory. Non-empty directories require recursive=true.",
				Parameters: objectSchema(map[string]any{
					"path":      stringProp("Path relative to the project root."),
					"recursive": boolProp("Delete a non-empty directory and its contents. Default: false."),
				}, "path"),
			},
			handler: (*Executor).deleteFile,
		},
		{
			def: llm.ToolDefinition{
				Name:        "move_file",
				Description: "Move or rename a file or directory, creating the destination's parent directories.",
				Parameters: objectSchema(map[string]any{
					"source":      stringProp("Source path relative to the project root."),
					"destination": stringProp("Destination path relative to the project root."),
				}, "source", "destination"),
			},
			handler: (*Executor).moveFile,
		},
		{
			def: llm.ToolDefinition{
				Name:        "execute_shell",
				Description: "Run a shell command in the project directory. Set background=true to detach long-running processes.",
				Parameters: objectSchema(map[string]any{
					"command":    stringProp("Shell command to execute."),
					"background": boolProp("Detach the process and return a handle instead of waiting. Default: false."),
					"timeout":    intProp("Timeout in milliseconds for foreground commands. Default: 30000."),
				}, "command"),
			},
			handler: (*Executor).executeShell,
		},
		{
			def: llm.ToolDefinition{
				Name:        "web_search",
				Description: "Search the web and return up to 5 results with titles and URLs.",
				Parameters: objectSchema(map[string]any{
					"query": stringProp("Search query."),
				}, "query"),
			},
			handler: (*Executor).webSearch,
		},
		{
			def: llm.ToolDefinition{
				Name:        "get_system_info",
				Description: "Report OS, architecture, hostname, memory, disk, CPU, and installed language runtimes.",
				Parameters:  objectSchema(map[string]any{}),
			},
			handler: (*Executor).getSystemInfo,
		},
		{
			def: llm.ToolDefinition{
				Name:        "install_package",
				Description: "Install packages with a supported package manager (npm, yarn, pnpm, pip, pip3, cargo, go).",
				Parameters: objectSchema(map[string]any{
					"manager": stringProp("Package manager to use."),
					"packages": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "Packages to install.",
					},
					"dev": boolProp("Install as development dependencies where the manager supports it. Default: false."),
				}, "manager", "packages"),
			},
			handler: (*Executor).installPackage,
		},
		{
			def: llm.ToolDefinition{
				Name:        "git_operation",
				Description: "Run a git operation: init, status, add, commit, push, pull, clone, branch, checkout, log, or diff.",
				Parameters: objectSchema(map[string]any{
					"operation": stringProp("Git operation to run."),
					"args": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "Extra arguments, e.g. a commit message after -m.",
					},
				}, "operation"),
			},
			handler: (*Executor).gitOperation,
		},
		{
			def: llm.ToolDefinition{
				Name:        "deploy",
				Description: "Deploy the project. Targets: docker, systemd, pm2, nginx, custom.",
				Parameters: objectSchema(map[string]any{
					"target": stringProp("Deployment target."),
					"config": map[string]any{
						"type":        "object",
						"description": "Target-specific settings, e.g. name, port, command, domain.",
					},
				}, "target"),
			},
			handler: (*Executor).deploy,
		},
		{
			def: llm.ToolDefinition{
				Name:        "manage_process",
				Description: "List, kill, or restart background processes started by execute_shell.",
				Parameters: objectSchema(map[string]any{
					"action": stringProp("One of list, kill, restart."),
					"handle": stringProp("Process handle, required for kill and restart."),
				}, "action"),
			},
			handler: (*Executor).manageProcess,
		},
		{
			def: llm.ToolDefinition{
				Name:        "set_env_variable",
				Description: "Set an environment variable for subsequent commands, optionally persisting it to the project's .env file.",
				Parameters: objectSchema(map[string]any{
					"key":     stringProp("Variable name."),
					"value":   stringProp("Variable value."),
					"persist": boolProp("Write the variable to .env. Default: true."),
				}, "key", "value"),
			},
			handler: (*Executor).setEnvVariable,
		},
	}

	table := make(map[string]toolSpec, len(specs))
	for _, spec := range specs {
		table[spec.def.Name] = spec
	}
	return table
}
