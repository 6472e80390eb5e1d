package toolbox

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// packageManagers maps the supported manager names to their install argv.
// The dev variant is used when the dev flag is set and the manager has one.
var packageManagers = map[string]struct {
	install []string
	dev     []string
}{
	"npm":   {install: []string{"npm", "install"}, dev: []string{"npm", "install", "--save-dev"}},
	"yarn":  {install: []string{"yarn", "add"}, dev: []string{"yarn", "add", "--dev"}},
	"pnpm":  {install: []string{"pnpm", "add"}, dev: []string{"pnpm", "add", "--save-dev"}},
	"pip":   {install: []string{"pip", "install"}},
	"pip3":  {install: []string{"pip3", "install"}},
	"cargo": {install: []string{"cargo", "add"}, dev: []string{"cargo", "add", "--dev"}},
	"go":    {install: []string{"go", "get"}},
}

func (e *Executor) installPackage(ctx context.Context, args map[string]any) (string, error) {
	manager, err := requiredString(args, "manager")
	if err != nil {
		return "", err
	}
	packages, ok := stringSliceArg(args, "packages")
	if !ok || len(packages) == 0 {
		return "", fmt.Errorf("packages is required")
	}
	dev, _ := boolArg(args, "dev")

	mgr, ok := packageManagers[strings.ToLower(manager)]
	if !ok {
		supported := make([]string, 0, len(packageManagers))
		for name := range packageManagers {
			supported = append(supported, name)
		}
		sort.Strings(supported)
		return "", fmt.Errorf("unsupported package manager %q; supported: %s", manager, strings.Join(supported, ", "))
	}

	argv := mgr.install
	if dev {
		if mgr.dev == nil {
			return "", fmt.Errorf("%s has no development-dependency mode", manager)
		}
		argv = mgr.dev
	}
	argv = append(append([]string{}, argv...), packages...)

	out, err := e.runCommand(ctx, packageInstallTimeout, argv[0], argv[1:]...)
	if err != nil {
		return "", err
	}
	return out, nil
}
