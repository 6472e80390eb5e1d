//go:build windows

package toolbox

import (
	"errors"
	"os/exec"
)

func setProcessGroup(cmd *exec.Cmd) {}

func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	cmd.Process.Kill()
}

func diskUsage(path string) (total, free uint64, err error) {
	return 0, 0, errors.New("disk usage not supported on windows")
}
