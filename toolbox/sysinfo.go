package toolbox

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
)

// runtimeProbes lists common language runtimes and how to ask each for its
// version. Absence is skipped silently.
var runtimeProbes = []struct {
	label string
	bin   string
	args  []string
}{
	{"node", "node", []string{"--version"}},
	{"npm", "npm", []string{"--version"}},
	{"python", "python3", []string{"--version"}},
	{"go", "go", []string{"version"}},
	{"rust", "rustc", []string{"--version"}},
	{"java", "java", []string{"-version"}},
	{"git", "git", []string{"--version"}},
	{"docker", "docker", []string{"--version"}},
}

func (e *Executor) getSystemInfo(ctx context.Context, args map[string]any) (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "OS: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&sb, "Hostname: %s\n", hostname)
	fmt.Fprintf(&sb, "CPUs: %d\n", runtime.NumCPU())

	if total, available, err := memoryInfo(); err == nil {
		fmt.Fprintf(&sb, "Memory: %s total, %s available\n",
			humanize.Bytes(total), humanize.Bytes(available))
	}
	if total, free, err := diskUsage(e.root); err == nil {
		fmt.Fprintf(&sb, "Disk: %s total, %s free\n",
			humanize.Bytes(total), humanize.Bytes(free))
	}

	// Version probes run concurrently; each one is best-effort with a short
	// deadline so a wedged binary cannot stall the whole report.
	results := make([]string, len(runtimeProbes))
	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(4)
	for i, probe := range runtimeProbes {
		group.Go(func() error {
			probeCtx, cancel := context.WithTimeout(groupCtx, 5*time.Second)
			defer cancel()
			cmd := exec.CommandContext(probeCtx, probe.bin, probe.args...)
			out, err := cmd.CombinedOutput()
			if err != nil {
				return nil
			}
			version := strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])
			mu.Lock()
			results[i] = fmt.Sprintf("%s: %s", probe.label, version)
			mu.Unlock()
			return nil
		})
	}
	group.Wait()

	var found []string
	for _, r := range results {
		if r != "" {
			found = append(found, r)
		}
	}
	if len(found) > 0 {
		sb.WriteString("Runtimes:\n")
		for _, r := range found {
			fmt.Fprintf(&sb, "  %s\n", r)
		}
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// memoryInfo reads /proc/meminfo. On systems without it the memory line is
// simply omitted from the report.
func memoryInfo() (total, available uint64, err error) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		kb, parseErr := strconv.ParseUint(fields[1], 10, 64)
		if parseErr != nil {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			total = kb * 1024
		case "MemAvailable:":
			available = kb * 1024
		}
	}
	if total == 0 {
		return 0, 0, fmt.Errorf("meminfo did not report MemTotal")
	}
	return total, available, nil
}
