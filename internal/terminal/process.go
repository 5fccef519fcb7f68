package terminal

import (
	"fmt"

	"github.com/shirou/gopsutil/v4/process"
)

// maxProcessDepth bounds the walk down the child tree.
const maxProcessDepth = 16

// foregroundProcessName returns the name of the most recently started leaf
// process under pid, or pid's own name when it has no children.
func foregroundProcessName(pid int) (string, error) {
	if pid <= 0 {
		return "", fmt.Errorf("invalid pid %d", pid)
	}
	proc, err := process.NewProcess(int32(pid)) // #nosec G115 - pids fit in int32
	if err != nil {
		return "", fmt.Errorf("failed to inspect process %d: %w", pid, err)
	}

	for range maxProcessDepth {
		children, err := proc.Children()
		if err != nil || len(children) == 0 {
			break
		}
		// Highest pid approximates the newest child.
		next := children[0]
		for _, c := range children[1:] {
			if c.Pid > next.Pid {
				next = c
			}
		}
		proc = next
	}

	name, err := proc.Name()
	if err != nil {
		return "", fmt.Errorf("failed to read process name: %w", err)
	}
	return name, nil
}
