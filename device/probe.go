package device

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"
)

// Probe reports whether CUDA acceleration can be used on this host.
type Probe interface {
	CUDAAvailable(ctx context.Context) bool
}

// StaticProbe is a Probe with a fixed answer.
type StaticProbe bool

// CUDAAvailable returns the fixed answer.
func (p StaticProbe) CUDAAvailable(context.Context) bool {
	return bool(p)
}

// NvidiaSMIProbe detects CUDA by asking nvidia-smi for GPU names.
type NvidiaSMIProbe struct {
	// Path to the nvidia-smi executable. Empty means "nvidia-smi" on PATH.
	Path string

	// Timeout bounds the query. Zero means 5 seconds.
	Timeout time.Duration
}

// CUDAAvailable returns true when nvidia-smi runs successfully and lists
// at least one GPU. A missing binary counts as no CUDA.
func (p NvidiaSMIProbe) CUDAAvailable(ctx context.Context) bool {
	path := p.Path
	if path == "" {
		path = "nvidia-smi"
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, "--query-gpu=name", "--format=csv,noheader")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return false
	}
	return hasGPULine(stdout.String())
}

// hasGPULine reports whether nvidia-smi csv output names any GPU.
func hasGPULine(output string) bool {
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) != "" {
			return true
		}
	}
	return false
}
