package preflight

import (
	"context"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// GPU describes one accelerator reported by nvidia-smi.
type GPU struct {
	Name   string
	Memory string
}

// SystemInfo summarizes the host for the doctor report.
type SystemInfo struct {
	OS      string
	Arch    string
	CPUs    int
	GoVer   string
	GPUs    []GPU
	GPUNote string
}

// CollectSystemInfo gathers host details. GPU detection is best effort.
func CollectSystemInfo(ctx context.Context) SystemInfo {
	info := SystemInfo{
		OS:    runtime.GOOS,
		Arch:  runtime.GOARCH,
		CPUs:  runtime.NumCPU(),
		GoVer: runtime.Version(),
	}
	gpus, err := queryNvidiaSMI(ctx)
	switch {
	case err != nil:
		info.GPUNote = "no NVIDIA GPU detected; transcription runs on CPU"
	case len(gpus) == 0:
		info.GPUNote = "nvidia-smi reported no devices"
	default:
		info.GPUs = gpus
	}
	return info
}

func queryNvidiaSMI(ctx context.Context) ([]GPU, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, "nvidia-smi", "--query-gpu=name,memory.total", "--format=csv,noheader").Output()
	if err != nil {
		return nil, err
	}
	return parseNvidiaSMI(string(out)), nil
}

func parseNvidiaSMI(out string) []GPU {
	var gpus []GPU
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, mem, _ := strings.Cut(line, ",")
		gpus = append(gpus, GPU{Name: strings.TrimSpace(name), Memory: strings.TrimSpace(mem)})
	}
	return gpus
}
