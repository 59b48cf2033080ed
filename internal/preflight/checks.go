package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"zestsync/internal/deps"
	"zestsync/internal/models"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckModelCache verifies the translation model cache. A missing cache is
// fine; it is created by the first download.
func CheckModelCache(path string) Result {
	const name = "Model cache"
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		parent := filepath.Dir(path)
		for parent != filepath.Dir(parent) {
			if _, err := os.Stat(parent); err == nil {
				break
			}
			parent = filepath.Dir(parent)
		}
		if err := unix.Access(parent, unix.W_OK); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot be created under %s)", path, parent)}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (created on first download)", path)}
	}
	res := CheckDirectoryAccess(name, path)
	return res
}

// CheckFFmpeg verifies that a working ffmpeg can be found.
func CheckFFmpeg(ctx context.Context, configured []string) Result {
	status := deps.CheckFFmpeg(ctx, configured)
	if !status.Available {
		return Result{Name: status.Name, Detail: status.Detail}
	}
	return Result{Name: status.Name, Passed: true, Detail: status.Command}
}

// CheckPython verifies that the Python launcher is on PATH.
func CheckPython(name, command string) Result {
	status := deps.Check(deps.Requirement{Name: name, Command: command})
	if !status.Available {
		return Result{Name: name, Detail: status.Detail}
	}
	return Result{Name: name, Passed: true, Detail: status.Command}
}

// CheckWhisperModel verifies that the speech-to-text model directory holds a
// converted model.
func CheckWhisperModel(dir string) Result {
	const name = "Whisper model"
	if strings.TrimSpace(dir) == "" {
		return Result{Name: name, Detail: "model directory not configured"}
	}
	if _, err := os.Stat(filepath.Join(dir, "model.bin")); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: model.bin not found)", dir)}
	}
	return Result{Name: name, Passed: true, Detail: dir}
}

// CheckHub verifies that the model host answers. Offline use keeps working
// for cached models, so the check is optional.
func CheckHub(ctx context.Context, prober models.Prober, url string) Result {
	const name = "Model hub"
	if err := prober.Probe(ctx); err != nil {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("%s unreachable (downloads unavailable)", url)}
	}
	return Result{Name: name, Optional: true, Passed: true, Detail: url + " reachable"}
}
