// Package deps resolves the external executables zestsync shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"zestsync/internal/services"
)

// Requirement names an executable a feature needs. Command may carry
// arguments ("uvx --quiet"); only the first word is resolved.
type Requirement struct {
	Name     string
	Command  string
	Optional bool
}

// Status reports the availability of a requirement.
type Status struct {
	Name      string
	Command   string
	Optional  bool
	Available bool
	Detail    string
}

// Lookup resolves the executable of command on PATH.
func Lookup(command string) (string, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "", services.Wrap(services.ErrToolNotFound, "deps", "lookup", "command not configured", nil)
	}
	resolved, err := exec.LookPath(fields[0])
	if err != nil {
		return "", services.Wrap(services.ErrToolNotFound, "deps", "lookup", fmt.Sprintf("binary %q not found", fields[0]), err)
	}
	return resolved, nil
}

// Check evaluates a single requirement.
func Check(req Requirement) Status {
	status := Status{
		Name:     req.Name,
		Command:  strings.TrimSpace(req.Command),
		Optional: req.Optional,
	}
	switch resolved, err := Lookup(status.Command); {
	case status.Command == "":
		status.Detail = "command not configured"
	case err != nil:
		status.Detail = fmt.Sprintf("binary %q not found", strings.Fields(status.Command)[0])
	default:
		status.Command = resolved
		status.Available = true
	}
	return status
}
