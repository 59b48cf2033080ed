package config

// SetExecutablePath overrides executable discovery for bundled-mode tests.
func SetExecutablePath(fn func() (string, error)) (restore func()) {
	prev := executablePath
	executablePath = fn
	return func() { executablePath = prev }
}
