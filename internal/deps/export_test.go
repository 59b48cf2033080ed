package deps

// SetExecutablePath swaps the executable lookup for tests.
func SetExecutablePath(fn func() (string, error)) func() {
	prev := executablePath
	executablePath = fn
	return func() { executablePath = prev }
}
