package report

import (
	"fmt"
	"os"
)

// StatusFile holds the latest value of a session for other processes to
// pick up, or "error" while the session is failing.
type StatusFile struct {
	path string
}

func NewStatusFile(path string) *StatusFile {
	return &StatusFile{path: path}
}

func (f *StatusFile) Path() string {
	return f.path
}

func (f *StatusFile) Write(v any) error {
	if f == nil || f.path == "" {
		return nil
	}
	if err := os.WriteFile(f.path, []byte(fmt.Sprintf("%v\n", v)), 0o644); err != nil {
		return fmt.Errorf("status: could not write %s: %w", f.path, err)
	}
	return nil
}

func (f *StatusFile) WriteError() error {
	return f.Write("error")
}
