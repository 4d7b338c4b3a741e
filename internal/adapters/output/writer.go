// Package output provides adapters for writing application output.
package output

import (
	"fmt"
	"io"
	"os"
)

// EnvWriter writes the resolved branch variable to the configured output
// destination. By default it writes to stdout; in CI it appends to the
// durable environment export file supplied by the pipeline.
type EnvWriter struct {
	out io.Writer

	// closer is non-nil when the writer owns the destination file.
	closer io.Closer
}

// NewEnvWriter creates an EnvWriter that writes to stdout.
func NewEnvWriter() *EnvWriter {
	return &EnvWriter{out: os.Stdout}
}

// NewEnvWriterWithOutput creates an EnvWriter with a custom destination.
// This is useful for testing.
func NewEnvWriterWithOutput(out io.Writer) *EnvWriter {
	return &EnvWriter{out: out}
}

// NewEnvFileWriter creates an EnvWriter that appends to the env export file
// at path, creating it if needed. Later pipeline steps read the file, so
// the variable must survive the process.
func NewEnvFileWriter(path string) (*EnvWriter, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open env export file %s: %w", path, err)
	}
	return &EnvWriter{out: file, closer: file}, nil
}

// WriteBranchVariable writes "<dependency>_branch_name=<branch>" as a
// single line to the destination.
func (w *EnvWriter) WriteBranchVariable(dependency, branch string) error {
	_, err := fmt.Fprintf(w.out, "%s_branch_name=%s\n", dependency, branch)
	return err
}

// Close closes the destination file when the writer owns one.
func (w *EnvWriter) Close() error {
	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}
