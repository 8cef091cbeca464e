// Package logwriter appends serialized records to a JSON Lines file, one
// whole line per call, serialized across all goroutines of the process.
package logwriter

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"
)

const fileMode = 0o644

// ErrMultiline is returned for a line containing '\n' or '\r'.
var ErrMultiline = errors.New("logwriter: line contains a line break")

// WriteError reports a failed append. Op is one of "open", "write", "sync" or "close".
type WriteError struct {
	Op   string
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("logwriter: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Writer owns the log file path and the lock guarding appends to it.
type Writer struct {
	mu    sync.Mutex
	path  string
	fsync bool
}

// New returns a Writer for path. The file is created on first append.
// With fsync set, every append is synced to stable storage before returning.
func New(path string, fsync bool) *Writer {
	return &Writer{path: path, fsync: fsync}
}

func (w *Writer) Path() string { return w.path }

// Append writes line followed by '\n' as a single write to the end of the
// file. The file is opened and closed under the lock on every call.
func (w *Writer) Append(line []byte) error {
	if bytes.ContainsAny(line, "\r\n") {
		return ErrMultiline
	}
	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)
	buf = append(buf, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, fileMode)
	if err != nil {
		return &WriteError{Op: "open", Path: w.path, Err: err}
	}
	if _, err := f.Write(buf); err != nil {
		f.Close()
		return &WriteError{Op: "write", Path: w.path, Err: err}
	}
	if w.fsync {
		if err := f.Sync(); err != nil {
			f.Close()
			return &WriteError{Op: "sync", Path: w.path, Err: err}
		}
	}
	if err := f.Close(); err != nil {
		return &WriteError{Op: "close", Path: w.path, Err: err}
	}
	return nil
}
