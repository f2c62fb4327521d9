package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// FileWriter appends to a log file, rotating it once it would grow past a
// size limit: the file becomes <path>.1, .1 becomes .2 and so on, keeping
// at most a fixed number of backups. Safe for concurrent use.
type FileWriter struct {
	mu       sync.Mutex
	path     string
	maxBytes int64
	backups  int
	size     int64
	file     *os.File
}

var _ io.WriteCloser = (*FileWriter)(nil)

// OpenFile opens path for appending, creating it and its directory if
// needed. maxSizeMB is at least 1; backups of 0 truncates on rotation.
func OpenFile(path string, maxSizeMB, backups int) (*FileWriter, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}
	w := &FileWriter{
		path:     path,
		maxBytes: int64(max(maxSizeMB, 1)) << 20,
		backups:  max(backups, 0),
	}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *FileWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	w.file = f
	w.size = info.Size()
	return nil
}

// Write rotates first if p would push the file past the limit, so a single
// write never spans two files.
func (w *FileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return 0, os.ErrClosed
	}
	if w.size > 0 && w.size+int64(len(p)) > w.maxBytes {
		if err := w.rotate(); err != nil {
			return 0, fmt.Errorf("rotate log file: %w", err)
		}
	}
	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// Close closes the current file.
func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *FileWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return err
	}
	w.file = nil

	existing := w.existingBackups()
	slices.Reverse(existing)
	for _, n := range existing {
		if n >= w.backups {
			_ = os.Remove(w.backupPath(n))
		} else {
			_ = os.Rename(w.backupPath(n), w.backupPath(n+1))
		}
	}
	if w.backups > 0 {
		_ = os.Rename(w.path, w.backupPath(1))
	} else {
		_ = os.Remove(w.path)
	}
	return w.open()
}

func (w *FileWriter) backupPath(n int) string {
	return w.path + "." + strconv.Itoa(n)
}

// existingBackups returns backup numbers present on disk, ascending.
func (w *FileWriter) existingBackups() []int {
	entries, err := os.ReadDir(filepath.Dir(w.path))
	if err != nil {
		return nil
	}
	prefix := filepath.Base(w.path) + "."
	var nums []int
	for _, e := range entries {
		suffix, ok := strings.CutPrefix(e.Name(), prefix)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(suffix); err == nil && n > 0 {
			nums = append(nums, n)
		}
	}
	slices.Sort(nums)
	return nums
}
