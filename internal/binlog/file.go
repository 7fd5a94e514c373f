package binlog

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	maxFileIndex = 9999
	fileExt      = ".bin"
)

var ErrNoFreeName = errors.New("binlog: no unused log file name left")

// FileName returns the log file name for index i ("0001.bin").
func FileName(i int) string {
	return fmt.Sprintf("%04d%s", i, fileExt)
}

// NextPath returns the first NNNN.bin in dir that does not exist yet.
func NextPath(dir string) (string, error) {
	for i := 1; i <= maxFileIndex; i++ {
		p := filepath.Join(dir, FileName(i))
		_, err := os.Stat(p)
		if errors.Is(err, fs.ErrNotExist) {
			return p, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", ErrNoFreeName
}

// LatestPath returns the highest-numbered NNNN.bin in dir, the most recent
// capture.
func LatestPath(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	best := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || len(name) != 4+len(fileExt) || !strings.HasSuffix(name, fileExt) {
			continue
		}
		i, err := strconv.Atoi(strings.TrimSuffix(name, fileExt))
		if err != nil || i < 1 {
			continue
		}
		if i > best {
			best = i
		}
	}
	if best == 0 {
		return "", fmt.Errorf("binlog: no capture files in %s", dir)
	}
	return filepath.Join(dir, FileName(best)), nil
}

// File is a Sink writing to a freshly created numbered file.
type File struct {
	path   string
	f      *os.File
	w      *bufio.Writer
	closed bool
}

// CreateFile creates the first unused NNNN.bin in dir. Existing files are
// never opened for writing.
func CreateFile(dir string) (*File, error) {
	if st, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("binlog: log dir: %w", err)
	} else if !st.IsDir() {
		return nil, fmt.Errorf("binlog: log dir %s is not a directory", dir)
	}
	for i := 1; i <= maxFileIndex; i++ {
		p := filepath.Join(dir, FileName(i))
		f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("binlog: create %s: %w", p, err)
		}
		return &File{path: p, f: f, w: bufio.NewWriterSize(f, 64*1024)}, nil
	}
	return nil, ErrNoFreeName
}

func (lf *File) Path() string { return lf.path }

func (lf *File) Write(p []byte) (int, error) {
	if lf.closed {
		return 0, errors.New("binlog: file is closed")
	}
	return lf.w.Write(p)
}

// Flush pushes buffered records to the file and asks the OS to persist them.
func (lf *File) Flush() error {
	if lf.closed {
		return nil
	}
	if err := lf.w.Flush(); err != nil {
		return err
	}
	return lf.f.Sync()
}

func (lf *File) Close() error {
	if lf.closed {
		return nil
	}
	lf.closed = true
	if err := lf.w.Flush(); err != nil {
		_ = lf.f.Close()
		return err
	}
	return lf.f.Close()
}
