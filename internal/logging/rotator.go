package logging

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"ibus-m17n/internal/security"
)

// FileRotator is an io.Writer over a log file that rotates by size. Rotated
// files are numbered: engine.log.1 is the newest, engine.log.N the oldest,
// optionally gzip compressed (engine.log.1.gz).
type FileRotator struct {
	config *Config
	mu     sync.Mutex
	file   *os.File
	size   int64
}

// NewFileRotator opens the log file, creating its directory.
func NewFileRotator(cfg *Config) (*FileRotator, error) {
	if cfg.FilePath == "" {
		return nil, fmt.Errorf("log file path is empty")
	}
	if err := security.EnsureSecureDir(filepath.Dir(cfg.FilePath)); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	r := &FileRotator{config: cfg}
	if err := r.openFile(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileRotator) openFile() error {
	file, err := os.OpenFile(r.config.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	r.file = file
	r.size = info.Size()
	return nil
}

// Write implements io.Writer.
func (r *FileRotator) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		if err := r.openFile(); err != nil {
			return 0, err
		}
	}

	if r.size > 0 && r.size+int64(len(p)) > r.maxBytes() {
		if err := r.rotate(); err != nil {
			return 0, fmt.Errorf("rotate log: %w", err)
		}
	}

	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

func (r *FileRotator) maxBytes() int64 {
	if r.config.MaxSize <= 0 {
		return 10 * 1024 * 1024
	}
	return r.config.MaxSize * 1024 * 1024
}

// backupName returns the path of backup n, with or without compression.
func (r *FileRotator) backupName(n int, gz bool) string {
	name := fmt.Sprintf("%s.%d", r.config.FilePath, n)
	if gz {
		name += ".gz"
	}
	return name
}

// rotate shifts the backups up by one, drops the oldest and moves the
// current file to backup 1. Must be called with mu held.
func (r *FileRotator) rotate() error {
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("close current log: %w", err)
	}
	r.file = nil

	keep := r.config.MaxBackups
	if keep <= 0 {
		if err := os.Remove(r.config.FilePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove log file: %w", err)
		}
		return r.openFile()
	}

	for _, gz := range []bool{false, true} {
		os.Remove(r.backupName(keep, gz))
	}
	for n := keep - 1; n >= 1; n-- {
		for _, gz := range []bool{false, true} {
			from := r.backupName(n, gz)
			if _, err := os.Stat(from); err == nil {
				if err := os.Rename(from, r.backupName(n+1, gz)); err != nil {
					return fmt.Errorf("shift backup %d: %w", n, err)
				}
			}
		}
	}

	first := r.backupName(1, false)
	if err := os.Rename(r.config.FilePath, first); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("rename log file: %w", err)
	}
	if r.config.Compress {
		if err := compressFile(first); err != nil {
			return err
		}
	}
	return r.openFile()
}

// compressFile replaces path with path.gz.
func compressFile(path string) error {
	input, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open backup: %w", err)
	}
	defer input.Close()

	output, err := os.OpenFile(path+".gz", os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0640)
	if err != nil {
		return fmt.Errorf("create compressed backup: %w", err)
	}

	gz := gzip.NewWriter(output)
	gz.Name = filepath.Base(path)
	if _, err := io.Copy(gz, input); err != nil {
		gz.Close()
		output.Close()
		os.Remove(path + ".gz")
		return fmt.Errorf("compress backup: %w", err)
	}
	if err := gz.Close(); err != nil {
		output.Close()
		os.Remove(path + ".gz")
		return fmt.Errorf("compress backup: %w", err)
	}
	if err := output.Close(); err != nil {
		return fmt.Errorf("close compressed backup: %w", err)
	}
	return os.Remove(path)
}

// Close closes the rotator and its underlying file.
func (r *FileRotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}

// Sync flushes any buffered data to the file.
func (r *FileRotator) Sync() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file != nil {
		return r.file.Sync()
	}
	return nil
}

// logFiles returns the current log file and the existing backups, newest
// first.
func (r *FileRotator) logFiles() []string {
	files := []string{r.config.FilePath}
	for n := 1; n <= r.config.MaxBackups; n++ {
		for _, gz := range []bool{false, true} {
			if _, err := os.Stat(r.backupName(n, gz)); err == nil {
				files = append(files, r.backupName(n, gz))
			}
		}
	}
	return files
}
