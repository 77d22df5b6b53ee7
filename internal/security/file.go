// Package security holds file and process hardening helpers: atomic
// writes with fixed permissions, a single-instance lock and the core dump
// limit.
package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File permission constants
const (
	// PermSecretFile is for files that may hold typed text, such as crash
	// reports and the settings database.
	PermSecretFile os.FileMode = 0600
	PermSecretDir  os.FileMode = 0700

	// PermPublicFile is for files other programs read, such as the IBus
	// component file.
	PermPublicFile os.FileMode = 0644
	PermPublicDir  os.FileMode = 0755
)

var (
	ErrInvalidPath         = errors.New("security: invalid path")
	ErrInsecurePermissions = errors.New("security: insecure file permissions")
	ErrAtomicWriteFailed   = errors.New("security: atomic write failed")
	ErrTempFileFailed      = errors.New("security: temporary file creation failed")
)

// CleanPath cleans path and rejects empty paths and paths with NUL bytes.
func CleanPath(path string) (string, error) {
	if path == "" || strings.ContainsRune(path, 0) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return filepath.Clean(path), nil
}

// SecureFileWriter handles atomic file writes with fixed permissions.
// Data goes to a temporary file in the same directory, which Commit
// renames over the target.
type SecureFileWriter struct {
	path     string
	perm     os.FileMode
	tempFile *os.File
	tempPath string
}

// NewSecureFileWriter creates a writer for path. Missing parent
// directories are created with PermSecretDir, or PermPublicDir when perm
// is world readable.
func NewSecureFileWriter(path string, perm os.FileMode) (*SecureFileWriter, error) {
	cleanPath, err := CleanPath(path)
	if err != nil {
		return nil, err
	}

	dirPerm := PermSecretDir
	if perm&0004 != 0 {
		dirPerm = PermPublicDir
	}
	if err := os.MkdirAll(filepath.Dir(cleanPath), dirPerm); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	tempPath := cleanPath + ".tmp." + randomSuffix()
	tempFile, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTempFileFailed, err)
	}
	// The umask may have dropped bits from perm.
	if err := tempFile.Chmod(perm); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return nil, fmt.Errorf("%w: %v", ErrTempFileFailed, err)
	}

	return &SecureFileWriter{
		path:     cleanPath,
		perm:     perm,
		tempFile: tempFile,
		tempPath: tempPath,
	}, nil
}

// Write writes data to the temporary file.
func (w *SecureFileWriter) Write(p []byte) (n int, err error) {
	return w.tempFile.Write(p)
}

// Commit moves the temporary file to the final path.
func (w *SecureFileWriter) Commit() error {
	if err := w.tempFile.Sync(); err != nil {
		w.Abort()
		return fmt.Errorf("sync: %w", err)
	}
	if err := w.tempFile.Close(); err != nil {
		os.Remove(w.tempPath)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(w.tempPath, w.path); err != nil {
		os.Remove(w.tempPath)
		return fmt.Errorf("%w: %v", ErrAtomicWriteFailed, err)
	}
	return nil
}

// Abort cancels the write and removes the temporary file.
func (w *SecureFileWriter) Abort() {
	w.tempFile.Close()
	os.Remove(w.tempPath)
}

func randomSuffix() string {
	var b [8]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// WriteSecureFile writes data to path atomically with mode perm.
func WriteSecureFile(path string, data []byte, perm os.FileMode) error {
	writer, err := NewSecureFileWriter(path, perm)
	if err != nil {
		return err
	}
	if _, err := writer.Write(data); err != nil {
		writer.Abort()
		return err
	}
	return writer.Commit()
}

// WriteSecretFile writes data to path with mode 0600.
func WriteSecretFile(path string, data []byte) error {
	return WriteSecureFile(path, data, PermSecretFile)
}

// EnsureSecureDir creates path with mode 0700, or tightens the mode of an
// existing directory that is open to group or others.
func EnsureSecureDir(path string) error {
	cleanPath, err := CleanPath(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(cleanPath)
	if errors.Is(err, os.ErrNotExist) {
		return os.MkdirAll(cleanPath, PermSecretDir)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInvalidPath, cleanPath)
	}
	if info.Mode().Perm()&0077 != 0 {
		if err := os.Chmod(cleanPath, PermSecretDir); err != nil {
			return fmt.Errorf("fix directory permissions: %w", err)
		}
	}
	return nil
}

// VerifyFilePermissions reports ErrInsecurePermissions when path grants
// any permission beyond max.
func VerifyFilePermissions(path string, max os.FileMode) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode&^max != 0 {
		return fmt.Errorf("%w: %s has mode %04o, expected at most %04o",
			ErrInsecurePermissions, path, mode, max)
	}
	return nil
}
