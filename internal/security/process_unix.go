//go:build unix

package security

import "golang.org/x/sys/unix"

// DisableCoreDumps sets the core file size limit of the process to zero,
// so a crash cannot write typed text to disk.
func DisableCoreDumps() error {
	return unix.Setrlimit(unix.RLIMIT_CORE, &unix.Rlimit{Cur: 0, Max: 0})
}

// CoreDumpsEnabled reports whether the process may write a core file.
func CoreDumpsEnabled() bool {
	var rlimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_CORE, &rlimit); err != nil {
		return true
	}
	return rlimit.Cur > 0
}
