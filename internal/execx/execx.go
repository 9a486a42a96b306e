//go:build !windows

// Package execx builds helper process commands with platform quirks
// applied.
package execx

import "os/exec"

// Command wraps exec.Command; on this platform there is nothing to
// adjust.
func Command(name string, args ...string) *exec.Cmd {
	return exec.Command(name, args...)
}
