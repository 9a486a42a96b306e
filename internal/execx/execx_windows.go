//go:build windows

// Package execx builds helper process commands with platform quirks
// applied.
package execx

import (
	"os/exec"
	"syscall"
)

// Command creates a command that won't flash a console window when the
// recorder runs without one.
func Command(name string, args ...string) *exec.Cmd {
	cmd := exec.Command(name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: 0x08000000, // CREATE_NO_WINDOW
	}
	return cmd
}
