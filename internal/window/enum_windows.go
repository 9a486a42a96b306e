//go:build windows

package window

import (
	"path/filepath"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	apperrors "github.com/CoShineApp/Buckwheat/internal/errors"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	dwmapi   = windows.NewLazySystemDLL("dwmapi.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procEnumWindows              = user32.NewProc("EnumWindows")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
	procGetWindowTextLengthW     = user32.NewProc("GetWindowTextLengthW")
	procIsWindowVisible          = user32.NewProc("IsWindowVisible")
	procGetWindowRect            = user32.NewProc("GetWindowRect")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
	procGetClassNameW            = user32.NewProc("GetClassNameW")
	procGetSystemMetrics         = user32.NewProc("GetSystemMetrics")
	procDwmGetWindowAttribute    = dwmapi.NewProc("DwmGetWindowAttribute")
	procQueryFullProcessImage    = kernel32.NewProc("QueryFullProcessImageNameW")
)

const (
	dwmwaCloaked = 14
	smCxScreen   = 0
	smCyScreen   = 1
)

type rect struct {
	Left, Top, Right, Bottom int32
}

type win32Enumerator struct{}

// NewEnumerator returns the native Win32 enumerator.
func NewEnumerator() Enumerator { return win32Enumerator{} }

// Win32 callbacks are registered once and never released, so the
// enumeration callback is shared and results flow through a guarded
// package slice instead of a fresh closure per call.
var (
	enumMu      sync.Mutex
	enumResult  []Window
	enumWinProc = syscall.NewCallback(func(hwnd, _ uintptr) uintptr {
		if w, ok := inspectWindow(hwnd); ok {
			enumResult = append(enumResult, w)
		}
		return 1
	})
)

func (win32Enumerator) Windows() ([]Window, error) {
	enumMu.Lock()
	defer enumMu.Unlock()

	enumResult = nil
	ret, _, callErr := procEnumWindows.Call(enumWinProc, 0)
	if ret == 0 {
		return nil, apperrors.Wrap(callErr, apperrors.CodeTargetEnumeration, "EnumWindows failed")
	}
	out := enumResult
	enumResult = nil
	return out, nil
}

func (win32Enumerator) PrimaryDisplay() (Display, error) {
	w, _, _ := procGetSystemMetrics.Call(smCxScreen)
	h, _, _ := procGetSystemMetrics.Call(smCyScreen)
	if w == 0 || h == 0 {
		return Display{}, apperrors.New(apperrors.CodeTargetEnumeration, "GetSystemMetrics returned zero display size")
	}
	return Display{Index: 0, Width: int32(w), Height: int32(h), Primary: true}, nil
}

func inspectWindow(hwnd uintptr) (Window, bool) {
	if vis, _, _ := procIsWindowVisible.Call(hwnd); vis == 0 {
		return Window{}, false
	}
	title := windowText(hwnd)
	if title == "" {
		return Window{}, false
	}

	var pid uint32
	procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&pid)))

	var r rect
	procGetWindowRect.Call(hwnd, uintptr(unsafe.Pointer(&r)))

	return Window{
		Handle:  hwnd,
		Title:   title,
		PID:     pid,
		Process: processName(pid),
		Class:   className(hwnd),
		X:       r.Left,
		Y:       r.Top,
		Width:   r.Right - r.Left,
		Height:  r.Bottom - r.Top,
		Cloaked: isCloaked(hwnd),
	}, true
}

func windowText(hwnd uintptr) string {
	n, _, _ := procGetWindowTextLengthW.Call(hwnd)
	if n == 0 {
		return ""
	}
	buf := make([]uint16, n+1)
	procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), n+1)
	return windows.UTF16ToString(buf)
}

func className(hwnd uintptr) string {
	buf := make([]uint16, 256)
	n, _, _ := procGetClassNameW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 {
		return ""
	}
	return windows.UTF16ToString(buf[:n])
}

// isCloaked detects DWM-cloaked windows (minimized UWP apps and other
// invisible-but-"visible" surfaces).
func isCloaked(hwnd uintptr) bool {
	var cloaked uint32
	hr, _, _ := procDwmGetWindowAttribute.Call(
		hwnd,
		dwmwaCloaked,
		uintptr(unsafe.Pointer(&cloaked)),
		unsafe.Sizeof(cloaked),
	)
	return hr == 0 && cloaked != 0
}

func processName(pid uint32) string {
	if pid == 0 {
		return ""
	}
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(h)

	buf := make([]uint16, windows.MAX_PATH)
	size := uint32(len(buf))
	ret, _, _ := procQueryFullProcessImage.Call(uintptr(h), 0, uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&size)))
	if ret == 0 {
		return ""
	}
	return filepath.Base(windows.UTF16ToString(buf[:size]))
}
