//go:build windows

// Package win32 provides Windows platform support using user32 and gdi32
// through golang.org/x/sys/windows.
package win32
