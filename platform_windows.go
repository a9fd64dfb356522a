package main

// Registers the Win32 provider.
import _ "github.com/mj1618/guidepilot/internal/platform/win32"
