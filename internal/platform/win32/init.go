//go:build windows

package win32

import "github.com/mj1618/guidepilot/internal/platform"

func init() {
	platform.NewProviderFunc = func() (*platform.Provider, error) {
		if err := user32.Load(); err != nil {
			return nil, err
		}
		if err := gdi32.Load(); err != nil {
			return nil, err
		}
		return &platform.Provider{
			WindowManager: NewWindowManager(),
			Inputter:      NewInputter(),
			Screenshotter: NewScreenshotter(),
		}, nil
	}
}
