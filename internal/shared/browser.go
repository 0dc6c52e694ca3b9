package shared

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"slices"
)

var getRuntime = func() string { return runtime.GOOS }

// launchers maps an OS to the command that hands a url to the default handler.
var launchers = map[string][]string{
	"darwin":  {"open"},
	"linux":   {"xdg-open"},
	"freebsd": {"xdg-open"},
	"windows": {"rundll32", "url.dll,FileProtocolHandler"},
}

// OpenBrowser opens an item url in the default system browser.
//
// Only absolute http and https urls are handed to the OS; anything else could launch a
// local program.
func OpenBrowser(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrUnsafeURL, raw)
	}

	rt := getRuntime()
	launcher, ok := launchers[rt]
	if !ok {
		return fmt.Errorf("unsupported platform: %s", rt)
	}

	args := append(slices.Clone(launcher[1:]), u.String())
	if err := exec.Command(launcher[0], args...).Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
