package navigation

import (
	"fmt"
	"io"
	"net/url"

	"github.com/pkg/browser"
)

// Browser performs a full top-level redirect to an external URL.
type Browser interface {
	Open(rawURL string) error
}

// SystemBrowser opens URLs with the desktop's default browser and echoes
// them to Out so headless users can copy them.
type SystemBrowser struct {
	Out io.Writer
}

var openURL = browser.OpenURL

func (b SystemBrowser) Open(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("refusing to open %q: not an absolute http(s) URL", rawURL)
	}
	if b.Out != nil {
		fmt.Fprintf(b.Out, "Opening %s\n", rawURL)
	}
	if err := openURL(rawURL); err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	return nil
}
