package scanner

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
)

// IsRedirectable reports whether payload is an absolute http or https URL
// with a host.
func IsRedirectable(payload string) bool {
	u, err := url.Parse(strings.TrimSpace(payload))
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Opener opens a scanned URL.
type Opener interface {
	Open(url string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(url string) error

func (f OpenerFunc) Open(url string) error {
	return f(url)
}

// BrowserOpener opens URLs in the system browser.
type BrowserOpener struct{}

func (BrowserOpener) Open(url string) error {
	if err := browser.OpenURL(url); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}

// LogOpener only logs the URL, for headless use.
type LogOpener struct{}

func (LogOpener) Open(url string) error {
	log.Info().Str("url", url).Msg("redirect")
	return nil
}
