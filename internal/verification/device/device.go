// Package device summarizes verifier User-Agent strings for the
// verification trail.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

// Summarize extracts a human-readable device name from a User-Agent
// string, "Browser on OS" style.
func Summarize(userAgentString string) string {
	if userAgentString == "" {
		return "Unknown Device"
	}

	ua := useragent.New(userAgentString)
	browser, _ := ua.Browser()
	os := ua.OS()

	if ua.Bot() {
		if browser != "" {
			return browser + " (bot)"
		}
		return "Bot"
	}
	if ua.Mobile() {
		if platform := ua.Platform(); platform != "" {
			return strings.TrimSpace(browser + " on " + platform)
		}
	}
	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = "Unknown OS"
	}
	return strings.TrimSpace(browser + " on " + os)
}
