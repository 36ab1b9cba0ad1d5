package scrape

import (
	"net/http"
	"strings"
)

// BlockType describes the kind of anti-bot response detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockBotManager BlockType = "bot_manager"
	BlockJSShell    BlockType = "js_shell"
)

var botManagerMarkers = []string{
	"datadome",
	"perimeterx",
	"px-captcha",
	"_incapsula_resource",
	"access denied</title>",
}

// DetectBlock inspects a response for anti-bot protection. A blocked page
// is treated as a strategy failure so the chain falls through to the next
// strategy.
func DetectBlock(statusCode int, header http.Header, body []byte) BlockType {
	if statusCode == http.StatusForbidden || statusCode == http.StatusServiceUnavailable {
		if header.Get("cf-ray") != "" || header.Get("cf-mitigated") != "" ||
			strings.EqualFold(header.Get("server"), "cloudflare") {
			return BlockCloudflare
		}
	}

	lower := strings.ToLower(string(body))

	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") ||
		strings.Contains(lower, "just a moment...</title>") {
		return BlockCloudflare
	}

	if strings.Contains(lower, "g-recaptcha") ||
		strings.Contains(lower, "h-captcha") ||
		strings.Contains(lower, "complete the captcha") ||
		strings.Contains(lower, "complete the recaptcha") {
		return BlockCaptcha
	}

	for _, m := range botManagerMarkers {
		if strings.Contains(lower, m) {
			return BlockBotManager
		}
	}

	// Small shell pages that only bootstrap a JS app.
	if len(body) < 2000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "enable javascript") {
			return BlockJSShell
		}
		if strings.Contains(lower, `http-equiv="refresh"`) {
			return BlockJSShell
		}
	}

	return BlockNone
}
