// Package video classifies links that point at playable media.
package video

import (
	"net/url"
	"strings"
)

// IsLowResolutionVideoURL reports whether the URL points at a directly
// playable MP4 rendition. Query strings and fragments are ignored.
func IsLowResolutionVideoURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	path := raw
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	return strings.HasSuffix(strings.ToLower(path), ".mp4")
}

// IsVideoLink reports whether the URL is an embeddable video: YouTube, Vimeo
// or a low-resolution MP4.
func IsVideoLink(raw string) bool {
	if IsLowResolutionVideoURL(raw) {
		return true
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch host {
	case "youtube.com", "youtu.be", "youtube-nocookie.com", "vimeo.com", "player.vimeo.com":
		return true
	}
	return false
}
