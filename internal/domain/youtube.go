package domain

import (
	"regexp"
	"strings"
)

// Accepted YouTube video URL shapes. Matching is purely pattern-based,
// no network access.
var videoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(?:https?://)?(?:www\.)?youtube\.com/watch\?.*v=([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`^(?:https?://)?youtu\.be/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`^(?:https?://)?(?:www\.)?youtube\.com/shorts/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`^(?:https?://)?(?:www\.)?youtube\.com/embed/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`^(?:https?://)?(?:www\.)?youtube\.com/v/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`^(?:https?://)?m\.youtube\.com/watch\?.*v=([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`^(?:https?://)?music\.youtube\.com/watch\?.*v=([a-zA-Z0-9_-]{11})`),
}

var playlistPattern = regexp.MustCompile(`^(?:https?://)?(?:www\.)?youtube\.com/playlist\?.*list=([a-zA-Z0-9_-]+)`)

// A list= parameter anywhere in the URL also marks a playlist reference.
var playlistInURLPattern = regexp.MustCompile(`[?&]list=([a-zA-Z0-9_-]+)`)

// IsVideoURL reports whether url references a single video.
func IsVideoURL(url string) bool {
	url = strings.TrimSpace(url)
	if url == "" {
		return false
	}
	for _, p := range videoPatterns {
		if p.MatchString(url) {
			return true
		}
	}
	return false
}

// IsPlaylistURL reports whether url carries a playlist reference. A video
// URL with a list= parameter satisfies both predicates.
func IsPlaylistURL(url string) bool {
	url = strings.TrimSpace(url)
	if url == "" {
		return false
	}
	return playlistPattern.MatchString(url) || playlistInURLPattern.MatchString(url)
}

// ExtractVideoID returns the 11-character video ID, or "" if none matches.
func ExtractVideoID(url string) string {
	url = strings.TrimSpace(url)
	for _, p := range videoPatterns {
		if m := p.FindStringSubmatch(url); m != nil {
			return m[1]
		}
	}
	return ""
}

// ExtractPlaylistID returns the playlist ID, or "" if none matches.
func ExtractPlaylistID(url string) string {
	url = strings.TrimSpace(url)
	if m := playlistPattern.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	if m := playlistInURLPattern.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return ""
}
