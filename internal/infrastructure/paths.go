package infrastructure

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`)
var whitespaceRun = regexp.MustCompile(`\s+`)

// SanitizeFilename strips reserved characters, collapses whitespace to
// underscores and caps the result at 200 runes.
func SanitizeFilename(name string) string {
	name = invalidFilenameChars.ReplaceAllString(name, "")
	name = whitespaceRun.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_ ")
	runes := []rune(name)
	if len(runes) > 200 {
		runes = runes[:200]
	}
	return string(runes)
}

// ResolveOutputPath builds and creates baseDir/<category>/<channel>,
// sanitizing both optional segments.
func ResolveOutputPath(baseDir, category, channel string) (string, error) {
	outputDir := baseDir
	if category != "" {
		outputDir = filepath.Join(outputDir, SanitizeFilename(category))
	}
	if channel != "" {
		outputDir = filepath.Join(outputDir, SanitizeFilename(channel))
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}
	return outputDir, nil
}
