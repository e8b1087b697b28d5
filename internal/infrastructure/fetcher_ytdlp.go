package infrastructure

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/yourusername/yt-dwn/internal/domain"
)

// YTDLPFetcher implements domain.Fetcher by shelling out to the yt-dlp
// binary. It performs no extraction logic of its own: metadata comes from
// --dump-single-json and downloads from the regular CLI surface, with
// progress parsed off stdout.
type YTDLPFetcher struct {
	binary string
	logger *zap.Logger
}

// NewYTDLPFetcher creates a new yt-dlp bridge
func NewYTDLPFetcher(binary string, logger *zap.Logger) *YTDLPFetcher {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &YTDLPFetcher{binary: binary, logger: logger}
}

// ytdlpInfo mirrors the subset of yt-dlp's JSON output this system reads.
// Subtitle maps carry per-language format lists; only the keys matter here.
type ytdlpInfo struct {
	ID         string                     `json:"id"`
	Title      string                     `json:"title"`
	Channel    string                     `json:"channel"`
	Uploader   string                     `json:"uploader"`
	Duration   float64                    `json:"duration"`
	Thumbnail  string                     `json:"thumbnail"`
	ViewCount  int64                      `json:"view_count"`
	UploadDate string                     `json:"upload_date"`
	Resolution string                     `json:"resolution"`
	Subtitles  map[string]json.RawMessage `json:"subtitles"`
	AutoCaps   map[string]json.RawMessage `json:"automatic_captions"`
	Entries    []ytdlpEntry               `json:"entries"`
}

type ytdlpEntry struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	WebpageURL string  `json:"webpage_url"`
	Duration   float64 `json:"duration"`
}

// dump runs yt-dlp with --dump-single-json and decodes the result.
func (f *YTDLPFetcher) dump(ctx context.Context, url string) (*ytdlpInfo, error) {
	args := []string{
		"--dump-single-json",
		"--no-check-certificates",
		"--no-warnings",
	}
	if domain.IsPlaylistURL(url) && !domain.IsVideoURL(url) {
		args = append(args, "--flat-playlist")
	}
	args = append(args, url)

	cmd := exec.CommandContext(ctx, f.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, &domain.MetadataError{URL: url, Err: commandError(err, stderr.String())}
	}

	var info ytdlpInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, &domain.MetadataError{URL: url, Err: fmt.Errorf("unexpected yt-dlp output: %w", err)}
	}
	return &info, nil
}

// ResolveMetadata retrieves metadata for a video or playlist URL. Playlist
// references are resolved flat (entry list only, no per-entry formats).
func (f *YTDLPFetcher) ResolveMetadata(ctx context.Context, url string) (*domain.Metadata, error) {
	info, err := f.dump(ctx, url)
	if err != nil {
		return nil, err
	}

	md := &domain.Metadata{
		NativeID:   info.ID,
		Title:      info.Title,
		Channel:    channelName(*info),
		Duration:   int(info.Duration),
		Thumbnail:  info.Thumbnail,
		ViewCount:  info.ViewCount,
		UploadDate: info.UploadDate,
		Resolution: info.Resolution,
	}
	for i, entry := range info.Entries {
		md.Entries = append(md.Entries, domain.PlaylistEntry{
			Index:    i + 1,
			ID:       entry.ID,
			Title:    entry.Title,
			URL:      entryWatchURL(entry),
			Duration: int(entry.Duration),
		})
	}
	return md, nil
}

// Fetch downloads the media referenced by url. Progress lines from yt-dlp
// are forwarded to opts.OnProgress in arrival order; processing steps
// (merge, audio extraction) go to opts.OnLog.
func (f *YTDLPFetcher) Fetch(ctx context.Context, url string, opts domain.FetchOptions) (*domain.FetchResult, error) {
	info, err := f.ResolveMetadata(ctx, url)
	if err != nil {
		return nil, classifyFetchError(url, err)
	}

	title := SanitizeFilename(info.Title)
	if title == "" {
		title = "video"
	}
	channel := info.Channel
	if channel == "" {
		channel = "Unknown"
	}

	outputDir, err := ResolveOutputPath(opts.OutputDir, opts.Category, channel)
	if err != nil {
		return nil, &domain.FetchError{URL: url, Err: fmt.Errorf("failed to create output directory: %w", err)}
	}
	outputTemplate := filepath.Join(outputDir, title+".%(ext)s")

	args := f.buildFetchArgs(url, outputTemplate, opts)

	f.logger.Debug("Running yt-dlp",
		zap.String("url", url),
		zap.Strings("args", args))

	cmd := exec.CommandContext(ctx, f.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &domain.FetchError{URL: url, Err: err}
	}
	if err := cmd.Start(); err != nil {
		return nil, &domain.FetchError{URL: url, Err: err}
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		f.forwardLine(scanner.Text(), opts)
	}
	if err := scanner.Err(); err != nil {
		// The download may still succeed; only progress forwarding is cut.
		f.logger.Warn("Reading yt-dlp output failed",
			zap.String("url", url),
			zap.Error(err))
	}

	if err := cmd.Wait(); err != nil {
		return nil, classifyFetchError(url, commandError(err, stderr.String()))
	}

	ext := outputExt(opts)
	return &domain.FetchResult{
		FilePath: filepath.Join(outputDir, title+"."+ext),
		Title:    info.Title,
		Channel:  info.Channel,
		NativeID: info.NativeID,
		Duration: info.Duration,
	}, nil
}

// ListSubtitles enumerates the caption languages yt-dlp reports for url.
func (f *YTDLPFetcher) ListSubtitles(ctx context.Context, url string) (*domain.SubtitleInfo, error) {
	info, err := f.dump(ctx, url)
	if err != nil {
		return nil, err
	}
	return &domain.SubtitleInfo{
		Title:     info.Title,
		Manual:    subtitleLanguages(info.Subtitles),
		Automatic: subtitleLanguages(info.AutoCaps),
	}, nil
}

// FetchSubtitles downloads only the subtitles of url, under
// <outputDir>/<channel>, and returns that directory.
func (f *YTDLPFetcher) FetchSubtitles(ctx context.Context, url string, opts domain.SubtitleOptions) (string, error) {
	info, err := f.dump(ctx, url)
	if err != nil {
		return "", err
	}

	title := SanitizeFilename(info.Title)
	if title == "" {
		title = "video"
	}
	channel := channelName(*info)
	if channel == "" {
		channel = "Unknown"
	}

	outputDir, err := ResolveOutputPath(opts.OutputDir, "", channel)
	if err != nil {
		return "", &domain.FetchError{URL: url, Err: fmt.Errorf("failed to create output directory: %w", err)}
	}

	args := buildSubtitleArgs(url, filepath.Join(outputDir, title+".%(ext)s"), opts)

	f.logger.Debug("Running yt-dlp for subtitles",
		zap.String("url", url),
		zap.Strings("args", args))

	cmd := exec.CommandContext(ctx, f.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", classifyFetchError(url, commandError(err, stderr.String()))
	}
	return outputDir, nil
}

// buildSubtitleArgs assembles a subtitle-only yt-dlp invocation.
func buildSubtitleArgs(url, outputTemplate string, opts domain.SubtitleOptions) []string {
	args := []string{
		"-o", outputTemplate,
		"--write-subs",
		"--sub-langs", opts.Langs,
		"--sub-format", "srt/best",
		"--skip-download",
		"--no-check-certificates",
		"--no-warnings",
	}
	if opts.AutoSubs {
		args = append(args, "--write-auto-subs")
	}
	return append(args, url)
}

// subtitleLanguages returns the sorted language keys of a caption map.
func subtitleLanguages(caps map[string]json.RawMessage) []string {
	if len(caps) == 0 {
		return nil
	}
	langs := make([]string, 0, len(caps))
	for lang := range caps {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// buildFetchArgs assembles the yt-dlp invocation for one download.
func (f *YTDLPFetcher) buildFetchArgs(url, outputTemplate string, opts domain.FetchOptions) []string {
	args := []string{
		"-f", formatSelector(opts.Quality, opts.AudioOnly),
		"-o", outputTemplate,
		"--no-check-certificates",
		"--no-warnings",
		"--prefer-free-formats",
		"--newline",
		"--concurrent-fragments", strconv.Itoa(opts.Fragments),
	}

	if opts.AudioOnly {
		args = append(args,
			"--extract-audio",
			"--audio-format", audioFormat(opts.Format),
			"--audio-quality", audioQuality(opts.Quality),
		)
	} else {
		args = append(args, "--merge-output-format", opts.Format)
	}

	if opts.Subtitles {
		args = append(args,
			"--write-subs",
			"--write-auto-subs",
			"--sub-langs", opts.SubLang,
			"--sub-format", "srt/best",
		)
	}

	return append(args, url)
}

// forwardLine routes one yt-dlp stdout line to the job's callbacks.
func (f *YTDLPFetcher) forwardLine(line string, opts domain.FetchOptions) {
	if percent, speed, eta, ok := parseProgressLine(line); ok {
		if opts.OnProgress != nil {
			opts.OnProgress(percent, speed, eta)
		}
		return
	}

	trimmed := strings.TrimSpace(line)
	if strings.Contains(trimmed, "[Merger]") ||
		strings.Contains(trimmed, "[ExtractAudio]") ||
		strings.Contains(trimmed, "[ffmpeg]") {
		if opts.OnLog != nil {
			opts.OnLog("info", trimmed)
		}
	}
}

var progressPattern = regexp.MustCompile(
	`\[download\]\s+([\d.]+)%\s+of\s+~?\s*[\d.]+\w+\s+at\s+([\d.]+\w+/s|Unknown speed)\s+ETA\s+([\d:]+|Unknown)`)

// parseProgressLine extracts percent, speed and ETA from a yt-dlp
// "[download]" progress line.
func parseProgressLine(line string) (percent float64, speed, eta string, ok bool) {
	m := progressPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, "", "", false
	}
	percent, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, "", "", false
	}
	return percent, m[2], m[3], true
}

// formatSelector maps the quality tier to a yt-dlp format selector.
func formatSelector(quality domain.Quality, audioOnly bool) string {
	if audioOnly {
		return "bestaudio/best"
	}
	switch quality {
	case domain.QualityMedium:
		return "bestvideo[height<=720][ext=mp4]+bestaudio[ext=m4a]/bestvideo[height<=720]+bestaudio/best"
	case domain.QualityLow:
		return "bestvideo[height<=480][ext=mp4]+bestaudio[ext=m4a]/bestvideo[height<=480]+bestaudio/best"
	default:
		return "bestvideo[ext=mp4]+bestaudio[ext=m4a]/bestvideo+bestaudio/best"
	}
}

// audioFormat picks the extraction format for audio-only downloads. A
// video container requested together with audio-only falls back to mp3.
func audioFormat(format string) string {
	if format == "mp4" {
		return "mp3"
	}
	return format
}

func audioQuality(quality domain.Quality) string {
	switch quality {
	case domain.QualityMedium:
		return "5"
	case domain.QualityLow:
		return "9"
	default:
		return "0"
	}
}

func outputExt(opts domain.FetchOptions) string {
	if opts.AudioOnly {
		return audioFormat(opts.Format)
	}
	return opts.Format
}

func channelName(info ytdlpInfo) string {
	if info.Channel != "" {
		return info.Channel
	}
	return info.Uploader
}

func entryWatchURL(entry ytdlpEntry) string {
	if entry.URL != "" {
		return entry.URL
	}
	if entry.WebpageURL != "" {
		return entry.WebpageURL
	}
	return "https://www.youtube.com/watch?v=" + entry.ID
}

// commandError folds captured stderr into an exec error so failure
// reasons survive classification.
func commandError(err error, stderr string) error {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return err
	}
	// Keep only the last line, yt-dlp prints the real cause there.
	lines := strings.Split(stderr, "\n")
	return fmt.Errorf("%w: %s", err, strings.TrimSpace(lines[len(lines)-1]))
}

// classifyFetchError maps known yt-dlp failure modes to human-readable
// reasons; everything else passes through as a generic fetch failure.
func classifyFetchError(url string, err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "Video unavailable") || strings.Contains(msg, "is not available"):
		return &domain.FetchError{URL: url, Reason: "this video is unavailable; it may be private or removed", Err: err}
	case strings.Contains(msg, "age"):
		return &domain.FetchError{URL: url, Reason: "this video is age-restricted and cannot be downloaded without authentication", Err: err}
	case strings.Contains(msg, "copyright"):
		return &domain.FetchError{URL: url, Reason: "this video cannot be downloaded for copyright reasons", Err: err}
	case strings.Contains(msg, "Sign in") || strings.Contains(msg, "login"):
		return &domain.FetchError{URL: url, Reason: "this video requires login to access", Err: err}
	default:
		return &domain.FetchError{URL: url, Err: err}
	}
}
