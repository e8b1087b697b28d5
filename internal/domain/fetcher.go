package domain

import "context"

// ProgressFunc receives incremental download progress for one job.
// Percent is monotonically increasing within a job.
type ProgressFunc func(percent float64, speed, eta string)

// LogFunc receives fetcher output lines for one job.
type LogFunc func(level, message string)

// Metadata describes a resolved URL. Entries is populated only for
// playlist references.
type Metadata struct {
	NativeID   string
	Title      string
	Channel    string
	Duration   int
	Thumbnail  string
	ViewCount  int64
	UploadDate string
	Resolution string
	Entries    []PlaylistEntry
}

// PlaylistEntry is one item of a resolved playlist. The sequence is
// consumed once to create job records and is not itself persisted.
type PlaylistEntry struct {
	Index    int
	ID       string
	Title    string
	URL      string
	Duration int
}

// FetchOptions carries the resolved per-job settings handed to the fetcher.
type FetchOptions struct {
	Quality    Quality
	AudioOnly  bool
	Format     string
	OutputDir  string
	Category   string
	Subtitles  bool
	SubLang    string
	Fragments  int
	OnProgress ProgressFunc
	OnLog      LogFunc
}

// SubtitleInfo lists the caption languages available for one video.
type SubtitleInfo struct {
	Title     string
	Manual    []string
	Automatic []string
}

// SubtitleOptions carries the settings for a subtitle-only download.
type SubtitleOptions struct {
	Langs     string
	OutputDir string
	AutoSubs  bool
}

// FetchResult is the outcome of a successful fetch.
type FetchResult struct {
	FilePath string
	Title    string
	Channel  string
	NativeID string
	Duration int
}

// Fetcher is the external media-extraction capability. Implementations
// report MetadataError from ResolveMetadata and FetchError from Fetch.
type Fetcher interface {
	// ResolveMetadata retrieves metadata for a video or playlist URL
	// without downloading anything.
	ResolveMetadata(ctx context.Context, url string) (*Metadata, error)

	// Fetch downloads the media referenced by url, forwarding progress
	// and log callbacks while it runs.
	Fetch(ctx context.Context, url string, opts FetchOptions) (*FetchResult, error)

	// ListSubtitles enumerates the manual and automatic caption languages
	// available for a video, without downloading anything.
	ListSubtitles(ctx context.Context, url string) (*SubtitleInfo, error)

	// FetchSubtitles downloads only the subtitles of a video and returns
	// the directory they were written to.
	FetchSubtitles(ctx context.Context, url string, opts SubtitleOptions) (string, error)
}

// Transcoder is the external format-conversion capability.
type Transcoder interface {
	// Convert converts inputPath into outputFormat and returns the
	// resulting path. Fails with ConversionError.
	Convert(ctx context.Context, inputPath, outputFormat string) (string, error)
}
