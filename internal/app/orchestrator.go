package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/yt-dwn/internal/domain"
)

// Orchestrator turns a URL into one or more tracked download jobs, runs
// them under the batch runner and reconciles final status. Persistence is
// opt-in per request: submissions without a category skip the store
// entirely while driving the same pipeline.
type Orchestrator struct {
	repo    domain.VideoRepository
	fetcher domain.Fetcher
	bus     *EventBus
	logger  *zap.Logger
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(
	repo domain.VideoRepository,
	fetcher domain.Fetcher,
	bus *EventBus,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		repo:    repo,
		fetcher: fetcher,
		bus:     bus,
		logger:  logger,
	}
}

// jobSpec is one expanded download unit. videoID is zero when the job is
// not persisted.
type jobSpec struct {
	url     string
	videoID uint
}

// Submit classifies url, expands it into job specs, registers records
// when a category was supplied, and runs every job to a terminal state.
// It returns the created record IDs and the aggregate batch outcome.
// Validation and metadata failures are reported synchronously; per-job
// fetch failures land in the batch result only.
func (o *Orchestrator) Submit(ctx context.Context, url string, opts domain.DownloadOptions) ([]uint, *BatchResult, error) {
	opts.ApplyDefaults()
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}
	if !domain.IsVideoURL(url) && !domain.IsPlaylistURL(url) {
		return nil, nil, domain.NewValidationError("url", url, nil)
	}

	specs, err := o.expand(ctx, url)
	if err != nil {
		return nil, nil, err
	}

	persist := opts.Category != ""
	ids := make([]uint, 0, len(specs))
	if persist {
		for i := range specs {
			video := &domain.Video{
				URL:         specs[i].url,
				Category:    opts.Category,
				Format:      opts.Format,
				AudioOnly:   opts.AudioOnly,
				Quality:     opts.Quality,
				Subtitles:   opts.Subtitles,
				SubLang:     opts.SubLang,
				Concurrency: opts.Concurrency,
				Fragments:   opts.Fragments,
				Status:      domain.StatusPending,
			}
			if err := o.repo.Create(video); err != nil {
				return ids, nil, err
			}
			specs[i].videoID = video.ID
			ids = append(ids, video.ID)
		}
	}

	tasks := make([]Task, len(specs))
	for i, spec := range specs {
		spec := spec
		tasks[i] = Task{
			URL: spec.url,
			Run: func(ctx context.Context) error {
				return o.runJob(ctx, spec, opts)
			},
		}
	}

	result := RunBatch(ctx, tasks, opts.Concurrency)

	o.logger.Info("Batch finished",
		zap.String("url", url),
		zap.Int("jobs", len(specs)),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", len(result.Failed)))

	return ids, result, nil
}

// expand resolves url into one spec per item. A URL that matches the
// single-video patterns is always treated as a single item, even when it
// also carries a playlist parameter.
func (o *Orchestrator) expand(ctx context.Context, url string) ([]jobSpec, error) {
	if !domain.IsPlaylistURL(url) || domain.IsVideoURL(url) {
		return []jobSpec{{url: url}}, nil
	}

	md, err := o.fetcher.ResolveMetadata(ctx, url)
	if err != nil {
		return nil, err
	}

	o.logger.Info("Playlist resolved",
		zap.String("url", url),
		zap.String("title", md.Title),
		zap.Int("entries", len(md.Entries)))

	specs := make([]jobSpec, 0, len(md.Entries))
	for _, entry := range md.Entries {
		specs = append(specs, jobSpec{url: entryURL(entry)})
	}
	return specs, nil
}

// entryURL normalizes a playlist entry to an absolute watch URL. Flat
// playlist extraction sometimes yields bare IDs instead of URLs.
func entryURL(entry domain.PlaylistEntry) string {
	if len(entry.URL) >= 4 && entry.URL[:4] == "http" {
		return entry.URL
	}
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", entry.ID)
}

// runJob drives a single job through its state machine:
// pending -> downloading -> done, or downloading -> error followed by
// record deletion (failed attempts are not retained).
func (o *Orchestrator) runJob(ctx context.Context, spec jobSpec, opts domain.DownloadOptions) error {
	persisted := spec.videoID != 0

	if persisted {
		if err := o.repo.UpdateFields(spec.videoID, map[string]interface{}{
			"status": domain.StatusDownloading,
		}); err != nil {
			return err
		}
	}

	fetchOpts := domain.FetchOptions{
		Quality:   opts.Quality,
		AudioOnly: opts.AudioOnly,
		Format:    opts.Format,
		OutputDir: opts.OutputDir,
		Category:  opts.Category,
		Subtitles: opts.Subtitles,
		SubLang:   opts.SubLang,
		Fragments: opts.Fragments,
	}
	if persisted {
		fetchOpts.OnProgress = func(percent float64, speed, eta string) {
			o.bus.Publish(spec.videoID, Event{
				Type:    EventProgress,
				Percent: percent,
				Speed:   speed,
				ETA:     eta,
			})
		}
		fetchOpts.OnLog = func(level, message string) {
			o.bus.Publish(spec.videoID, Event{
				Type:    EventLog,
				Level:   level,
				Message: message,
			})
		}
	}

	result, err := o.fetcher.Fetch(ctx, spec.url, fetchOpts)
	if err != nil {
		o.logger.Warn("Download failed",
			zap.Uint("video_id", spec.videoID),
			zap.String("url", spec.url),
			zap.Error(err))

		if persisted {
			o.bus.Publish(spec.videoID, Event{Type: EventError, Error: err.Error()})
			if delErr := o.repo.Delete(spec.videoID); delErr != nil {
				o.logger.Error("Failed to delete record after fetch failure",
					zap.Uint("video_id", spec.videoID), zap.Error(delErr))
			}
		}
		return err
	}

	if persisted {
		now := time.Now()
		if err := o.repo.UpdateFields(spec.videoID, map[string]interface{}{
			"status":        domain.StatusDone,
			"title":         result.Title,
			"channel":       result.Channel,
			"youtube_id":    result.NativeID,
			"file_path":     result.FilePath,
			"duration":      result.Duration,
			"downloaded_at": &now,
		}); err != nil {
			return err
		}
		o.bus.Publish(spec.videoID, Event{
			Type:     EventDone,
			Title:    result.Title,
			FilePath: result.FilePath,
		})
	}

	o.logger.Info("Download completed",
		zap.Uint("video_id", spec.videoID),
		zap.String("url", spec.url),
		zap.String("file", result.FilePath))

	return nil
}

// Info resolves metadata for a single video without downloading.
func (o *Orchestrator) Info(ctx context.Context, url string) (*domain.Metadata, error) {
	if !domain.IsVideoURL(url) {
		return nil, domain.NewValidationError("url", url, nil)
	}
	return o.fetcher.ResolveMetadata(ctx, url)
}

// Subtitles lists the caption languages available for a single video.
func (o *Orchestrator) Subtitles(ctx context.Context, url string) (*domain.SubtitleInfo, error) {
	if !domain.IsVideoURL(url) {
		return nil, domain.NewValidationError("url", url, nil)
	}
	return o.fetcher.ListSubtitles(ctx, url)
}

// DownloadSubtitles fetches only the subtitles of a single video and
// returns the directory they were written to.
func (o *Orchestrator) DownloadSubtitles(ctx context.Context, url string, opts domain.SubtitleOptions) (string, error) {
	if !domain.IsVideoURL(url) {
		return "", domain.NewValidationError("url", url, nil)
	}
	if opts.Langs == "" {
		opts.Langs = "pt,en"
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "./downloads"
	}
	return o.fetcher.FetchSubtitles(ctx, url, opts)
}
