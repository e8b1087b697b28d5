package app

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/yourusername/yt-dwn/internal/domain"
)

// BatchItem is one entry of a batch download file. Per-item fields
// override the batch-level options when set.
type BatchItem struct {
	URL       string         `json:"url"`
	Quality   domain.Quality `json:"quality,omitempty"`
	Format    string         `json:"format,omitempty"`
	AudioOnly *bool          `json:"audioOnly,omitempty"`
}

// ParseBatchFile reads and validates a batch download file: a JSON array
// of URL strings or {url, quality?, format?, audioOnly?} objects.
func ParseBatchFile(path string) ([]BatchItem, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("batch file must be a JSON array: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("batch file is empty")
	}

	items := make([]BatchItem, 0, len(raw))
	for i, entry := range raw {
		var url string
		if err := json.Unmarshal(entry, &url); err == nil {
			if !domain.IsVideoURL(url) {
				return nil, fmt.Errorf("invalid URL at position %d: %s", i+1, url)
			}
			items = append(items, BatchItem{URL: url})
			continue
		}

		var item BatchItem
		if err := json.Unmarshal(entry, &item); err != nil {
			return nil, fmt.Errorf("invalid item at position %d: expected string or object", i+1)
		}
		if item.URL == "" {
			return nil, fmt.Errorf("item at position %d has no \"url\" field", i+1)
		}
		if !domain.IsVideoURL(item.URL) {
			return nil, fmt.Errorf("invalid URL at position %d: %s", i+1, item.URL)
		}
		if item.Quality != "" {
			if err := domain.ValidateQuality(item.Quality); err != nil {
				return nil, fmt.Errorf("item at position %d: %w", i+1, err)
			}
		}
		if item.Format != "" {
			if err := domain.ValidateFormat(item.Format); err != nil {
				return nil, fmt.Errorf("item at position %d: %w", i+1, err)
			}
		}
		items = append(items, item)
	}

	return items, nil
}

// Options merges batch-level options with this item's overrides.
func (b BatchItem) Options(base domain.DownloadOptions) domain.DownloadOptions {
	opts := base
	if b.Quality != "" {
		opts.Quality = b.Quality
	}
	if b.Format != "" {
		opts.Format = b.Format
	}
	if b.AudioOnly != nil {
		opts.AudioOnly = *b.AudioOnly
	}
	return opts
}
