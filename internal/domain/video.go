package domain

import (
	"time"
)

// VideoStatus represents the lifecycle status of a download job
type VideoStatus string

const (
	StatusPending     VideoStatus = "pending"
	StatusDownloading VideoStatus = "downloading"
	StatusDone        VideoStatus = "done"
	StatusError       VideoStatus = "error"
)

// Quality represents the requested quality tier
type Quality string

const (
	QualityHigh   Quality = "high"
	QualityMedium Quality = "medium"
	QualityLow    Quality = "low"
)

// ValidCategories are the fixed categories downloads are organized under
var ValidCategories = []string{"Histórias", "Músicas", "Educação", "Desenhos"}

// ValidFormats are the accepted output container/codec formats
var ValidFormats = []string{"mp4", "mkv", "webm", "mp3", "wav", "aac", "flac", "ogg"}

// Video represents one tracked download job
type Video struct {
	ID           uint        `json:"id" gorm:"primaryKey;autoIncrement"`
	YouTubeID    string      `json:"youtube_id,omitempty" gorm:"column:youtube_id"`
	URL          string      `json:"url" gorm:"not null"`
	Title        string      `json:"title,omitempty"`
	Channel      string      `json:"channel,omitempty"`
	Category     string      `json:"category" gorm:"not null;index"`
	Format       string      `json:"format" gorm:"not null;default:mp4"`
	AudioOnly    bool        `json:"audio_only" gorm:"not null;default:false"`
	Quality      Quality     `json:"quality" gorm:"not null;default:high"`
	Subtitles    bool        `json:"subtitles" gorm:"not null;default:false"`
	SubLang      string      `json:"sub_lang,omitempty"`
	Concurrency  int         `json:"concurrency" gorm:"default:3"`
	Fragments    int         `json:"fragments" gorm:"default:4"`
	FilePath     string      `json:"file_path,omitempty"`
	Thumbnail    string      `json:"thumbnail,omitempty"`
	Duration     int         `json:"duration,omitempty"`
	Status       VideoStatus `json:"status" gorm:"not null;default:pending;index"`
	ErrorMsg     string      `json:"error_msg,omitempty"`
	DownloadedAt *time.Time  `json:"downloaded_at,omitempty"`
	CreatedAt    time.Time   `json:"created_at" gorm:"autoCreateTime"`
}

// IsTerminal reports whether the video reached a terminal state
func (v *Video) IsTerminal() bool {
	return v.Status == StatusDone || v.Status == StatusError
}

// ValidateCategory checks the category against the fixed set
func ValidateCategory(category string) error {
	for _, c := range ValidCategories {
		if c == category {
			return nil
		}
	}
	return NewValidationError("category", category, ValidCategories)
}

// ValidateFormat checks the output format against the fixed set
func ValidateFormat(format string) error {
	for _, f := range ValidFormats {
		if f == format {
			return nil
		}
	}
	return NewValidationError("format", format, ValidFormats)
}

// ValidateQuality checks the quality tier
func ValidateQuality(quality Quality) error {
	switch quality {
	case QualityHigh, QualityMedium, QualityLow:
		return nil
	}
	return NewValidationError("quality", string(quality), []string{"high", "medium", "low"})
}

// DownloadOptions carries the per-request download settings.
// An empty Category means the request is not persisted to the store.
type DownloadOptions struct {
	Category    string
	Quality     Quality
	AudioOnly   bool
	Format      string
	OutputDir   string
	Subtitles   bool
	SubLang     string
	Concurrency int
	Fragments   int
}

// ApplyDefaults fills unset options with the original CLI defaults.
func (o *DownloadOptions) ApplyDefaults() {
	if o.Quality == "" {
		o.Quality = QualityHigh
	}
	if o.Format == "" {
		if o.AudioOnly {
			o.Format = "mp3"
		} else {
			o.Format = "mp4"
		}
	}
	if o.OutputDir == "" {
		o.OutputDir = "./downloads"
	}
	if o.SubLang == "" {
		o.SubLang = "pt,en"
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 3
	}
	if o.Fragments <= 0 {
		o.Fragments = 4
	}
}

// Validate checks quality, format and (when present) category.
func (o *DownloadOptions) Validate() error {
	if err := ValidateQuality(o.Quality); err != nil {
		return err
	}
	if err := ValidateFormat(o.Format); err != nil {
		return err
	}
	if o.Category != "" {
		if err := ValidateCategory(o.Category); err != nil {
			return err
		}
	}
	return nil
}
