package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCategory(t *testing.T) {
	for _, c := range ValidCategories {
		assert.NoError(t, ValidateCategory(c))
	}

	err := ValidateCategory("Esportes")
	require.Error(t, err)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "category", verr.Field)
}

func TestValidateFormat(t *testing.T) {
	assert.NoError(t, ValidateFormat("mp4"))
	assert.NoError(t, ValidateFormat("flac"))
	assert.Error(t, ValidateFormat("avi"))
	assert.Error(t, ValidateFormat(""))
}

func TestValidateQuality(t *testing.T) {
	assert.NoError(t, ValidateQuality(QualityHigh))
	assert.NoError(t, ValidateQuality(QualityMedium))
	assert.NoError(t, ValidateQuality(QualityLow))
	assert.Error(t, ValidateQuality("ultra"))
}

func TestDownloadOptionsApplyDefaults(t *testing.T) {
	opts := DownloadOptions{}
	opts.ApplyDefaults()
	assert.Equal(t, QualityHigh, opts.Quality)
	assert.Equal(t, "mp4", opts.Format)
	assert.Equal(t, "./downloads", opts.OutputDir)
	assert.Equal(t, "pt,en", opts.SubLang)
	assert.Equal(t, 3, opts.Concurrency)
	assert.Equal(t, 4, opts.Fragments)
}

func TestDownloadOptionsAudioOnlyDefaultsToMP3(t *testing.T) {
	opts := DownloadOptions{AudioOnly: true}
	opts.ApplyDefaults()
	assert.Equal(t, "mp3", opts.Format)
}

func TestDownloadOptionsValidate(t *testing.T) {
	opts := DownloadOptions{Quality: QualityHigh, Format: "mp4"}
	assert.NoError(t, opts.Validate())

	opts.Category = "Músicas"
	assert.NoError(t, opts.Validate())

	opts.Category = "invalid"
	assert.Error(t, opts.Validate())

	opts = DownloadOptions{Quality: "turbo", Format: "mp4"}
	assert.Error(t, opts.Validate())
}

func TestVideoIsTerminal(t *testing.T) {
	v := &Video{Status: StatusPending}
	assert.False(t, v.IsTerminal())
	v.Status = StatusDownloading
	assert.False(t, v.IsTerminal())
	v.Status = StatusDone
	assert.True(t, v.IsTerminal())
	v.Status = StatusError
	assert.True(t, v.IsTerminal())
}
