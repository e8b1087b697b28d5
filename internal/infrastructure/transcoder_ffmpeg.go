package infrastructure

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/yourusername/yt-dwn/internal/domain"
)

// Formats the converter accepts as targets.
var supportedVideoFormats = []string{"mp4", "mkv", "webm", "avi", "mov"}
var supportedAudioFormats = []string{"mp3", "wav", "aac", "flac", "ogg", "m4a"}

// FFmpegTranscoder implements domain.Transcoder by shelling out to ffmpeg.
type FFmpegTranscoder struct {
	binary string
	logger *zap.Logger
}

// NewFFmpegTranscoder creates a new ffmpeg bridge
func NewFFmpegTranscoder(binary string, logger *zap.Logger) *FFmpegTranscoder {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegTranscoder{binary: binary, logger: logger}
}

// Convert converts inputPath into outputFormat next to the input file.
// Converting to the format the file already has is a no-op.
func (t *FFmpegTranscoder) Convert(ctx context.Context, inputPath, outputFormat string) (string, error) {
	if _, err := os.Stat(inputPath); err != nil {
		return "", &domain.ConversionError{Input: inputPath, Format: outputFormat, Err: fmt.Errorf("file not found")}
	}

	if !isSupportedTarget(outputFormat) {
		all := append(append([]string{}, supportedVideoFormats...), supportedAudioFormats...)
		return "", &domain.ConversionError{
			Input:  inputPath,
			Format: outputFormat,
			Err:    fmt.Errorf("unsupported format, use one of: %s", strings.Join(all, ", ")),
		}
	}

	inputExt := strings.ToLower(strings.TrimPrefix(filepath.Ext(inputPath), "."))
	if inputExt == outputFormat {
		return inputPath, nil
	}

	dir := filepath.Dir(inputPath)
	name := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputPath := filepath.Join(dir, name+"."+outputFormat)

	args := []string{"-y", "-i", inputPath}
	args = append(args, codecArgs(outputFormat)...)
	args = append(args, outputPath)

	t.logger.Info("Converting media file",
		zap.String("input", inputPath),
		zap.String("format", outputFormat))

	cmd := exec.CommandContext(ctx, t.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &domain.ConversionError{
			Input:  inputPath,
			Format: outputFormat,
			Err:    commandError(err, stderr.String()),
		}
	}

	return outputPath, nil
}

// codecArgs returns per-format quality defaults for audio targets.
func codecArgs(format string) []string {
	switch format {
	case "mp3":
		return []string{"-vn", "-b:a", "320k"}
	case "aac":
		return []string{"-vn", "-c:a", "aac", "-b:a", "256k"}
	case "flac":
		return []string{"-vn", "-c:a", "flac"}
	case "wav", "ogg", "m4a":
		return []string{"-vn"}
	default:
		return nil
	}
}

func isSupportedTarget(format string) bool {
	for _, f := range supportedVideoFormats {
		if f == format {
			return true
		}
	}
	for _, f := range supportedAudioFormats {
		if f == format {
			return true
		}
	}
	return false
}
