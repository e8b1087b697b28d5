package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/yt-dwn/internal/app"
	"github.com/yourusername/yt-dwn/internal/domain"
	"github.com/yourusername/yt-dwn/internal/infrastructure"
	"github.com/yourusername/yt-dwn/pkg/logger"
)

var (
	configPath  string
	quality     string
	audioOnly   bool
	format      string
	outputDir   string
	category    string
	subtitles   bool
	subLang     string
	concurrency int
	fragments   int

	rootCmd = &cobra.Command{
		Use:   "yt-dwn [url]",
		Short: "yt-dwn - YouTube download manager",
		Long:  `A command-line tool for downloading YouTube videos and playlists, organized by category with persistent job tracking.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runDownload(args[0], nil)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path")
	rootCmd.PersistentFlags().StringVarP(&quality, "quality", "q", "", "Quality: high, medium, low")
	rootCmd.PersistentFlags().BoolVarP(&audioOnly, "audio-only", "a", false, "Audio only")
	rootCmd.PersistentFlags().StringVarP(&format, "format", "f", "", "Output format: mp4, mkv, webm, mp3, wav, aac, flac, ogg")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "Output directory")
	rootCmd.PersistentFlags().StringVarP(&category, "category", "C", "", "Category (enables job tracking)")
	rootCmd.PersistentFlags().BoolVarP(&subtitles, "subtitles", "s", false, "Download subtitles")
	rootCmd.PersistentFlags().StringVar(&subLang, "sub-lang", "", "Subtitle languages")
	rootCmd.PersistentFlags().IntVarP(&concurrency, "concurrency", "c", 0, "Parallel downloads (batch/playlist)")
	rootCmd.PersistentFlags().IntVar(&fragments, "fragments", 0, "Parallel fragments per video")

	rootCmd.AddCommand(playlistCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(subsCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(serveCmd)
}

// application bundles the wired services behind every command.
type application struct {
	config       *domain.Config
	log          *zap.Logger
	repo         *infrastructure.SQLiteVideoRepository
	bus          *app.EventBus
	orchestrator *app.Orchestrator
}

func newApplication() (*application, error) {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(config.Database.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	repo, err := infrastructure.NewSQLiteVideoRepository(config.Database.Path)
	if err != nil {
		return nil, err
	}

	bus := app.NewEventBus(log)
	fetcher := infrastructure.NewYTDLPFetcher(config.Download.YTDLPBinary, log)
	orchestrator := app.NewOrchestrator(repo, fetcher, bus, log)

	return &application{
		config:       config,
		log:          log,
		repo:         repo,
		bus:          bus,
		orchestrator: orchestrator,
	}, nil
}

func (a *application) Close() {
	a.repo.Close()
	a.log.Sync()
}

// options merges CLI flags over config defaults.
func (a *application) options() domain.DownloadOptions {
	opts := domain.DownloadOptions{
		Category:    category,
		Quality:     domain.Quality(quality),
		AudioOnly:   audioOnly,
		Format:      format,
		OutputDir:   outputDir,
		Subtitles:   subtitles,
		SubLang:     subLang,
		Concurrency: concurrency,
		Fragments:   fragments,
	}
	if opts.Quality == "" {
		opts.Quality = domain.Quality(a.config.Download.Quality)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = a.config.Download.OutputDir
	}
	if opts.SubLang == "" {
		opts.SubLang = a.config.Download.SubLang
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = a.config.Download.Concurrency
	}
	if opts.Fragments <= 0 {
		opts.Fragments = a.config.Download.Fragments
	}
	opts.ApplyDefaults()
	return opts
}

func runDownload(url string, override func(*domain.DownloadOptions)) error {
	application, err := newApplication()
	if err != nil {
		return err
	}
	defer application.Close()

	opts := application.options()
	if override != nil {
		override(&opts)
	}

	ids, result, err := application.orchestrator.Submit(context.Background(), url, opts)
	if err != nil {
		return err
	}

	printBatchResult(result)
	if len(ids) > 0 {
		fmt.Printf("Tracked job IDs: %v\n", ids)
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("%d download(s) failed", len(result.Failed))
	}
	return nil
}

func printBatchResult(result *app.BatchResult) {
	fmt.Printf("Succeeded: %d\n", result.Succeeded)
	if len(result.Failed) > 0 {
		fmt.Printf("Failed: %d\n", len(result.Failed))
		for _, failure := range result.Failed {
			fmt.Printf("  %s: %v\n", failure.URL, failure.Err)
		}
	}
}

var playlistCmd = &cobra.Command{
	Use:   "playlist <url>",
	Short: "Download a full playlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !domain.IsPlaylistURL(args[0]) && !domain.IsVideoURL(args[0]) {
			return fmt.Errorf("invalid playlist URL")
		}
		return runDownload(args[0], nil)
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Batch download from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := app.ParseBatchFile(args[0])
		if err != nil {
			return err
		}

		application, err := newApplication()
		if err != nil {
			return err
		}
		defer application.Close()

		base := application.options()
		failed := 0
		for i, item := range items {
			fmt.Printf("[%d/%d] %s\n", i+1, len(items), item.URL)
			_, result, err := application.orchestrator.Submit(cmd.Context(), item.URL, item.Options(base))
			if err != nil {
				fmt.Printf("  failed: %v\n", err)
				failed++
				continue
			}
			failed += len(result.Failed)
		}

		if failed > 0 {
			return fmt.Errorf("%d download(s) failed", failed)
		}
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <url>",
	Short: "Show video metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := newApplication()
		if err != nil {
			return err
		}
		defer application.Close()

		md, err := application.orchestrator.Info(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Title:      %s\n", md.Title)
		fmt.Printf("Channel:    %s\n", md.Channel)
		fmt.Printf("Duration:   %s\n", formatDuration(md.Duration))
		if md.ViewCount > 0 {
			fmt.Printf("Views:      %d\n", md.ViewCount)
		}
		if md.UploadDate != "" {
			fmt.Printf("Uploaded:   %s\n", md.UploadDate)
		}
		if md.Resolution != "" {
			fmt.Printf("Resolution: %s\n", md.Resolution)
		}
		fmt.Printf("ID:         %s\n", md.NativeID)
		if md.Thumbnail != "" {
			fmt.Printf("Thumbnail:  %s\n", md.Thumbnail)
		}
		return nil
	},
}

var subsCmd = &cobra.Command{
	Use:   "subs <url>",
	Short: "Download subtitles without the video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := newApplication()
		if err != nil {
			return err
		}
		defer application.Close()

		info, err := application.orchestrator.Subtitles(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printSubtitleInfo(info)

		lang, _ := cmd.Flags().GetString("lang")
		opts := application.options()
		dir, err := application.orchestrator.DownloadSubtitles(cmd.Context(), args[0], domain.SubtitleOptions{
			Langs:     firstNonEmpty(lang, opts.SubLang),
			OutputDir: opts.OutputDir,
			AutoSubs:  true,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Saved to: %s\n", dir)
		return nil
	},
}

func printSubtitleInfo(info *domain.SubtitleInfo) {
	fmt.Printf("Subtitles for: %s\n", info.Title)
	if len(info.Manual) > 0 {
		fmt.Printf("  Manual:    %s\n", strings.Join(info.Manual, ", "))
	} else {
		fmt.Println("  No manual subtitles available")
	}
	if len(info.Automatic) > 0 {
		fmt.Printf("  Automatic: %s\n", strings.Join(commonLanguages(info.Automatic), ", "))
	} else {
		fmt.Println("  No automatic captions available")
	}
}

// commonLanguages filters auto-caption languages down to the usual set so
// the listing stays readable; the rest is summarized with a count.
func commonLanguages(langs []string) []string {
	common := []string{"pt", "en", "es", "fr", "de", "it", "ja", "ko", "zh", "ru"}
	var filtered []string
	for _, lang := range langs {
		for _, prefix := range common {
			if strings.HasPrefix(lang, prefix) {
				filtered = append(filtered, lang)
				break
			}
		}
	}
	if rest := len(langs) - len(filtered); rest > 0 {
		filtered = append(filtered, fmt.Sprintf("and %d more", rest))
	}
	return filtered
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var convertCmd = &cobra.Command{
	Use:   "convert <file> <format>",
	Short: "Convert a media file to another format",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := newApplication()
		if err != nil {
			return err
		}
		defer application.Close()

		transcoder := infrastructure.NewFFmpegTranscoder(
			application.config.Download.FFmpegBinary, application.log)
		output, err := transcoder.Convert(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		fmt.Printf("Saved to: %s\n", output)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked download jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := newApplication()
		if err != nil {
			return err
		}
		defer application.Close()

		status, _ := cmd.Flags().GetString("status")
		videos, err := application.repo.List(domain.ListFilter{
			Category: category,
			Status:   domain.VideoStatus(status),
		})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tSTATUS\tCREATED")
		for _, v := range videos {
			title := v.Title
			if title == "" {
				title = v.URL
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
				v.ID, truncate(title, 40), v.Category, v.Status,
				v.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a tracked job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := newApplication()
		if err != nil {
			return err
		}
		defer application.Close()

		var id uint
		if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
			return fmt.Errorf("invalid job id: %s", args[0])
		}

		video, err := application.repo.FindByID(id)
		if err != nil {
			return fmt.Errorf("job not found: %s", args[0])
		}

		deleteFile, _ := cmd.Flags().GetBool("delete-file")
		if deleteFile && video.FilePath != "" {
			if err := os.Remove(video.FilePath); err != nil && !os.IsNotExist(err) {
				fmt.Fprintf(os.Stderr, "Warning: failed to remove %s: %v\n", video.FilePath, err)
			}
		}

		if err := application.repo.Delete(id); err != nil {
			return err
		}
		fmt.Printf("Job #%d removed\n", id)
		return nil
	},
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

func formatDuration(seconds int) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

func main() {
	rootCmd.SilenceUsage = true

	listCmd.Flags().String("status", "", "Filter by status: pending, downloading, done, error")
	subsCmd.Flags().StringP("lang", "l", "", "Subtitle languages (default from config)")
	deleteCmd.Flags().Bool("delete-file", false, "Also remove the downloaded file")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
