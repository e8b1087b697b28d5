package domain

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Download DownloadConfig `mapstructure:"download"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DownloadConfig contains download-related configuration
type DownloadConfig struct {
	OutputDir    string `mapstructure:"output_dir"`
	Quality      string `mapstructure:"quality"`
	SubLang      string `mapstructure:"sub_lang"`
	Concurrency  int    `mapstructure:"concurrency"`
	Fragments    int    `mapstructure:"fragments"`
	YTDLPBinary  string `mapstructure:"ytdlp_binary"`
	FFmpegBinary string `mapstructure:"ffmpeg_binary"`
}

// DatabaseConfig contains job store configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 3005,
		},
		Download: DownloadConfig{
			OutputDir:    "./downloads",
			Quality:      "high",
			SubLang:      "pt,en",
			Concurrency:  3,
			Fragments:    4,
			YTDLPBinary:  "yt-dlp",
			FFmpegBinary: "ffmpeg",
		},
		Database: DatabaseConfig{
			Path: "$HOME/.yt-dwn/videos.db",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}
