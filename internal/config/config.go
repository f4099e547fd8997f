package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"compressy/internal/format"
)

// VideoPresets lists the nine encoder preset names accepted for video jobs,
// ordered fastest to slowest.
var VideoPresets = []string{
	"ultrafast", "superfast", "veryfast", "faster", "fast",
	"medium", "slow", "slower", "veryslow",
}

// Config is the validated configuration for one compression run.
type Config struct {
	SourceFolder string `mapstructure:"source_folder"`

	Video   VideoConfig   `mapstructure:"video"`
	Image   ImageConfig   `mapstructure:"image"`
	Logging LoggingConfig `mapstructure:"logging"`

	PreserveFormat     bool   `mapstructure:"preserve_format"`
	PreserveTimestamps bool   `mapstructure:"preserve_timestamps"`
	Recursive          bool   `mapstructure:"recursive"`
	Overwrite          bool   `mapstructure:"overwrite"`
	OutputDir          string `mapstructure:"output_dir"`
	KeepIfLarger       bool   `mapstructure:"keep_if_larger"`
	BackupDir          string `mapstructure:"backup_dir"`

	// MinSize/MaxSize are human-readable size tokens ("10MB"); the parsed
	// byte counts land in MinSizeBytes/MaxSizeBytes during validation.
	MinSize      string `mapstructure:"min_size"`
	MaxSize      string `mapstructure:"max_size"`
	MinSizeBytes int64  `mapstructure:"-"`
	MaxSizeBytes int64  `mapstructure:"-"`

	FFmpegPath       string  `mapstructure:"ffmpeg_path"`
	ProgressInterval float64 `mapstructure:"progress_interval"`

	VideoExtensions []string `mapstructure:"video_extensions"`
	ImageExtensions []string `mapstructure:"image_extensions"`
}

// VideoConfig contains video compression settings.
type VideoConfig struct {
	CRF           int    `mapstructure:"crf"`
	Preset        string `mapstructure:"preset"`
	ResizePercent int    `mapstructure:"resize_percent"`
	Resolution    string `mapstructure:"resolution"`
}

// ImageConfig contains image compression settings.
type ImageConfig struct {
	Quality       int `mapstructure:"quality"`
	ResizePercent int `mapstructure:"resize_percent"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Video: VideoConfig{
			CRF:    23,
			Preset: "medium",
		},
		Image: ImageConfig{
			Quality: 100,
		},
		ProgressInterval: 5.0,
		VideoExtensions:  []string{".mp4", ".mov", ".mkv", ".avi"},
		ImageExtensions:  []string{".jpg", ".jpeg", ".png", ".webp"},
		Logging: LoggingConfig{
			Level:      "info",
			FilePath:   "compressy.log",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     30,
			Compress:   true,
		},
	}
}

// LoadConfig loads configuration from file and environment variables on top
// of the defaults. The result is not yet validated; callers apply CLI
// overrides first and then call Validate.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	viper.SetConfigType("yaml")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.compressy")
		viper.AddConfigPath("/etc/compressy")
	}

	viper.SetEnvPrefix("COMPRESSY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return config, nil
}

// Validate checks every option against its legal range and normalizes
// derived fields. It fails on the first violation, naming the offending
// field and the received value.
func (c *Config) Validate() error {
	if c.Video.CRF < 0 || c.Video.CRF > 51 {
		return fmt.Errorf("video crf must be between 0 and 51, got %d", c.Video.CRF)
	}

	if !isValidPreset(c.Video.Preset) {
		return fmt.Errorf("video preset must be one of %v, got %q", VideoPresets, c.Video.Preset)
	}

	if c.Video.ResizePercent < 0 || c.Video.ResizePercent > 100 {
		return fmt.Errorf("video resize_percent must be between 0 and 100, got %d", c.Video.ResizePercent)
	}

	if c.Video.Resolution != "" {
		if _, _, err := format.ParseResolution(c.Video.Resolution); err != nil {
			return fmt.Errorf("video resolution: %w", err)
		}
		if c.Video.ResizePercent > 0 {
			return fmt.Errorf("video resolution and resize_percent are mutually exclusive (got %q and %d)",
				c.Video.Resolution, c.Video.ResizePercent)
		}
	}

	if c.Image.Quality < 0 || c.Image.Quality > 100 {
		return fmt.Errorf("image quality must be between 0 and 100, got %d", c.Image.Quality)
	}

	if c.Image.ResizePercent != 0 && (c.Image.ResizePercent < 1 || c.Image.ResizePercent > 100) {
		return fmt.Errorf("image resize_percent must be between 1 and 100, got %d", c.Image.ResizePercent)
	}

	if c.Overwrite && c.OutputDir != "" {
		return fmt.Errorf("overwrite and output_dir are mutually exclusive (got output_dir %q)", c.OutputDir)
	}

	if c.ProgressInterval <= 0 {
		return fmt.Errorf("progress_interval must be positive, got %g", c.ProgressInterval)
	}

	if c.MinSize != "" {
		n, err := format.ParseSize(c.MinSize)
		if err != nil {
			return fmt.Errorf("min_size: %w", err)
		}
		c.MinSizeBytes = n
	}
	if c.MaxSize != "" {
		n, err := format.ParseSize(c.MaxSize)
		if err != nil {
			return fmt.Errorf("max_size: %w", err)
		}
		c.MaxSizeBytes = n
	}
	if c.MinSize != "" && c.MaxSize != "" && c.MinSizeBytes > c.MaxSizeBytes {
		return fmt.Errorf("min_size (%s) must not exceed max_size (%s)", c.MinSize, c.MaxSize)
	}

	c.VideoExtensions = normalizeExtensions(c.VideoExtensions)
	c.ImageExtensions = normalizeExtensions(c.ImageExtensions)

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	return nil
}

// ValidateSource checks that the source folder exists and is a directory.
// Kept separate from Validate so flag values can be checked without touching
// the filesystem.
func (c *Config) ValidateSource() error {
	if c.SourceFolder == "" {
		return fmt.Errorf("source folder is required")
	}
	info, err := os.Stat(c.SourceFolder)
	if err != nil {
		return fmt.Errorf("source folder does not exist or is not accessible: %s", c.SourceFolder)
	}
	if !info.IsDir() {
		return fmt.Errorf("source folder is not a directory: %s", c.SourceFolder)
	}
	return nil
}

// IsVideoExtension checks if the extension is for a video file.
func (c *Config) IsVideoExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, supported := range c.VideoExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}

// IsImageExtension checks if the extension is for an image file.
func (c *Config) IsImageExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, supported := range c.ImageExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}

// StateDir returns the directory used for cumulative statistics and run
// history, creating it if necessary.
func StateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot resolve home directory: %w", err)
	}
	dir := filepath.Join(home, ".compressy")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("cannot create state directory %s: %w", dir, err)
	}
	return dir, nil
}

// FindFFmpeg locates the ffmpeg executable. An explicitly configured path
// wins; otherwise PATH is searched, then the common Windows install
// locations.
func FindFFmpeg(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("ffmpeg not found at configured path %s", configured)
		}
		return configured, nil
	}

	if path, err := exec.LookPath("ffmpeg"); err == nil {
		return path, nil
	}

	if runtime.GOOS == "windows" {
		common := []string{
			`C:\ffmpeg\ffmpeg.exe`,
			`C:\Program Files\ffmpeg\bin\ffmpeg.exe`,
			`C:\Program Files (x86)\ffmpeg\bin\ffmpeg.exe`,
		}
		for _, p := range common {
			if _, err := os.Stat(p); err == nil {
				return p, nil
			}
		}
	}

	return "", fmt.Errorf("ffmpeg not found; install FFmpeg and add it to PATH or set --ffmpeg-path")
}

func isValidPreset(preset string) bool {
	for _, p := range VideoPresets {
		if preset == p {
			return true
		}
	}
	return false
}

func normalizeExtensions(extensions []string) []string {
	normalized := make([]string, len(extensions))
	for i, ext := range extensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized[i] = ext
	}
	return normalized
}
