package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"compressy/internal/config"
	"compressy/internal/logger"
	"compressy/internal/pipeline"
	"compressy/internal/policy"
	"compressy/internal/reports"
	"compressy/internal/statistics"
	"compressy/internal/web"
)

var (
	cfgFile string
	verbose bool
	quiet   bool

	sourceDir          string
	videoCRF           int
	videoPreset        string
	videoResize        int
	videoResolution    string
	imageQuality       int
	imageResize        int
	preserveFormat     bool
	preserveTimestamps bool
	recursive          bool
	overwrite          bool
	outputDir          string
	minSize            string
	maxSize            string
	ffmpegPath         string
	progressInterval   float64
	keepIfLarger       bool
	backupDir          string

	port int
)

// rootCmd compresses a folder of media files; it is the default action.
var rootCmd = &cobra.Command{
	Use:   "compressy [source-folder]",
	Short: "Batch compress videos and images with ffmpeg",
	Long: `Compressy batch-compresses the videos and images in a folder by
delegating the encoding work to ffmpeg.

Features:
- H.264 video compression with configurable CRF and encoder preset
- Image recompression with a single quality knob
- Optional downscaling by percentage or to a named resolution
- Keeps originals unless overwrite mode is requested
- Skips outputs that ended up larger than their source
- Per-run CSV reports plus cumulative statistics and run history`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCompress(cmd, args)
	},
}

// statsCmd prints the cumulative compression totals.
var statsCmd = &cobra.Command{
	Use:     "stats",
	Aliases: []string{"view-stats"},
	Short:   "Show cumulative compression statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStats()
	},
}

// historyCmd prints recent run history.
var historyCmd = &cobra.Command{
	Use:     "history [count]",
	Aliases: []string{"view-history"},
	Short:   "Show recent compression runs (count 0 or absent shows all)",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, err := parseHistoryLimit(args)
		if err != nil {
			return err
		}
		return runHistory(limit)
	},
}

// parseHistoryLimit maps the optional count argument to a history limit;
// absent or zero means every recorded run.
func parseHistoryLimit(args []string) (int, error) {
	if len(args) == 0 {
		return 0, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid history count: %s", args[0])
	}
	return n, nil
}

// serveCmd starts the web interface server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web interface server",
	Long: `Starts an HTTP server exposing the compression pipeline. The JSON API
can start and stop runs and report statistics; a websocket endpoint streams
live progress. Access it at http://localhost:<port> (default: 8080).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress non-error output")

	f := rootCmd.Flags()
	f.StringVar(&sourceDir, "source", "", "source folder containing media files")
	f.IntVar(&videoCRF, "video-crf", 23, "H.264 constant rate factor (0-51, lower is better)")
	f.StringVar(&videoPreset, "video-preset", "medium", "encoder preset (ultrafast..veryslow)")
	f.IntVar(&videoResize, "video-resize", 0, "scale videos to this percentage of their size")
	f.StringVar(&videoResolution, "video-resolution", "", "scale videos to a resolution (e.g. 1080p or 1280x720)")
	f.IntVar(&imageQuality, "image-quality", 100, "image quality (0-100)")
	f.IntVar(&imageResize, "image-resize", 0, "scale images to this percentage of their size")
	f.BoolVar(&preserveFormat, "preserve-format", false, "keep image formats instead of converting to JPEG")
	f.BoolVar(&preserveTimestamps, "preserve-timestamps", false, "carry source modification times to outputs")
	f.BoolVar(&recursive, "recursive", false, "process subfolders recursively")
	f.BoolVar(&overwrite, "overwrite", false, "replace originals in place")
	f.StringVar(&outputDir, "output-dir", "", "write outputs under this directory")
	f.StringVar(&minSize, "min-size", "", "only process files at least this large (e.g. 10MB)")
	f.StringVar(&maxSize, "max-size", "", "only process files at most this large (e.g. 1GB)")
	f.StringVar(&ffmpegPath, "ffmpeg-path", "", "path to the ffmpeg executable")
	f.Float64Var(&progressInterval, "progress-interval", 5.0, "seconds between progress updates")
	f.BoolVar(&keepIfLarger, "keep-if-larger", false, "keep compressed outputs even when they grew")
	f.StringVar(&backupDir, "backup-dir", "", "copy originals here before compressing")

	serveCmd.Flags().IntVar(&port, "port", 8080, "port to run the web server on")

	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serveCmd)
}

// runCompress executes one compression run end to end.
func runCompress(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.ValidateSource(); err != nil {
		return err
	}

	resolvedFFmpeg, err := config.FindFFmpeg(cfg.FFmpegPath)
	if err != nil {
		return err
	}

	log := setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats := statistics.NewStatistics()
	runner := pipeline.NewRunner(cfg, resolvedFFmpeg, log)

	run, runErr := runner.Run(ctx)
	if run != nil {
		stats.RecordRun(run)
	}
	stats.Finalize()

	if run != nil && len(run.Results) > 0 {
		writeArtifacts(cfg, log, stats)
	}

	if !quiet {
		fmt.Println("\n" + stats.GetSummary())
	}

	if runErr != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("run interrupted")
		}
		return fmt.Errorf("compression run failed: %w", runErr)
	}
	return nil
}

// writeArtifacts persists the CSV reports and cumulative statistics. Both are
// best-effort; a full run result is never discarded over a bookkeeping error.
func writeArtifacts(cfg *config.Config, log *logrus.Logger, stats *statistics.Statistics) {
	reportDir := policy.CompressedRoot(cfg)
	if cfg.Overwrite {
		reportDir = cfg.SourceFolder
	}
	if paths, err := reports.NewWriter(reportDir).Write(stats, cfg.Recursive); err != nil {
		log.WithError(err).Warn("Could not write CSV reports")
	} else {
		for _, p := range paths {
			log.WithField("report", p).Debug("Report written")
		}
	}

	dir, err := config.StateDir()
	if err != nil {
		log.WithError(err).Warn("Could not resolve state directory")
		return
	}
	if err := statistics.NewManager(dir).RecordRun(stats); err != nil {
		log.WithError(err).Warn("Could not persist run statistics")
	}
}

// runStats prints the cumulative totals accumulated across runs.
func runStats() error {
	dir, err := config.StateDir()
	if err != nil {
		return err
	}
	msg, err := statistics.NewManager(dir).FormatCumulative()
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}

// runHistory prints the most recent runs.
func runHistory(limit int) error {
	dir, err := config.StateDir()
	if err != nil {
		return err
	}
	msg, err := statistics.NewManager(dir).FormatHistory(limit)
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}

// runServe starts the web server and handles graceful shutdown.
func runServe() error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CONFIG LOAD ERROR: %v\n", err)
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := setupLogger(cfg)
	server := web.NewServer(cfg, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.Start(port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	fmt.Printf("Compressy web interface started on http://localhost:%d\n", port)
	fmt.Println("Press Ctrl+C to stop the server")

	<-sigChan
	fmt.Println("\nShutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// loadConfig loads the configuration and applies CLI overrides. Only flags
// the user actually set override the file and environment.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if sourceDir != "" {
		cfg.SourceFolder = sourceDir
	}
	if cfg.SourceFolder == "" && len(args) > 0 {
		cfg.SourceFolder = args[0]
	}
	if cfg.SourceFolder == "" {
		cfg.SourceFolder = "."
	}

	fl := cmd.Flags()
	if fl.Changed("video-crf") {
		cfg.Video.CRF = videoCRF
	}
	if fl.Changed("video-preset") {
		cfg.Video.Preset = videoPreset
	}
	if fl.Changed("video-resize") {
		cfg.Video.ResizePercent = videoResize
	}
	if fl.Changed("video-resolution") {
		cfg.Video.Resolution = videoResolution
	}
	if fl.Changed("image-quality") {
		cfg.Image.Quality = imageQuality
	}
	if fl.Changed("image-resize") {
		cfg.Image.ResizePercent = imageResize
	}
	if fl.Changed("preserve-format") {
		cfg.PreserveFormat = preserveFormat
	}
	if fl.Changed("preserve-timestamps") {
		cfg.PreserveTimestamps = preserveTimestamps
	}
	if fl.Changed("recursive") {
		cfg.Recursive = recursive
	}
	if fl.Changed("overwrite") {
		cfg.Overwrite = overwrite
	}
	if fl.Changed("output-dir") {
		cfg.OutputDir = outputDir
	}
	if fl.Changed("min-size") {
		cfg.MinSize = minSize
	}
	if fl.Changed("max-size") {
		cfg.MaxSize = maxSize
	}
	if fl.Changed("ffmpeg-path") {
		cfg.FFmpegPath = ffmpegPath
	}
	if fl.Changed("progress-interval") {
		cfg.ProgressInterval = progressInterval
	}
	if fl.Changed("keep-if-larger") {
		cfg.KeepIfLarger = keepIfLarger
	}
	if fl.Changed("backup-dir") {
		cfg.BackupDir = backupDir
	}

	return cfg, nil
}

// setupLogger configures and returns a logger.
func setupLogger(cfg *config.Config) *logrus.Logger {
	loggingCfg := cfg.Logging
	if verbose {
		loggingCfg.Level = "debug"
	}
	if quiet {
		loggingCfg.Level = "error"
	}

	log, err := logger.New(loggingCfg, !quiet)
	if err != nil {
		log = logrus.New()
		log.SetLevel(logrus.InfoLevel)
	}

	return log
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
