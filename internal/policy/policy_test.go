package policy

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"compressy/internal/config"
	"compressy/internal/discover"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.SourceFolder = "/media/in"
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func videoFile(relDir, name string) discover.File {
	return discover.File{
		Path:   filepath.Join("/media/in", relDir, name),
		Size:   1024,
		Kind:   discover.KindVideo,
		RelDir: relDir,
	}
}

func imageFile(relDir, name string) discover.File {
	f := videoFile(relDir, name)
	f.Kind = discover.KindImage
	return f
}

func argValue(t *testing.T, args []string, flag string) string {
	t.Helper()
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	t.Fatalf("flag %s not found in %v", flag, args)
	return ""
}

func hasFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

func TestResolvePaths_DefaultSubfolder(t *testing.T) {
	cfg := testConfig(t)
	e := NewEngine(cfg, nil)

	job, err := e.BuildJob(context.Background(), videoFile(".", "clip.mp4"))
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join("/media/in", "compressed", "clip.mp4")
	if job.FinalPath != want || job.OutputPath != want {
		t.Errorf("paths = (%s, %s), want %s", job.FinalPath, job.OutputPath, want)
	}
	if job.Overwriting() {
		t.Error("Overwriting() = true for subfolder placement")
	}
}

func TestResolvePaths_CustomDirMirrorsRelative(t *testing.T) {
	cfg := testConfig(t)
	cfg.OutputDir = "/media/out"
	cfg.Recursive = true
	e := NewEngine(cfg, nil)

	job, err := e.BuildJob(context.Background(), videoFile("season1", "ep1.mkv"))
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join("/media/out", "season1", "ep1.mkv")
	if job.FinalPath != want {
		t.Errorf("FinalPath = %s, want %s", job.FinalPath, want)
	}
}

func TestResolvePaths_OverwriteUsesUniqueTemp(t *testing.T) {
	cfg := testConfig(t)
	cfg.Overwrite = true
	e := NewEngine(cfg, nil)

	file := videoFile(".", "clip.mp4")
	job, err := e.BuildJob(context.Background(), file)
	if err != nil {
		t.Fatal(err)
	}
	if job.FinalPath != file.Path {
		t.Errorf("FinalPath = %s, want %s", job.FinalPath, file.Path)
	}
	if job.OutputPath == file.Path {
		t.Error("OutputPath must not equal the input during encoding")
	}
	if filepath.Dir(job.OutputPath) != filepath.Dir(file.Path) {
		t.Errorf("temp output %s not a sibling of the input", job.OutputPath)
	}
	if !job.Overwriting() {
		t.Error("Overwriting() = false in overwrite mode")
	}

	// Temp names must never collide across jobs for the same file.
	other, err := e.BuildJob(context.Background(), file)
	if err != nil {
		t.Fatal(err)
	}
	if other.OutputPath == job.OutputPath {
		t.Error("two jobs for the same input produced the same temp path")
	}
}

func TestVideoArgs_CRFAndPreset(t *testing.T) {
	cfg := testConfig(t)
	cfg.Video.CRF = 28
	cfg.Video.Preset = "slow"
	e := NewEngine(cfg, nil)

	job, err := e.BuildJob(context.Background(), videoFile(".", "clip.mp4"))
	if err != nil {
		t.Fatal(err)
	}
	if got := argValue(t, job.Args, "-crf"); got != "28" {
		t.Errorf("-crf = %s, want 28", got)
	}
	if got := argValue(t, job.Args, "-preset"); got != "slow" {
		t.Errorf("-preset = %s, want slow", got)
	}
	if got := argValue(t, job.Args, "-vcodec"); got != "libx264" {
		t.Errorf("-vcodec = %s, want libx264", got)
	}
	if hasFlag(job.Args, "-vf") {
		t.Errorf("no scaling requested but -vf present: %v", job.Args)
	}
	if job.Args[len(job.Args)-1] != job.OutputPath {
		t.Errorf("output path must be the last argument: %v", job.Args)
	}
}

func TestVideoArgs_ExplicitResolution(t *testing.T) {
	cfg := testConfig(t)
	cfg.Video.Resolution = "1080p"
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	e := NewEngine(cfg, nil)

	job, err := e.BuildJob(context.Background(), videoFile(".", "clip.mp4"))
	if err != nil {
		t.Fatal(err)
	}
	if got := argValue(t, job.Args, "-vf"); got != "scale=1920:1080" {
		t.Errorf("-vf = %s, want scale=1920:1080", got)
	}
}

func TestImageArgs_JPEGConversion(t *testing.T) {
	cfg := testConfig(t)
	cfg.Image.Quality = 80
	e := NewEngine(cfg, nil)

	job, err := e.BuildJob(context.Background(), imageFile(".", "photo.png"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(job.FinalPath, ".jpg") {
		t.Errorf("FinalPath = %s, want .jpg extension", job.FinalPath)
	}
	if got := argValue(t, job.Args, "-vf"); got != "format=rgb24" {
		t.Errorf("-vf = %s, want format=rgb24 (alpha flattening)", got)
	}
	if !hasFlag(job.Args, "-q:v") {
		t.Errorf("-q:v missing from %v", job.Args)
	}
}

func TestImageArgs_PreserveFormatPNG(t *testing.T) {
	cfg := testConfig(t)
	cfg.PreserveFormat = true
	e := NewEngine(cfg, nil)

	job, err := e.BuildJob(context.Background(), imageFile(".", "photo.png"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(job.FinalPath, ".png") {
		t.Errorf("FinalPath = %s, want original extension kept", job.FinalPath)
	}
	if !hasFlag(job.Args, "-compression_level") {
		t.Errorf("-compression_level missing from %v", job.Args)
	}
}

func TestImageArgs_ResizeFilter(t *testing.T) {
	cfg := testConfig(t)
	cfg.Image.ResizePercent = 50
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	e := NewEngine(cfg, nil)

	job, err := e.BuildJob(context.Background(), imageFile(".", "photo.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	if got := argValue(t, job.Args, "-vf"); got != "scale=iw*0.5:ih*0.5:flags=lanczos" {
		t.Errorf("-vf = %s, want scale=iw*0.5:ih*0.5:flags=lanczos", got)
	}
}

func TestImageArgs_ConversionCombinesFilters(t *testing.T) {
	cfg := testConfig(t)
	cfg.Image.ResizePercent = 50
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	e := NewEngine(cfg, nil)

	job, err := e.BuildJob(context.Background(), imageFile(".", "photo.webp"))
	if err != nil {
		t.Fatal(err)
	}
	want := "format=rgb24,scale=iw*0.5:ih*0.5:flags=lanczos"
	if got := argValue(t, job.Args, "-vf"); got != want {
		t.Errorf("-vf = %s, want %s", got, want)
	}
}

func TestMapJPEGQuality(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{100, 95},
		{97, 92},
		{94, 90},
		{47, 45},
		{0, 1},
	}
	for _, tt := range tests {
		if got := mapJPEGQuality(tt.in); got != tt.want {
			t.Errorf("mapJPEGQuality(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPlacement(t *testing.T) {
	tests := []struct {
		name      string
		overwrite bool
		outputDir string
		want      PlacementMode
	}{
		{"default subfolder", false, "", PlaceSubfolder},
		{"custom dir", false, "/out", PlaceCustomDir},
		{"overwrite", true, "", PlaceOverwrite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Overwrite = tt.overwrite
			cfg.OutputDir = tt.outputDir
			if got := Placement(cfg); got != tt.want {
				t.Errorf("Placement() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvenDown(t *testing.T) {
	pairs := [][2]int{{5, 4}, {4, 4}, {961, 960}, {0, 0}}
	for _, p := range pairs {
		if got := evenDown(p[0]); got != p[1] {
			t.Errorf("evenDown(%d) = %d, want %d", p[0], got, p[1])
		}
	}
}
