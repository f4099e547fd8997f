package config

import (
	"testing"
)

func TestValidate_VideoCRF(t *testing.T) {
	tests := []struct {
		name    string
		crf     int
		wantErr bool
	}{
		{"lower bound", 0, false},
		{"upper bound", 51, false},
		{"typical value", 23, false},
		{"below range", -1, true},
		{"above range", 52, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Video.CRF = tt.crf
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_VideoPreset(t *testing.T) {
	for _, preset := range VideoPresets {
		cfg := DefaultConfig()
		cfg.Video.Preset = preset
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() rejected valid preset %q: %v", preset, err)
		}
	}

	cfg := DefaultConfig()
	cfg.Video.Preset = "turbo"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted unknown preset")
	}

	cfg.Video.Preset = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted empty preset")
	}
}

func TestValidate_ImageQuality(t *testing.T) {
	tests := []struct {
		name    string
		quality int
		wantErr bool
	}{
		{"lower bound", 0, false},
		{"upper bound", 100, false},
		{"below range", -1, true},
		{"above range", 101, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Image.Quality = tt.quality
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ResizePercents(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Image.ResizePercent = 50
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() rejected image resize 50: %v", err)
	}

	cfg = DefaultConfig()
	cfg.Image.ResizePercent = 101
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted image resize 101")
	}

	cfg = DefaultConfig()
	cfg.Video.ResizePercent = 101
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted video resize 101")
	}

	cfg = DefaultConfig()
	cfg.Video.ResizePercent = 0 // disabled
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() rejected disabled video resize: %v", err)
	}
}

func TestValidate_ResolutionAndResizeExclusive(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Video.Resolution = "1080p"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() rejected resolution preset: %v", err)
	}

	cfg = DefaultConfig()
	cfg.Video.Resolution = "1080p"
	cfg.Video.ResizePercent = 50
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted resolution together with resize_percent")
	}

	cfg = DefaultConfig()
	cfg.Video.Resolution = "bogus"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted unparseable resolution")
	}
}

func TestValidate_OverwriteOutputDirExclusive(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Overwrite = true
	cfg.OutputDir = "/tmp/out"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted overwrite together with output_dir")
	}

	cfg = DefaultConfig()
	cfg.Overwrite = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() rejected overwrite alone: %v", err)
	}
}

func TestValidate_SizeFilters(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinSize = "5MB"
	cfg.MaxSize = "50MB"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.MinSizeBytes != 5*1024*1024 {
		t.Errorf("MinSizeBytes = %d, want %d", cfg.MinSizeBytes, 5*1024*1024)
	}
	if cfg.MaxSizeBytes != 50*1024*1024 {
		t.Errorf("MaxSizeBytes = %d, want %d", cfg.MaxSizeBytes, 50*1024*1024)
	}

	cfg = DefaultConfig()
	cfg.MinSize = "50MB"
	cfg.MaxSize = "5MB"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted min_size > max_size")
	}

	cfg = DefaultConfig()
	cfg.MinSize = "10XB"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted unparseable min_size")
	}
}

func TestValidate_ProgressInterval(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ProgressInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted zero progress_interval")
	}

	cfg = DefaultConfig()
	cfg.ProgressInterval = -1
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted negative progress_interval")
	}
}

func TestValidate_NormalizesExtensions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.VideoExtensions = []string{"MP4", ".MOV"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !cfg.IsVideoExtension(".mp4") || !cfg.IsVideoExtension(".mov") {
		t.Errorf("extensions not normalized: %v", cfg.VideoExtensions)
	}
}

func TestValidateSource(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SourceFolder = t.TempDir()
	if err := cfg.ValidateSource(); err != nil {
		t.Errorf("ValidateSource() error = %v", err)
	}

	cfg.SourceFolder = "/nonexistent/path/for/test"
	if err := cfg.ValidateSource(); err == nil {
		t.Error("ValidateSource() accepted missing directory")
	}

	cfg.SourceFolder = ""
	if err := cfg.ValidateSource(); err == nil {
		t.Error("ValidateSource() accepted empty source folder")
	}
}
