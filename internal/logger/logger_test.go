package logger

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"compressy/internal/config"
)

func TestNew_LevelApplied(t *testing.T) {
	cfg := config.LoggingConfig{
		Level:    "debug",
		FilePath: filepath.Join(t.TempDir(), "compressy.log"),
	}
	log, err := New(cfg, false)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	if log.GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %v, want debug", log.GetLevel())
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	cfg := config.LoggingConfig{Level: "loud"}
	if _, err := New(cfg, true); err == nil {
		t.Error("New() accepted an invalid level")
	}
}

func TestWithFile(t *testing.T) {
	log := logrus.New()
	entry := WithFile(log, "/media/clip.mp4")
	if entry.Data["file"] != "/media/clip.mp4" {
		t.Errorf("file field = %v, want the given path", entry.Data["file"])
	}
}
