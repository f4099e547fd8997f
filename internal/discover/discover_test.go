package discover

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"compressy/internal/config"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		t.Fatal(err)
	}
}

func testConfig(t *testing.T, root string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.SourceFolder = root
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func names(files []File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = filepath.Base(f.Path)
	}
	return out
}

func TestDiscover_Classification(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.mp4"), 10)
	writeFile(t, filepath.Join(root, "b.jpg"), 10)
	writeFile(t, filepath.Join(root, "c.txt"), 10)
	writeFile(t, filepath.Join(root, "d.MOV"), 10)

	cfg := testConfig(t, root)
	files, err := Discover(cfg)
	if err != nil {
		t.Fatal(err)
	}

	if got, want := names(files), []string{"a.mp4", "b.jpg", "d.MOV"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Discover() = %v, want %v", got, want)
	}
	if files[0].Kind != KindVideo || files[1].Kind != KindImage || files[2].Kind != KindVideo {
		t.Errorf("unexpected kinds: %v %v %v", files[0].Kind, files[1].Kind, files[2].Kind)
	}
}

func TestDiscover_SizeFilters(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "small.mp4"), 1*1024)
	writeFile(t, filepath.Join(root, "medium.mp4"), 10*1024)
	writeFile(t, filepath.Join(root, "large.mp4"), 100*1024)

	cfg := testConfig(t, root)
	cfg.MinSize = "5KB"
	cfg.MaxSize = "50KB"
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	files, err := Discover(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := names(files), []string{"medium.mp4"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Discover() = %v, want %v", got, want)
	}
}

func TestDiscover_NonRecursiveSkipsSubdirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "top.mp4"), 10)
	writeFile(t, filepath.Join(root, "sub", "nested.mp4"), 10)

	cfg := testConfig(t, root)
	files, err := Discover(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := names(files), []string{"top.mp4"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Discover() = %v, want %v", got, want)
	}
}

func TestDiscover_RecursiveRelDir(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "top.mp4"), 10)
	writeFile(t, filepath.Join(root, "sub", "nested.jpg"), 10)

	cfg := testConfig(t, root)
	cfg.Recursive = true

	files, err := Discover(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("Discover() returned %d files, want 2", len(files))
	}
	for _, f := range files {
		switch filepath.Base(f.Path) {
		case "top.mp4":
			if f.RelDir != "." {
				t.Errorf("top.mp4 RelDir = %q, want %q", f.RelDir, ".")
			}
		case "nested.jpg":
			if f.RelDir != "sub" {
				t.Errorf("nested.jpg RelDir = %q, want %q", f.RelDir, "sub")
			}
		}
	}
}

func TestDiscover_Deterministic(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"z.mp4", "a.jpg", "m.mov", "sub/x.png", "sub/b.mp4"} {
		writeFile(t, filepath.Join(root, name), 10)
	}

	cfg := testConfig(t, root)
	cfg.Recursive = true

	first, err := Discover(cfg)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Discover(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("Discover() is not deterministic across runs on an unchanged tree")
	}
}

func TestDiscover_MissingRoot(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	cfg.SourceFolder = filepath.Join(cfg.SourceFolder, "gone")
	if _, err := Discover(cfg); err == nil {
		t.Error("Discover() succeeded on a missing root")
	}
}

func TestDiscover_ExcludesOutputTree(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "clip.mp4"), 10)
	writeFile(t, filepath.Join(root, "compressed", "old.mp4"), 10)
	writeFile(t, filepath.Join(root, "sub", "other.mp4"), 10)

	cfg := testConfig(t, root)
	cfg.Recursive = true

	files, err := Discover(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2 (outputs excluded)", len(files))
	}
	for _, f := range files {
		if filepath.Base(f.Path) == "old.mp4" {
			t.Error("previous output fed back into discovery")
		}
	}
}
