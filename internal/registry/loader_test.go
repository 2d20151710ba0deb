package registry

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestGGUFScanner_ScanFiltersGGUF(t *testing.T) {
	dir := t.TempDir()
	// create files
	files := []string{
		"a.gguf",
		"b.GGUF", // case-insensitive
		"not-model.txt",
		"model.bin",
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f), []byte(""), 0o644); err != nil {
			t.Fatalf("write temp file: %v", err)
		}
	}
	s := NewGGUFScanner()
	models, err := s.Scan(dir)
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(models))
	}
	// ensure IDs are filenames
	ids := []string{models[0].ID, models[1].ID}
	for _, id := range ids {
		if !strings.HasSuffix(strings.ToLower(id), ".gguf") {
			t.Fatalf("id not gguf: %s", id)
		}
	}
}

func TestGGUFScanner_ExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir on this platform: %v", err)
	}
	// create temporary directory under home
	hTmp, err := os.MkdirTemp(home, "genloop-registry-*")
	if err != nil {
		t.Skipf("cannot create temp under home: %v", err)
	}
	defer os.RemoveAll(hTmp)
	// create a gguf file inside it
	if err := os.WriteFile(filepath.Join(hTmp, "x.gguf"), []byte(""), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	// build path with ~ prefix
	var tildePath string
	if runtime.GOOS == "windows" {
		// On Windows, home might contain drive; ExpandHome still handles ~/<rest>
		tildePath = filepath.Join("~", filepath.Base(hTmp))
	} else {
		tildePath = "~/" + filepath.Base(hTmp)
	}
	s := NewGGUFScanner()
	models, err := s.Scan(tildePath)
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	if len(models) != 1 || models[0].ID != "x.gguf" {
		t.Fatalf("unexpected models: %+v", models)
	}
}

func TestLoadDirWrapper(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "m.gguf"), []byte(""), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	models, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(models) != 1 || models[0].ID != "m.gguf" {
		t.Fatalf("unexpected: %+v", models)
	}
}

func TestScan_QuantSizeAndOrder(t *testing.T) {
	dir := t.TempDir()
	files := map[string]int{
		"qwen3-8b-Q4_K_M.gguf": 3,
		"Phi-4-mini.F16.gguf":  1,
		"tiny.gguf":            0,
		"gemma-2b-iq3_xs.gguf": 2,
	}
	for f, n := range files {
		if err := os.WriteFile(filepath.Join(dir, f), make([]byte, n), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "dir.gguf"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	models, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []struct {
		id, name, quant string
		size            int64
	}{
		{"Phi-4-mini.F16.gguf", "Phi-4-mini.F16", "F16", 1},
		{"gemma-2b-iq3_xs.gguf", "gemma-2b-iq3_xs", "IQ3_XS", 2},
		{"qwen3-8b-Q4_K_M.gguf", "qwen3-8b-Q4_K_M", "Q4_K_M", 3},
		{"tiny.gguf", "tiny", "", 0},
	}
	if len(models) != len(want) {
		t.Fatalf("expected %d models, got %+v", len(want), models)
	}
	for i, w := range want {
		m := models[i]
		if m.ID != w.id || m.Name != w.name || m.Quant != w.quant || m.SizeBytes != w.size {
			t.Fatalf("model %d: got %+v want %+v", i, m, w)
		}
		if !filepath.IsAbs(m.Path) {
			t.Fatalf("path not absolute: %s", m.Path)
		}
	}
	if m, ok := Find(models, "tiny.gguf"); !ok || m.Name != "tiny" {
		t.Fatalf("Find: %+v %v", m, ok)
	}
	if _, ok := Find(models, "missing.gguf"); ok {
		t.Fatalf("Find should miss")
	}
}

func TestScan_MissingDir(t *testing.T) {
	if _, err := LoadDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}
