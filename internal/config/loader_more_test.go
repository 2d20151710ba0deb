package config

import (
	"strings"
	"testing"
)

func TestLoad_MalformedFiles(t *testing.T) {
	if _, err := Load("/definitely/not/a/real/genloop-12345.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
	d := t.TempDir()
	cases := map[string]string{
		"bad.yaml": "session:\n  context_length: [1\n",
		"bad.json": `{"session": {"context_length": }}`,
		"bad.toml": "[session]\ncontext_length\n",
	}
	for name, body := range cases {
		p := writeTempFile(t, d, name, body)
		_, err := Load(p)
		if err == nil {
			t.Fatalf("%s: expected parse error", name)
		}
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("%s: error should name the file: %v", name, err)
		}
	}
}

func TestLoad_ValidateReportsFileErrors(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", `
log:
  format: xml
session:
  think_begin: "<think>"
  context_length: -1
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	verr := cfg.Validate()
	if verr == nil {
		t.Fatalf("expected validation errors")
	}
	msg := verr.Error()
	for _, want := range []string{"log.format", `"xml"`, "session:", "negative context_length"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %q in %q", want, msg)
		}
	}
}

func TestLoad_TOMLSnapshotsExclusive(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "[snapshots]\ndir = \"/var/lib/genloop\"\nin_memory = true\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "exclusive") {
		t.Fatalf("expected exclusive snapshots error, got %v", err)
	}
}
