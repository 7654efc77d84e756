package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

var errNoName = errors.New("name required")

func (s *sample) Validate() error {
	if s.Name == "" {
		return errNoName
	}
	return nil
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "vault")
	path := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(path, []byte("name: ${SAMPLE_NAME}\nport: 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var s sample
	if err := Load(path, &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "vault" || s.Port != 7 {
		t.Errorf("got %+v", s)
	}
}

func TestLoadValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(path, []byte("port: 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var s sample
	if err := Load(path, &s); !errors.Is(err, errNoName) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestLoadOptionalMissingKeepsDefaults(t *testing.T) {
	s := sample{Name: "default", Port: 1}
	read, err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &s)
	if err != nil || read {
		t.Fatalf("read=%v err=%v", read, err)
	}
	if s.Name != "default" || s.Port != 1 {
		t.Errorf("defaults changed: %+v", s)
	}
}

func TestLoadOptionalReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(path, []byte("port: 9\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := sample{Name: "default"}
	read, err := LoadOptional(path, &s)
	if err != nil || !read || s.Port != 9 {
		t.Fatalf("read=%v err=%v s=%+v", read, err, s)
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(path, []byte("name: [unclosed\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var s sample
	if err := Load(path, &s); err == nil {
		t.Fatal("expected parse error")
	}
}
