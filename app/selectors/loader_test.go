package selectors

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadWithoutFile(t *testing.T) {
	s, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	if s.Release.Persons != "p.persons" {
		t.Errorf("Expected default persons selector 'p.persons', got '%s'", s.Release.Persons)
	}
	if s.Listing.Entry != "div.event-preview" {
		t.Errorf("Expected default listing entry selector, got '%s'", s.Listing.Entry)
	}
	if len(s.Release.Languages) != 3 {
		t.Errorf("Expected 3 default languages, got %d", len(s.Release.Languages))
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	tempDir := t.TempDir()

	content := `
release:
  hd_marker: "h265-hd"
  languages:
    - "deu"
    - "eng"
    - "spa"
listing:
  entry: "article.talk"
`

	path := filepath.Join(tempDir, "selectors.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if s.Release.HDMarker != "h265-hd" {
		t.Errorf("Expected HD marker 'h265-hd', got '%s'", s.Release.HDMarker)
	}
	if s.Listing.Entry != "article.talk" {
		t.Errorf("Expected listing entry 'article.talk', got '%s'", s.Listing.Entry)
	}
	if s.Release.Languages[2] != "spa" {
		t.Errorf("Expected third language 'spa', got %v", s.Release.Languages)
	}

	// Untouched keys keep their defaults
	if s.Release.Description != "p.description" {
		t.Errorf("Expected default description selector, got '%s'", s.Release.Description)
	}
	if s.Listing.Link != "div.caption h3 a[href]" {
		t.Errorf("Expected default listing link selector, got '%s'", s.Listing.Link)
	}
}

func TestLoadInvalidSelectors(t *testing.T) {
	tempDir := t.TempDir()

	content := `
release:
  persons: ""
`

	path := filepath.Join(tempDir, "selectors.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected error for empty persons selector")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("Expected error for missing selectors file")
	}
}
