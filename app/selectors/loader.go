package selectors

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Default returns the selectors matching the media.ccc.de markup.
func Default() *Selectors {
	return &Selectors{
		Release: ReleaseSelectors{
			Persons:     "p.persons",
			PersonLink:  "a",
			Description: "p.description",
			HDMarker:    "h264-hd",
			VideoExt:    ".mp4",
			AudioLink:   "a.btn.btn-default.download.audio",
			Languages:   []string{"deu", "eng", "fra"},
		},
		Listing: ListingSelectors{
			Entry: "div.event-preview",
			Link:  "div.caption h3 a[href]",
		},
	}
}

// Load reads a YAML file on top of Default. An empty path returns the defaults.
func Load(path string) (*Selectors, error) {
	s := Default()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid selectors %s: %w", path, err)
	}

	slog.Debug("Selectors loaded", "file", path, "languages", s.Release.Languages)

	return s, nil
}

func (s *Selectors) Validate() error {
	requiredFields := map[string]string{
		"release.persons":     s.Release.Persons,
		"release.person_link": s.Release.PersonLink,
		"release.description": s.Release.Description,
		"release.hd_marker":   s.Release.HDMarker,
		"release.video_ext":   s.Release.VideoExt,
		"release.audio_link":  s.Release.AudioLink,
		"listing.entry":       s.Listing.Entry,
		"listing.link":        s.Listing.Link,
	}

	for fieldName, fieldValue := range requiredFields {
		if fieldValue == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
	}

	if len(s.Release.Languages) == 0 {
		return fmt.Errorf("release.languages must list at least one language code")
	}
	for i, lang := range s.Release.Languages {
		if lang == "" {
			return fmt.Errorf("empty language code at index %d", i)
		}
	}

	return nil
}
