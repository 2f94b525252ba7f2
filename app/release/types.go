package release

type AudioAsset struct {
	FileType string // audio_<lang>_<codec>
	URL      string
}

// Bundle is everything scraped from one release page. Missing parts stay empty.
type Bundle struct {
	Authors     string
	Description string
	VideoHDURL  string
	Audio       []AudioAsset
}

func (b Bundle) HasEnrichment() bool {
	return b.Authors != "" || b.Description != ""
}

func (b Bundle) IsEmpty() bool {
	return !b.HasEnrichment() && b.VideoHDURL == "" && len(b.Audio) == 0
}
