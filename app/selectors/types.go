package selectors

// Selectors is the markup contract of the release and listing pages.
// Changes to the remote markup are handled here, not in the extraction code.
type Selectors struct {
	Release ReleaseSelectors `yaml:"release"`
	Listing ListingSelectors `yaml:"listing"`
}

type ReleaseSelectors struct {
	Persons     string   `yaml:"persons"`     // region holding speaker links
	PersonLink  string   `yaml:"person_link"` // links inside the persons region
	Description string   `yaml:"description"` // description region
	HDMarker    string   `yaml:"hd_marker"`   // token an HD video href must contain
	VideoExt    string   `yaml:"video_ext"`   // extension an HD video href must end with
	AudioLink   string   `yaml:"audio_link"`  // audio download controls
	Languages   []string `yaml:"languages"`   // class tokens recognized as language codes
}

type ListingSelectors struct {
	Entry string `yaml:"entry"` // one preview block per listed talk
	Link  string `yaml:"link"`  // display link inside a preview block
}
