package bundle

import "fmt"

// VersionDescriptor is the bundle's version.json. It declares the protocol
// the bundle was produced under, its own version, and per-file timestamps
// used to detect which categories changed.
type VersionDescriptor struct {
	ProtocolVersion string        `json:"protocol_version"`
	BundleVersion   string        `json:"bundle_version"`
	UpdatedAt       int64         `json:"updated_at"`
	Categories      CategoriesRef `json:"categories"`
	Sentences       []SentenceRef `json:"sentences"`
}

// CategoriesRef points at the category list file.
type CategoriesRef struct {
	Path      string `json:"path"`
	Timestamp int64  `json:"timestamp"`
}

// SentenceRef points at one category's sentence file.
type SentenceRef struct {
	Name      string `json:"name,omitempty"`
	Key       string `json:"key"`
	Path      string `json:"path"`
	Timestamp int64  `json:"timestamp"`
}

// Validate checks the descriptor has the fields a sync depends on.
func (v *VersionDescriptor) Validate() error {
	if v.ProtocolVersion == "" {
		return fmt.Errorf("protocol_version is required")
	}
	if v.BundleVersion == "" {
		return fmt.Errorf("bundle_version is required")
	}
	if v.Categories.Path == "" {
		return fmt.Errorf("categories.path is required")
	}

	seen := make(map[string]bool, len(v.Sentences))
	for i, ref := range v.Sentences {
		if ref.Key == "" {
			return fmt.Errorf("sentences[%d].key is required", i)
		}
		if ref.Path == "" {
			return fmt.Errorf("sentences[%d].path is required", i)
		}
		if seen[ref.Key] {
			return fmt.Errorf("duplicate sentences key %q", ref.Key)
		}
		seen[ref.Key] = true
	}
	return nil
}

// SentenceRef returns the sentence file reference for a category key.
func (v *VersionDescriptor) SentenceRef(key string) (SentenceRef, bool) {
	for _, ref := range v.Sentences {
		if ref.Key == key {
			return ref, true
		}
	}
	return SentenceRef{}, false
}
