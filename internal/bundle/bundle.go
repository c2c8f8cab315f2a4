package bundle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// VersionFile is the descriptor file name at the bundle root.
const VersionFile = "version.json"

// Bundle locates bundle files under a fixed root directory.
type Bundle struct {
	Root string
}

// New returns a Bundle rooted at root.
func New(root string) *Bundle {
	return &Bundle{Root: root}
}

// Resolve maps a bundle-relative path to a filesystem path. Paths that would
// escape the root are rejected.
func (b *Bundle) Resolve(rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if !filepath.IsLocal(clean) {
		return "", fmt.Errorf("%w: path %q escapes bundle root", ErrInvalidBundle, rel)
	}
	return filepath.Join(b.Root, clean), nil
}

// LoadVersion reads and validates the version descriptor.
func (b *Bundle) LoadVersion() (*VersionDescriptor, error) {
	var v VersionDescriptor
	if err := b.readJSON(VersionFile, &v); err != nil {
		return nil, err
	}
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidBundle, VersionFile, err)
	}
	return &v, nil
}

// LoadCategories reads the category list referenced by the descriptor.
func (b *Bundle) LoadCategories(ref CategoriesRef) ([]Category, error) {
	var categories []Category
	if err := b.readJSON(ref.Path, &categories); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(categories))
	for i := range categories {
		if err := categories[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s[%d]: %v", ErrInvalidBundle, ref.Path, i, err)
		}
		if seen[categories[i].Key] {
			return nil, fmt.Errorf("%w: %s: duplicate category key %q", ErrInvalidBundle, ref.Path, categories[i].Key)
		}
		seen[categories[i].Key] = true
	}
	return categories, nil
}

// LoadSentences reads one category's sentence file.
func (b *Bundle) LoadSentences(path string) ([]Sentence, error) {
	var sentences []Sentence
	if err := b.readJSON(path, &sentences); err != nil {
		return nil, err
	}
	for i := range sentences {
		if err := sentences[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s[%d]: %v", ErrInvalidBundle, path, i, err)
		}
	}
	return sentences, nil
}

func (b *Bundle) readJSON(rel string, v any) error {
	path, err := b.Resolve(rel)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: failed to read %s: %v", ErrBundleFile, path, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: failed to parse %s: %v", ErrBundleFile, path, err)
	}
	return nil
}

// WriteFile encodes v as indented JSON at the bundle-relative path, creating
// parent directories. It is used to build bundles for tests and tooling.
func (b *Bundle) WriteFile(rel string, v any) error {
	path, err := b.Resolve(rel)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", rel, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
