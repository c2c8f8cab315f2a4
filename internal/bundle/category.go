package bundle

import "fmt"

// Category is one entry of categories.json.
type Category struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Desc      string `json:"desc,omitempty"`
	Key       string `json:"key"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
	Path      string `json:"path"`
}

// Validate checks the category can be loaded.
func (c *Category) Validate() error {
	if c.Key == "" {
		return fmt.Errorf("key is required")
	}
	if c.Path == "" {
		return fmt.Errorf("path is required for category %q", c.Key)
	}
	return nil
}

// FindCategory returns the category with the given key.
func FindCategory(categories []Category, key string) (Category, bool) {
	for _, c := range categories {
		if c.Key == key {
			return c, true
		}
	}
	return Category{}, false
}
