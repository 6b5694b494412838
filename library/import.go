package library

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog is a batch of books to add, as read from a YAML file:
//
//	books:
//	  - title: The Art of War
//	    quantity: 3
//	    image: art_of_war.jpg
type Catalog struct {
	Books []Book `yaml:"books"`
}

// LoadCatalog parses and validates a YAML catalogue.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		if err == io.EOF {
			return &c, nil
		}
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	for i, b := range c.Books {
		if strings.TrimSpace(b.Title) == "" {
			return nil, validation("catalog entry %d: title cannot be empty", i+1)
		}
		if b.Quantity < 0 {
			return nil, newError(CodeInvalidStock, "catalog entry %d (%s): quantity %d cannot be negative", i+1, b.Title, b.Quantity)
		}
	}
	return &c, nil
}

// ImportResult reports what ImportCatalog did per entry.
type ImportResult struct {
	Title string
	ID    int64
	Err   error
}

// ImportCatalog adds every book in c. A failing entry does not stop the
// remaining ones.
func (lm *LibraryManager) ImportCatalog(ctx context.Context, c *Catalog) []ImportResult {
	results := make([]ImportResult, 0, len(c.Books))
	for _, b := range c.Books {
		id, err := lm.AddBook(ctx, b.Title, b.Quantity, b.ImageFilename)
		results = append(results, ImportResult{Title: b.Title, ID: id, Err: err})
	}
	return results
}
