package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/gosimple/slug"
)

// Catalog holds every category and product loaded from the data file.
// It is never modified after loading.
type Catalog struct {
	Categories []Category `json:"categories"`
	Products   []Product  `json:"products"`
}

// CatalogIndex provides O(1) lookups into the catalog.
// Built during LoadFromBytes after validation passes.
type CatalogIndex struct {
	// ProductBySlug maps product slug -> *Product.
	ProductBySlug map[string]*Product

	// CategoryBySlug maps category slug -> *Category.
	CategoryBySlug map[string]*Category

	// ProductsByCategory maps the product category field -> []*Product in source order.
	// Keys include dangling category references.
	ProductsByCategory map[string][]*Product
}

// Validate checks the catalog for internal consistency.
// Returns a slice of validation errors (empty slice if valid).
//
// Products referencing an unknown category are not errors; see DanglingReferences.
func (c *Catalog) Validate() []error {
	var errs []error

	categorySlugs := make(map[string]bool, len(c.Categories))
	for i, cat := range c.Categories {
		if cat.Name == "" {
			errs = append(errs, fmt.Errorf("categories[%d]: name is required", i))
		}
		if cat.Slug == "" {
			errs = append(errs, fmt.Errorf("categories[%d]: slug is required", i))
			continue
		}
		if !slug.IsSlug(cat.Slug) {
			errs = append(errs, fmt.Errorf("category %q: slug is not URL-safe", cat.Slug))
		}
		if categorySlugs[cat.Slug] {
			errs = append(errs, fmt.Errorf("categories[%d]: duplicate category slug %q", i, cat.Slug))
			continue
		}
		categorySlugs[cat.Slug] = true
	}

	productSlugs := make(map[string]bool, len(c.Products))
	for i, p := range c.Products {
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("products[%d]: name is required", i))
		}
		if p.Slug == "" {
			errs = append(errs, fmt.Errorf("products[%d]: slug is required", i))
			continue
		}
		if !slug.IsSlug(p.Slug) {
			errs = append(errs, fmt.Errorf("product %q: slug is not URL-safe", p.Slug))
		}
		if productSlugs[p.Slug] {
			errs = append(errs, fmt.Errorf("products[%d]: duplicate product slug %q", i, p.Slug))
			continue
		}
		productSlugs[p.Slug] = true
	}

	return errs
}

// BuildIndex creates lookup maps for fast access.
// Should be called after Validate() passes.
func (c *Catalog) BuildIndex() *CatalogIndex {
	idx := &CatalogIndex{
		ProductBySlug:      make(map[string]*Product, len(c.Products)),
		CategoryBySlug:     make(map[string]*Category, len(c.Categories)),
		ProductsByCategory: make(map[string][]*Product, len(c.Categories)),
	}

	for i := range c.Categories {
		cat := &c.Categories[i]
		if _, ok := idx.CategoryBySlug[cat.Slug]; !ok {
			idx.CategoryBySlug[cat.Slug] = cat
		}
	}

	for i := range c.Products {
		p := &c.Products[i]
		// First match wins, mirroring a linear scan.
		if _, ok := idx.ProductBySlug[p.Slug]; !ok {
			idx.ProductBySlug[p.Slug] = p
		}
		idx.ProductsByCategory[p.Category] = append(idx.ProductsByCategory[p.Category], p)
	}

	return idx
}

// LoadFromFile loads a catalog from a JSON file, validates it, and builds the index.
func LoadFromFile(path string) (*Catalog, *CatalogIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses a catalog from raw JSON bytes, validates it, and builds the index.
func LoadFromBytes(data []byte) (*Catalog, *CatalogIndex, error) {
	var catalog Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, nil, fmt.Errorf("failed to parse catalog JSON: %w", err)
	}

	if errs := catalog.Validate(); len(errs) > 0 {
		return nil, nil, fmt.Errorf("catalog validation failed: %w", errors.Join(errs...))
	}

	index := catalog.BuildIndex()
	return &catalog, index, nil
}
