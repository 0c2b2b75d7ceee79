package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gandtscales/scalesite/catalogs"
)

// --- Helpers ---

func minimalValidCatalog() *Catalog {
	return &Catalog{
		Categories: []Category{
			{ID: "cat-1", Name: "Weighbridges", Slug: "weighbridges", Description: "Truck scales"},
		},
		Products: []Product{
			{
				ID:           "prod-1",
				Name:         "Pit Weighbridge",
				Slug:         "pit-weighbridge",
				Category:     "weighbridges",
				Description:  "Flush mounted",
				Image:        "/images/pit.jpg",
				Applications: []string{"Mining"},
			},
		},
	}
}

func writeTempCatalog(t *testing.T, catalog *Catalog) string {
	t.Helper()
	data, err := json.Marshal(catalog)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

// --- Validate ---

func TestValidate_ValidCatalog(t *testing.T) {
	errs := minimalValidCatalog().Validate()
	assert.Empty(t, errs)
}

func TestValidate_EmptyCatalog(t *testing.T) {
	errs := (&Catalog{}).Validate()
	assert.Empty(t, errs)
}

func TestValidate_MissingFields(t *testing.T) {
	cat := &Catalog{
		Categories: []Category{{ID: "c"}},
		Products:   []Product{{ID: "p"}},
	}
	errs := cat.Validate()
	require.Len(t, errs, 4)
	assert.Contains(t, errs[0].Error(), "categories[0]: name is required")
	assert.Contains(t, errs[1].Error(), "categories[0]: slug is required")
	assert.Contains(t, errs[2].Error(), "products[0]: name is required")
	assert.Contains(t, errs[3].Error(), "products[0]: slug is required")
}

func TestValidate_DuplicateProductSlug(t *testing.T) {
	cat := minimalValidCatalog()
	dup := cat.Products[0]
	dup.ID = "prod-2"
	cat.Products = append(cat.Products, dup)

	errs := cat.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), `duplicate product slug "pit-weighbridge"`)
}

func TestValidate_DuplicateCategorySlug(t *testing.T) {
	cat := minimalValidCatalog()
	cat.Categories = append(cat.Categories, cat.Categories[0])

	errs := cat.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), `duplicate category slug "weighbridges"`)
}

func TestValidate_UnsafeSlug(t *testing.T) {
	cat := minimalValidCatalog()
	cat.Products[0].Slug = "Pit Weighbridge"

	errs := cat.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "not URL-safe")
}

func TestValidate_DanglingCategoryIsNotAnError(t *testing.T) {
	cat := minimalValidCatalog()
	cat.Products[0].Category = "no-such-category"
	assert.Empty(t, cat.Validate())
}

// --- BuildIndex ---

func TestBuildIndex(t *testing.T) {
	cat := minimalValidCatalog()
	cat.Products = append(cat.Products, Product{ID: "prod-2", Name: "Orphan", Slug: "orphan", Category: "gone"})

	idx := cat.BuildIndex()

	assert.Len(t, idx.ProductBySlug, 2)
	assert.Len(t, idx.CategoryBySlug, 1)
	assert.Same(t, &cat.Products[0], idx.ProductBySlug["pit-weighbridge"])
	assert.Same(t, &cat.Categories[0], idx.CategoryBySlug["weighbridges"])
	require.Len(t, idx.ProductsByCategory["weighbridges"], 1)
	require.Len(t, idx.ProductsByCategory["gone"], 1)
	assert.Equal(t, "orphan", idx.ProductsByCategory["gone"][0].Slug)
}

func TestBuildIndex_FirstSlugWins(t *testing.T) {
	cat := minimalValidCatalog()
	second := cat.Products[0]
	second.ID = "prod-2"
	cat.Products = append(cat.Products, second)

	idx := cat.BuildIndex()
	assert.Equal(t, "prod-1", idx.ProductBySlug["pit-weighbridge"].ID)
}

// --- Load ---

func TestLoadFromFile(t *testing.T) {
	path := writeTempCatalog(t, minimalValidCatalog())

	cat, idx, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Len(t, cat.Products, 1)
	assert.Contains(t, idx.ProductBySlug, "pit-weighbridge")
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read catalog file")
}

func TestLoadFromBytes_InvalidJSON(t *testing.T) {
	_, _, err := LoadFromBytes([]byte(`{"products": [`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse catalog JSON")
}

func TestLoadFromBytes_ValidationFailure(t *testing.T) {
	cat := minimalValidCatalog()
	cat.Products = append(cat.Products, cat.Products[0])
	data, err := json.Marshal(cat)
	require.NoError(t, err)

	_, _, err = LoadFromBytes(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog validation failed")
}

func TestLoadFromBytes_PreservesSourceOrder(t *testing.T) {
	data := []byte(`{
		"categories": [
			{"id": "2", "name": "B", "slug": "b", "description": ""},
			{"id": "1", "name": "A", "slug": "a", "description": ""}
		],
		"products": [
			{"id": "p2", "name": "Zed", "slug": "zed", "category": "b", "applications": []},
			{"id": "p1", "name": "Alpha", "slug": "alpha", "category": "a", "applications": []}
		]
	}`)

	cat, _, err := LoadFromBytes(data)
	require.NoError(t, err)
	assert.Equal(t, "b", cat.Categories[0].Slug)
	assert.Equal(t, "zed", cat.Products[0].Slug)
}

func TestLoadFromBytes_EmbeddedBundle(t *testing.T) {
	cat, idx, err := LoadFromBytes(catalogs.ProductsJSON)
	require.NoError(t, err)
	assert.NotEmpty(t, cat.Categories)
	assert.NotEmpty(t, cat.Products)
	for _, p := range cat.Products {
		_, ok := idx.CategoryBySlug[p.Category]
		assert.True(t, ok, "product %q references unknown category %q", p.Slug, p.Category)
	}
}
