package catalog

import "strings"

const (
	// DefaultPageSize is used when QueryOptions.PageSize is not positive.
	DefaultPageSize = 12

	// PlaceholderImage replaces product images that are not site-rooted paths.
	PlaceholderImage = "/images/product-placeholder.svg"
)

// QueryService provides read-only query methods over a loaded catalog.
type QueryService struct {
	Catalog *Catalog
	Index   *CatalogIndex
}

// NewQueryService creates a QueryService from a validated catalog and its index.
func NewQueryService(cat *Catalog, idx *CatalogIndex) *QueryService {
	return &QueryService{Catalog: cat, Index: idx}
}

// LoadAndQuery loads a catalog from file and returns a ready-to-use QueryService.
func LoadAndQuery(path string) (*QueryService, error) {
	cat, idx, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	return NewQueryService(cat, idx), nil
}

// LoadAndQueryBytes loads a catalog from raw JSON bytes and returns a ready-to-use QueryService.
func LoadAndQueryBytes(data []byte) (*QueryService, error) {
	cat, idx, err := LoadFromBytes(data)
	if err != nil {
		return nil, err
	}
	return NewQueryService(cat, idx), nil
}

// ListCategories returns all categories in source order.
func (q *QueryService) ListCategories() []Category {
	return q.Catalog.Categories
}

// ListProducts returns all products in source order.
func (q *QueryService) ListProducts() []Product {
	return q.Catalog.Products
}

// GetProductBySlug looks up a product by exact, case-sensitive slug.
// The bool indicates whether the product was found.
func (q *QueryService) GetProductBySlug(slug string) (*Product, bool) {
	p, ok := q.Index.ProductBySlug[slug]
	return p, ok
}

// GetCategoryBySlug looks up a category by exact, case-sensitive slug.
func (q *QueryService) GetCategoryBySlug(slug string) (*Category, bool) {
	c, ok := q.Index.CategoryBySlug[slug]
	return c, ok
}

// ListProductsByCategory returns products whose category field equals categorySlug.
// The slug is not checked against the known categories; an unknown slug yields an empty slice.
func (q *QueryService) ListProductsByCategory(categorySlug string) []Product {
	matches := q.Index.ProductsByCategory[categorySlug]
	result := make([]Product, 0, len(matches))
	for _, p := range matches {
		result = append(result, *p)
	}
	return result
}

// ListFeaturedProducts returns products flagged for the homepage showcase.
func (q *QueryService) ListFeaturedProducts() []Product {
	result := make([]Product, 0)
	for _, p := range q.Catalog.Products {
		if p.Featured {
			result = append(result, p)
		}
	}
	return result
}

// CategoriesWithCounts returns every category with the number of products referencing it.
func (q *QueryService) CategoriesWithCounts() []CategoryCount {
	result := make([]CategoryCount, 0, len(q.Catalog.Categories))
	for _, cat := range q.Catalog.Categories {
		result = append(result, CategoryCount{
			Category:     cat,
			ProductCount: len(q.Index.ProductsByCategory[cat.Slug]),
		})
	}
	return result
}

// CategoryForProduct returns the category a product references, if it exists.
func (q *QueryService) CategoryForProduct(p Product) (*Category, bool) {
	return q.GetCategoryBySlug(p.Category)
}

// RelatedProducts returns up to limit products from the same category, excluding p.
func (q *QueryService) RelatedProducts(p Product, limit int) []Product {
	result := make([]Product, 0, limit)
	for _, other := range q.Index.ProductsByCategory[p.Category] {
		if len(result) >= limit {
			break
		}
		if other.Slug == p.Slug {
			continue
		}
		result = append(result, *other)
	}
	return result
}

// DanglingReferences returns products whose category matches no known category.
func (q *QueryService) DanglingReferences() []Product {
	var result []Product
	for _, p := range q.Catalog.Products {
		if _, ok := q.Index.CategoryBySlug[p.Category]; !ok {
			result = append(result, p)
		}
	}
	return result
}

// QueryProducts filters by category and keyword, then returns one page of results.
//
// The keyword matches case-insensitively against Name, Description and each
// application. The requested page is clamped into [1, max(TotalPages, 1)].
func (q *QueryService) QueryProducts(opts QueryOptions) QueryResult {
	var candidates []Product
	if opts.Category != "" {
		candidates = q.ListProductsByCategory(opts.Category)
	} else {
		candidates = q.Catalog.Products
	}

	keyword := strings.ToLower(opts.Q)
	filtered := make([]Product, 0, len(candidates))
	for _, p := range candidates {
		if keyword != "" && !matchesKeyword(p, keyword) {
			continue
		}
		filtered = append(filtered, p)
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	total := len(filtered)
	totalPages := total / pageSize
	if total%pageSize != 0 {
		totalPages++
	}
	page := clamp(opts.Page, 1, max(totalPages, 1))

	start := (page - 1) * pageSize
	end := start + min(pageSize, total-start)

	return QueryResult{
		Items:      filtered[start:end],
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// ResolveImage returns path unchanged when it is site-rooted, otherwise PlaceholderImage.
func ResolveImage(path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	return PlaceholderImage
}

// matchesKeyword reports whether keyword (already lower-cased) occurs in p.
func matchesKeyword(p Product, keyword string) bool {
	if strings.Contains(strings.ToLower(p.Name), keyword) {
		return true
	}
	if strings.Contains(strings.ToLower(p.Description), keyword) {
		return true
	}
	for _, app := range p.Applications {
		if strings.Contains(strings.ToLower(app), keyword) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
