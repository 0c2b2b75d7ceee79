package catalog

// Category groups products on the shop pages.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// Product represents a single catalog entry.
type Product struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Slug         string   `json:"slug"`
	Category     string   `json:"category"` // Category.Slug, not enforced at load time
	Description  string   `json:"description"`
	Image        string   `json:"image"`
	Featured     bool     `json:"featured"`
	Applications []string `json:"applications"`
}

// CategoryCount pairs a category with the number of products that reference it.
type CategoryCount struct {
	Category
	ProductCount int `json:"product_count"`
}

// QueryOptions filters and paginates QueryProducts.
// Zero values disable the corresponding filter.
type QueryOptions struct {
	Category string
	Q        string
	Page     int
	PageSize int
}

// QueryResult is one page of a product query.
// Page is the clamped page actually used, never the raw request.
type QueryResult struct {
	Items      []Product `json:"items"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int       `json:"total_pages"`
}
