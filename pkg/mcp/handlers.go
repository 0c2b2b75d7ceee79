package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/gandtscales/scalesite/pkg/catalog"
	"github.com/gandtscales/scalesite/pkg/contact"
	"github.com/gandtscales/scalesite/pkg/site"
	"github.com/gandtscales/scalesite/pkg/util"
)

// relatedLimit matches the related products shown on a product page.
const relatedLimit = 3

// productSummary is the compact product shape used in lists.
type productSummary struct {
	Slug         string   `json:"slug"`
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Description  string   `json:"description"`
	Image        string   `json:"image"`
	Featured     bool     `json:"featured,omitempty"`
	Applications []string `json:"applications,omitempty"`
	URL          string   `json:"url"`
}

type productPage struct {
	Items      []productSummary `json:"items"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}

type productDetail struct {
	productSummary
	ID           string           `json:"id"`
	CategoryName string           `json:"category_name"`
	QuoteURL     string           `json:"quote_url"`
	WhatsAppURL  string           `json:"whatsapp_url"`
	Related      []productSummary `json:"related"`
}

type categoryDetail struct {
	catalog.Category
	URL      string           `json:"url"`
	Products []productSummary `json:"products"`
}

func (s *Server) handleListCategories(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.query.CategoriesWithCounts())
}

func (s *Server) handleListProducts(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageSize := req.GetInt("page_size", s.cfg.Site.PageSize)
	if pageSize < 0 {
		return mcp.NewToolResultError("page_size must not be negative"), nil
	}

	res := s.query.QueryProducts(catalog.QueryOptions{
		Category: req.GetString("category", ""),
		Q:        req.GetString("q", ""),
		Page:     req.GetInt("page", 1),
		PageSize: pageSize,
	})

	return jsonResult(productPage{
		Items:      s.summaries(res.Items),
		Total:      res.Total,
		Page:       res.Page,
		PageSize:   res.PageSize,
		TotalPages: res.TotalPages,
	})
}

func (s *Server) handleGetProduct(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	p, ok := s.query.GetProductBySlug(slug)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("product not found: %s", slug)), nil
	}

	categoryName := util.Humanize(p.Category)
	if c, ok := s.query.CategoryForProduct(*p); ok {
		categoryName = c.Name
	}

	return jsonResult(productDetail{
		productSummary: s.summary(*p),
		ID:             p.ID,
		CategoryName:   categoryName,
		QuoteURL:       s.pageURL(site.QuoteProductPath(p.Slug)),
		WhatsAppURL:    contact.WhatsAppURL(s.cfg.Company.WhatsApp, contact.ProductEnquiry(p.Name)),
		Related:        s.summaries(s.query.RelatedProducts(*p, relatedLimit)),
	})
}

func (s *Server) handleGetCategory(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	c, ok := s.query.GetCategoryBySlug(slug)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("category not found: %s", slug)), nil
	}

	return jsonResult(categoryDetail{
		Category: *c,
		URL:      s.pageURL(site.CategoryPath(c.Slug, 1)),
		Products: s.summaries(s.query.ListProductsByCategory(c.Slug)),
	})
}

func (s *Server) handleFeaturedProducts(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.summaries(s.query.ListFeaturedProducts()))
}

func (s *Server) summary(p catalog.Product) productSummary {
	return productSummary{
		Slug:         p.Slug,
		Name:         p.Name,
		Category:     p.Category,
		Description:  p.Description,
		Image:        s.pageURL(catalog.ResolveImage(p.Image)),
		Featured:     p.Featured,
		Applications: p.Applications,
		URL:          s.pageURL(site.ProductPath(p.Slug)),
	}
}

func (s *Server) summaries(products []catalog.Product) []productSummary {
	out := make([]productSummary, len(products))
	for i, p := range products {
		out[i] = s.summary(p)
	}
	return out
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}
