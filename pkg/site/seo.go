package site

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/gandtscales/scalesite/pkg/catalog"
	"github.com/gandtscales/scalesite/pkg/util"
)

// Meta is the per-page SEO block rendered into <head>.
type Meta struct {
	Title       string
	Description string
	Canonical   string
	OGType      string
	OGImage     string
	NoIndex     bool
}

// meta builds Meta for a page at path. An empty title selects the site's
// default title; anything else goes through the title template.
func (r *Renderer) meta(path, title, description string) Meta {
	site := r.cfg.Site

	full := site.DefaultTitle
	if title != "" {
		full = fmt.Sprintf(site.TitleTemplate, title)
	}
	if description == "" {
		description = site.Description
	}

	return Meta{
		Title:       full,
		Description: util.Truncate(description, 160),
		Canonical:   r.absoluteURL(path),
		OGType:      "website",
		OGImage:     r.absoluteURL(site.OGImage),
	}
}

// absoluteURL joins the site URL, base path and p.
func (r *Renderer) absoluteURL(p string) string {
	return r.cfg.Site.URL + WithBasePath(r.cfg.Site.BasePath, p)
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc      string  `xml:"loc"`
	Priority float64 `xml:"priority,omitempty"`
}

// sitemap lists every indexable HTML route.
func (r *Renderer) sitemap() ([]byte, error) {
	set := sitemapURLSet{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, route := range r.Routes() {
		if !strings.HasSuffix(route.Path, "/") {
			continue
		}
		set.URLs = append(set.URLs, sitemapURL{
			Loc:      r.absoluteURL(route.Path),
			Priority: sitemapPriority(route.Path),
		})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return nil, fmt.Errorf("failed to encode sitemap: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func sitemapPriority(p string) float64 {
	switch {
	case p == HomePath:
		return 1.0
	case p == ShopPath, strings.HasPrefix(p, "/product/"):
		return 0.8
	case strings.Contains(p, "/page/"):
		return 0.3
	default:
		return 0.5
	}
}

func (r *Renderer) robots() []byte {
	return []byte(fmt.Sprintf("User-agent: *\nAllow: /\n\nSitemap: %s\n", r.absoluteURL(SitemapPath)))
}

// SearchEntry is one product in the client-side search index.
type SearchEntry struct {
	Slug         string   `json:"slug"`
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	CategoryName string   `json:"category_name"`
	Description  string   `json:"description"`
	Applications []string `json:"applications,omitempty"`
	URL          string   `json:"url"`
	Image        string   `json:"image"`
}

// searchIndex serializes every product for static search.
func (r *Renderer) searchIndex() ([]byte, error) {
	products := r.qs.ListProducts()
	entries := make([]SearchEntry, 0, len(products))
	for _, p := range products {
		entries = append(entries, SearchEntry{
			Slug:         p.Slug,
			Name:         p.Name,
			Category:     p.Category,
			CategoryName: r.categoryName(p),
			Description:  p.Description,
			Applications: p.Applications,
			URL:          r.url(ProductPath(p.Slug)),
			Image:        r.url(catalog.ResolveImage(p.Image)),
		})
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to encode search index: %w", err)
	}
	return data, nil
}
