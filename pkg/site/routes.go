package site

import (
	"net/url"
	"path"
	"strconv"
	"strings"
)

// Fixed site routes. Directory routes end in a slash and are exported as
// <dir>/index.html; the rest are literal files.
const (
	HomePath        = "/"
	AboutPath       = "/about/"
	ServicesPath    = "/services/"
	CaseStudiesPath = "/case-studies/"
	FAQPath         = "/faq/"
	ContactPath     = "/contact/"
	QuotePath       = "/quote/"
	ReportFaultPath = "/report-fault/"
	BookServicePath = "/book-service/"
	TermsPath       = "/terms/"
	PrivacyPath     = "/privacy/"
	ShopPath        = "/shop/"
	CategoriesPath  = "/shop/categories/"
	NotFoundPath    = "/404.html"
	SitemapPath     = "/sitemap.xml"
	RobotsPath      = "/robots.txt"
	SearchIndexPath = "/search-index.json"
)

// Route is one exportable page.
type Route struct {
	Path string
}

// File returns the output file for the route relative to the export root.
func (r Route) File() string {
	return OutputFile(r.Path)
}

// OutputFile maps a site path to its file in a trailing-slash export.
func OutputFile(p string) string {
	if p == "" || strings.HasSuffix(p, "/") {
		return path.Join(strings.TrimPrefix(p, "/"), "index.html")
	}
	return strings.TrimPrefix(p, "/")
}

// ShopPagePath returns the path of listing page n of the full catalog.
func ShopPagePath(n int) string {
	if n <= 1 {
		return ShopPath
	}
	return ShopPath + "page/" + strconv.Itoa(n) + "/"
}

// CategoryPath returns the path of listing page n of one category.
func CategoryPath(slug string, n int) string {
	p := ShopPath + "category/" + slug + "/"
	if n <= 1 {
		return p
	}
	return p + "page/" + strconv.Itoa(n) + "/"
}

// ProductPath returns the detail page path for a product slug.
func ProductPath(slug string) string {
	return "/product/" + slug + "/"
}

// QuoteProductPath returns the quote page preselecting a product.
func QuoteProductPath(slug string) string {
	return QuotePath + "?product=" + url.QueryEscape(slug)
}

// ShopQueryPath returns the query-parameter form of a shop listing, as
// accepted by the preview server.
func ShopQueryPath(category, q string, page int) string {
	v := url.Values{}
	if page > 1 {
		v.Set("page", strconv.Itoa(page))
	}
	if category != "" {
		v.Set("category", category)
	}
	if q != "" {
		v.Set("q", q)
	}
	if len(v) == 0 {
		return ShopPath
	}
	return ShopPath + "?" + v.Encode()
}

// WithBasePath prefixes an internal link with the deployment base path.
//
// Absolute URLs, empty paths and paths already under base are returned as is.
func WithBasePath(base, p string) string {
	if p == "" || base == "" {
		return p
	}
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	if p == base || strings.HasPrefix(p, base+"/") {
		return p
	}
	if strings.HasPrefix(p, "/") {
		return base + p
	}
	return base + "/" + p
}

// canonicalPath normalizes a request path: leading slash, no duplicate
// slashes, and a trailing slash on anything without a file extension.
func canonicalPath(p string) string {
	if p == "" {
		return "/"
	}
	trailing := strings.HasSuffix(p, "/")
	p = path.Clean("/" + p)
	if p == "/" {
		return p
	}
	if trailing || path.Ext(p) == "" {
		return p + "/"
	}
	return p
}
