// Package site renders the marketing pages and product catalog to HTML.
//
// A Renderer is immutable: it is built from a config and a loaded catalog,
// parses its templates and content once, and can then render any route
// concurrently. Reloading means building a new Renderer.
package site

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gandtscales/scalesite/pkg/catalog"
	"github.com/gandtscales/scalesite/pkg/config"
)

// ErrNotFound is returned by Render for paths that match no page.
var ErrNotFound = errors.New("page not found")

// Content types of rendered pages.
const (
	ContentTypeHTML = "text/html; charset=utf-8"
	ContentTypeXML  = "application/xml; charset=utf-8"
	ContentTypeText = "text/plain; charset=utf-8"
	ContentTypeJSON = "application/json; charset=utf-8"
)

// relatedLimit is the number of related products on a product page.
const relatedLimit = 3

// Page is one rendered route.
type Page struct {
	Path        string
	ContentType string
	Body        []byte
}

// Options tunes a Renderer.
type Options struct {
	// Logger for warnings. If nil, uses slog.Default().
	Logger *slog.Logger

	// Now supplies the current time for the footer year and company age.
	// If nil, uses time.Now.
	Now func() time.Time
}

// Renderer turns site paths into pages.
type Renderer struct {
	cfg    *config.Config
	qs     *catalog.QueryService
	logger *slog.Logger
	now    func() time.Time

	templates map[string]*template.Template
	docs      map[string]*Document
	faq       *FAQ
}

// documentPages maps markdown-backed routes to their content file.
var documentPages = map[string]string{
	AboutPath:       "about",
	ServicesPath:    "services",
	CaseStudiesPath: "case-studies",
	TermsPath:       "terms",
	PrivacyPath:     "privacy",
}

var pageTemplates = []string{
	"home", "document", "faq", "contact", "quote", "report-fault",
	"book-service", "listing", "categories", "product", "not-found",
}

// New parses templates and content and returns a ready Renderer.
// A nil cfg uses config.Default().
func New(cfg *config.Config, qs *catalog.QueryService, opts Options) (*Renderer, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if qs == nil {
		return nil, errors.New("site: catalog is required")
	}

	r := &Renderer{
		cfg:    cfg,
		qs:     qs,
		logger: opts.Logger,
		now:    opts.Now,
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.now == nil {
		r.now = time.Now
	}

	if err := r.parseTemplates(); err != nil {
		return nil, err
	}
	if err := r.loadContent(); err != nil {
		return nil, err
	}

	for _, p := range qs.DanglingReferences() {
		r.logger.Warn("Product references unknown category", "product", p.Slug, "category", p.Category)
	}
	return r, nil
}

func (r *Renderer) parseTemplates() error {
	base, err := template.New("layout").Funcs(r.funcs()).ParseFS(templateFS,
		"templates/layout.html", "templates/partials.html")
	if err != nil {
		return fmt.Errorf("failed to parse layout templates: %w", err)
	}

	r.templates = make(map[string]*template.Template, len(pageTemplates))
	for _, name := range pageTemplates {
		t, err := base.Clone()
		if err != nil {
			return fmt.Errorf("failed to clone layout for %s: %w", name, err)
		}
		if _, err := t.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.templates[name] = t
	}
	return nil
}

func (r *Renderer) loadContent() error {
	store := newContentStore(r.cfg.Paths.Content)

	r.docs = make(map[string]*Document, len(documentPages))
	for _, name := range documentPages {
		doc, err := store.Document(name)
		if err != nil {
			return err
		}
		doc.Body = r.rebaseLinks(doc.Body)
		r.docs[name] = doc
	}

	faq, err := store.FAQ()
	if err != nil {
		return err
	}
	r.faq = faq
	return nil
}

// rebaseLinks prefixes site-rooted links in rendered markdown with the base path.
func (r *Renderer) rebaseLinks(h template.HTML) template.HTML {
	base := r.cfg.Site.BasePath
	if base == "" {
		return h
	}
	s := string(h)
	for _, attr := range []string{`href="/`, `src="/`} {
		s = strings.ReplaceAll(s, attr, attr[:len(attr)-1]+base+"/")
	}
	return template.HTML(s)
}

// Catalog returns the query service the Renderer was built with.
func (r *Renderer) Catalog() *catalog.QueryService {
	return r.qs
}

// Config returns the Renderer's configuration.
func (r *Renderer) Config() *config.Config {
	return r.cfg
}

// Routes lists every page of the static export in a stable order.
func (r *Renderer) Routes() []Route {
	paths := []string{
		HomePath, AboutPath, ServicesPath, CaseStudiesPath, FAQPath, ContactPath,
		QuotePath, ReportFaultPath, BookServicePath, TermsPath, PrivacyPath,
	}

	all := r.qs.QueryProducts(catalog.QueryOptions{PageSize: r.pageSize()})
	for n := 1; n <= max(all.TotalPages, 1); n++ {
		paths = append(paths, ShopPagePath(n))
	}

	paths = append(paths, CategoriesPath)
	for _, c := range r.qs.ListCategories() {
		res := r.qs.QueryProducts(catalog.QueryOptions{Category: c.Slug, PageSize: r.pageSize()})
		for n := 1; n <= max(res.TotalPages, 1); n++ {
			paths = append(paths, CategoryPath(c.Slug, n))
		}
	}

	for _, p := range r.qs.ListProducts() {
		paths = append(paths, ProductPath(p.Slug))
	}

	paths = append(paths, NotFoundPath, SitemapPath, RobotsPath, SearchIndexPath)

	routes := make([]Route, len(paths))
	for i, p := range paths {
		routes[i] = Route{Path: p}
	}
	return routes
}

// Render produces the page for a site path (without base path).
//
// query carries the preview server's query string; only /shop/ (page,
// category, q) and /quote/ (product) read it. Unknown paths and slugs
// return an error wrapping ErrNotFound.
func (r *Renderer) Render(path string, query url.Values) (*Page, error) {
	p := canonicalPath(path)

	switch p {
	case HomePath:
		return r.renderHTML(p, "home", r.meta(p, "", ""), r.homeView())
	case FAQPath:
		return r.renderHTML(p, "faq", r.meta(p, "FAQs", r.faq.Description), r.faq)
	case ContactPath:
		return r.renderHTML(p, "contact", r.meta(p, "Contact Us",
			"Get in touch with G&T Scale Services. Call, WhatsApp, or email our offices for help with weighing equipment."),
			r.contactView())
	case QuotePath:
		return r.renderHTML(p, "quote", r.meta(p, "Request a Quote",
			"Get a customized quote for weighing equipment and services."),
			r.quoteView(query.Get("product")))
	case ReportFaultPath:
		return r.renderHTML(p, "report-fault", r.meta(p, "Report a Fault",
			"Report equipment issues and request service support from G&T Scale Services."),
			r.supportView(contactFaultReport))
	case BookServicePath:
		return r.renderHTML(p, "book-service", r.meta(p, "Book a Service",
			"Book calibration, repair, installation or maintenance for your weighing equipment."),
			r.supportView(contactServiceBooking))
	case ShopPath:
		return r.renderListing(p, shopRequest(query))
	case CategoriesPath:
		return r.renderHTML(p, "categories", r.meta(p, "Product Categories",
			"Browse weighing equipment by category."), r.categoriesView())
	case NotFoundPath:
		return r.NotFound()
	case SitemapPath:
		body, err := r.sitemap()
		if err != nil {
			return nil, err
		}
		return &Page{Path: p, ContentType: ContentTypeXML, Body: body}, nil
	case RobotsPath:
		return &Page{Path: p, ContentType: ContentTypeText, Body: r.robots()}, nil
	case SearchIndexPath:
		body, err := r.searchIndex()
		if err != nil {
			return nil, err
		}
		return &Page{Path: p, ContentType: ContentTypeJSON, Body: body}, nil
	}

	if name, ok := documentPages[p]; ok {
		doc := r.docs[name]
		return r.renderHTML(p, "document", r.meta(p, doc.Title, doc.Description), r.documentView(name, doc))
	}

	segs := strings.Split(strings.Trim(p, "/"), "/")
	switch {
	case len(segs) == 3 && segs[0] == "shop" && segs[1] == "page":
		if n, ok := parsePageSegment(segs[2]); ok {
			return r.renderListing(p, listingRequest{Page: n})
		}
	case len(segs) == 3 && segs[0] == "shop" && segs[1] == "category":
		return r.renderCategory(p, segs[2], 1)
	case len(segs) == 5 && segs[0] == "shop" && segs[1] == "category" && segs[3] == "page":
		if n, ok := parsePageSegment(segs[4]); ok {
			return r.renderCategory(p, segs[2], n)
		}
	case len(segs) == 2 && segs[0] == "product":
		return r.renderProduct(p, segs[1])
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
}

// NotFound renders the 404 page.
func (r *Renderer) NotFound() (*Page, error) {
	meta := r.meta(NotFoundPath, "Page Not Found", "The page you are looking for does not exist.")
	meta.NoIndex = true
	return r.renderHTML(NotFoundPath, "not-found", meta, r.notFoundView())
}

func (r *Renderer) renderCategory(p, slug string, page int) (*Page, error) {
	if _, ok := r.qs.GetCategoryBySlug(slug); !ok {
		return nil, fmt.Errorf("%w: category %q", ErrNotFound, slug)
	}
	return r.renderListing(p, listingRequest{Category: slug, Page: page})
}

func (r *Renderer) renderListing(p string, req listingRequest) (*Page, error) {
	view := r.listingView(req)

	title := "Shop"
	description := "Browse precision weighing equipment: industrial, agricultural, retail, laboratory and jewellery scales, weighbridges and accessories."
	if view.Category != nil {
		title = view.Category.Name
		description = view.Category.Description
	}
	if view.Result.Page > 1 {
		title = fmt.Sprintf("%s (Page %d)", title, view.Result.Page)
	}

	meta := r.meta(view.CanonicalPath, title, description)
	if req.Query {
		meta.NoIndex = true
	}
	return r.renderHTML(p, "listing", meta, view)
}

func (r *Renderer) renderProduct(p, slug string) (*Page, error) {
	product, ok := r.qs.GetProductBySlug(slug)
	if !ok {
		return nil, fmt.Errorf("%w: product %q", ErrNotFound, slug)
	}
	view := r.productView(*product)
	meta := r.meta(p, product.Name, product.Description)
	meta.OGType = "product"
	if img := catalog.ResolveImage(product.Image); img != catalog.PlaceholderImage {
		meta.OGImage = r.absoluteURL(img)
	}
	return r.renderHTML(p, "product", meta, view)
}

func (r *Renderer) renderHTML(p, name string, meta Meta, data any) (*Page, error) {
	t, ok := r.templates[name]
	if !ok {
		return nil, fmt.Errorf("unknown template %q", name)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", r.pageData(p, meta, data)); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", p, err)
	}
	return &Page{Path: p, ContentType: ContentTypeHTML, Body: buf.Bytes()}, nil
}

func (r *Renderer) pageSize() int {
	if r.cfg.Site.PageSize > 0 {
		return r.cfg.Site.PageSize
	}
	return catalog.DefaultPageSize
}

// parsePageSegment parses the <n> of /page/<n>/. Any integer is accepted
// and later clamped; non-numeric segments are not pages.
func parsePageSegment(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// shopRequest reads the preview server's /shop/ query parameters.
func shopRequest(q url.Values) listingRequest {
	req := listingRequest{
		Category: q.Get("category"),
		Q:        strings.TrimSpace(q.Get("q")),
		Page:     1,
	}
	if n, err := strconv.Atoi(q.Get("page")); err == nil {
		req.Page = n
	}
	req.Query = q.Has("page") || q.Has("category") || q.Has("q")
	return req
}
