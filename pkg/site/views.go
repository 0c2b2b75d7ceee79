package site

import (
	"html/template"
	"strconv"
	"strings"

	"github.com/gandtscales/scalesite/pkg/catalog"
	"github.com/gandtscales/scalesite/pkg/config"
	"github.com/gandtscales/scalesite/pkg/contact"
	"github.com/gandtscales/scalesite/pkg/pagination"
	"github.com/gandtscales/scalesite/pkg/util"
)

// pageData is the root value every template executes against.
type pageData struct {
	Site    config.SiteConfig
	Company config.CompanyConfig
	Meta    Meta
	Path    string
	Nav     []navItem
	Footer  []footerColumn
	Year    int
	Data    any
}

type navItem struct {
	Name     string
	Href     string
	Active   bool
	Children []navItem
}

type footerColumn struct {
	Title string
	Links []navItem
}

func (r *Renderer) pageData(p string, meta Meta, data any) pageData {
	return pageData{
		Site:    r.cfg.Site,
		Company: r.cfg.Company,
		Meta:    meta,
		Path:    p,
		Nav:     r.nav(p),
		Footer:  r.footer(),
		Year:    r.now().Year(),
		Data:    data,
	}
}

func (r *Renderer) nav(active string) []navItem {
	products := []navItem{{Name: "All Products", Href: r.url(ShopPath)}}
	for _, c := range r.qs.ListCategories() {
		products = append(products, navItem{Name: c.Name, Href: r.url(CategoryPath(c.Slug, 1))})
	}

	items := []navItem{
		{Name: "Home", Href: r.url(HomePath), Active: active == HomePath},
		{Name: "Services", Href: r.url(ServicesPath), Active: active == ServicesPath},
		{Name: "Products", Href: r.url(ShopPath), Active: isShopPath(active), Children: products},
		{Name: "About", Href: r.url(AboutPath), Active: active == AboutPath},
		{Name: "Contact", Href: r.url(ContactPath), Active: active == ContactPath},
	}
	return items
}

func isShopPath(p string) bool {
	return strings.HasPrefix(p, ShopPath) || strings.HasPrefix(p, "/product/")
}

func (r *Renderer) footer() []footerColumn {
	link := func(name, p string) navItem { return navItem{Name: name, Href: r.url(p)} }

	products := make([]navItem, 0, 5)
	for i, c := range r.qs.ListCategories() {
		if i == 4 {
			break
		}
		products = append(products, link(c.Name, CategoryPath(c.Slug, 1)))
	}
	products = append(products, link("All Products", ShopPath))

	return []footerColumn{
		{Title: "Company", Links: []navItem{
			link("About Us", AboutPath),
			link("Our Services", ServicesPath),
			link("Case Studies", CaseStudiesPath),
			link("Contact", ContactPath),
		}},
		{Title: "Products", Links: products},
		{Title: "Services", Links: []navItem{
			link("Equipment Supply", ServicesPath+"#supply"),
			link("Repair & Maintenance", ServicesPath+"#repair"),
			link("Calibration", ServicesPath+"#calibration"),
			link("Custom Solutions", ServicesPath+"#custom"),
		}},
		{Title: "Support", Links: []navItem{
			link("Request a Quote", QuotePath),
			link("Book a Service", BookServicePath),
			link("Report a Fault", ReportFaultPath),
			link("FAQs", FAQPath),
		}},
	}
}

// --- home ---

type stat struct {
	Value string
	Label string
	Note  string
}

type serviceSummary struct {
	Title       string
	Description string
	Href        string
}

type homeView struct {
	Featured   []catalog.Product
	Categories []categoryLink
	Stats      []stat
	Services   []serviceSummary
	Highlights []string
}

func (r *Renderer) homeView() homeView {
	years := max(1, r.now().Year()-r.cfg.Company.Founded)
	return homeView{
		Featured:   r.qs.ListFeaturedProducts(),
		Categories: r.categoryLinks(""),
		Stats: []stat{
			{Value: strconv.Itoa(years) + "+", Label: "Years of Excellence", Note: "Serving Zimbabwe since " + strconv.Itoa(r.cfg.Company.Founded)},
			{Value: "1,000+", Label: "Happy Clients", Note: "Across all industries"},
			{Value: "5,000+", Label: "Products Delivered", Note: "Quality equipment"},
			{Value: "98%", Label: "Client Satisfaction", Note: "Based on reviews"},
		},
		Services: []serviceSummary{
			{Title: "Equipment Supply", Description: "Platform, bench, crane, retail and laboratory scales, weighbridges, load cells and indicators.", Href: r.url(ServicesPath + "#supply")},
			{Title: "Repair & Maintenance", Description: "On-site and workshop repairs for all brands, using genuine parts.", Href: r.url(ServicesPath + "#repair")},
			{Title: "Calibration", Description: "ISO-traceable calibration with certificates and legal-for-trade verification.", Href: r.url(ServicesPath + "#calibration")},
		},
		Highlights: []string{
			"EcoCash / OneMoney / Bank transfer",
			"ISO-traceable calibration certificates",
			"Nationwide delivery & service",
		},
	}
}

// --- content pages ---

type documentView struct {
	Name string
	*Document
}

func (r *Renderer) documentView(name string, doc *Document) documentView {
	return documentView{Name: name, Document: doc}
}

type contactView struct {
	Offices []config.Office
	Hours   []string
	Cells   []string
}

func (r *Renderer) contactView() contactView {
	return contactView{
		Offices: r.cfg.Company.Offices,
		Hours:   r.cfg.Company.Hours,
		Cells:   r.cfg.Company.Cells,
	}
}

type quoteView struct {
	Product         *catalog.Product
	Message         string
	PopularProducts []categoryLink
	Checklist       []string
}

func (r *Renderer) quoteView(productSlug string) quoteView {
	v := quoteView{
		Message:         contact.QuoteDetails,
		PopularProducts: r.categoryLinks(""),
		Checklist: []string{
			"Product name and quantity required",
			"Application and industry",
			"Capacity and readability needed",
			"Installation requirements",
			"Your contact information",
			"Delivery location",
		},
	}
	if productSlug == "" {
		return v
	}
	if p, ok := r.qs.GetProductBySlug(productSlug); ok {
		v.Product = p
		v.Message = contact.ProductEnquiry(p.Name)
	} else {
		r.logger.Debug("Ignoring unknown quote product", "product", productSlug)
	}
	return v
}

type supportKind int

const (
	contactFaultReport supportKind = iota
	contactServiceBooking
)

type supportView struct {
	Message   string
	Checklist []string
	Steps     []string
}

func (r *Renderer) supportView(kind supportKind) supportView {
	if kind == contactFaultReport {
		return supportView{
			Message: contact.FaultReport,
			Checklist: []string{
				"Your name and company",
				"Contact phone number",
				"Equipment type and model",
				"Serial number (if known)",
				"Location / site address",
				"Description of the issue",
				"When the problem started",
				"Urgency level (normal or urgent)",
			},
			Steps: []string{
				"We receive your report and acknowledge within 2 hours.",
				"A technician contacts you to discuss the issue.",
				"We schedule a site visit or provide remote guidance.",
				"Problem resolved and equipment back in service.",
			},
		}
	}
	return supportView{
		Message: contact.ServiceBooking,
		Checklist: []string{
			"Service needed: calibration, repair, installation or maintenance",
			"Equipment type and model",
			"Site location",
			"Preferred date and time",
			"Contact person on site",
		},
		Steps: []string{
			"Send your booking details via WhatsApp or phone.",
			"We confirm a technician and time slot.",
			"The technician completes the work on site or in our workshop.",
			"You receive a job card and, for calibration, a certificate.",
		},
	}
}

// --- catalog pages ---

type categoryLink struct {
	catalog.CategoryCount
	URL    string
	Active bool
}

func (r *Renderer) categoryLinks(active string) []categoryLink {
	counts := r.qs.CategoriesWithCounts()
	links := make([]categoryLink, 0, len(counts))
	for _, c := range counts {
		links = append(links, categoryLink{
			CategoryCount: c,
			URL:           r.url(CategoryPath(c.Slug, 1)),
			Active:        c.Slug == active,
		})
	}
	return links
}

type categoriesView struct {
	Categories []categoryLink
	Total      int
}

func (r *Renderer) categoriesView() categoriesView {
	return categoriesView{
		Categories: r.categoryLinks(""),
		Total:      len(r.qs.ListProducts()),
	}
}

// listingRequest selects one listing page. Query marks requests that came in
// through /shop/ query parameters rather than a path route.
type listingRequest struct {
	Category string
	Q        string
	Page     int
	Query    bool
}

type pageLink struct {
	Number   int
	Ellipsis bool
	Current  bool
	URL      string
}

type listingView struct {
	Category      *catalog.Category
	CategorySlug  string
	Q             string
	Result        catalog.QueryResult
	Start, End    int
	Pages         []pageLink
	ShowPages     bool
	PrevURL       string
	NextURL       string
	Categories    []categoryLink
	AllURL        string
	SearchAction  string
	CanonicalPath string
}

func (r *Renderer) listingView(req listingRequest) listingView {
	res := r.qs.QueryProducts(catalog.QueryOptions{
		Category: req.Category,
		Q:        req.Q,
		Page:     req.Page,
		PageSize: r.pageSize(),
	})

	linkFor := func(n int) string {
		switch {
		case req.Query:
			return r.url(ShopQueryPath(req.Category, req.Q, n))
		case req.Category != "":
			return r.url(CategoryPath(req.Category, n))
		default:
			return r.url(ShopPagePath(n))
		}
	}

	v := listingView{
		CategorySlug:  req.Category,
		Q:             req.Q,
		Result:        res,
		Categories:    r.categoryLinks(req.Category),
		AllURL:        r.url(ShopPath),
		SearchAction:  r.url(ShopPath),
		CanonicalPath: ShopPagePath(res.Page),
	}
	if c, ok := r.qs.GetCategoryBySlug(req.Category); ok {
		v.Category = c
		v.CanonicalPath = CategoryPath(c.Slug, res.Page)
	}

	v.Start, v.End = pagination.Showing(res.Page, res.PageSize, len(res.Items))

	w := pagination.New(res.Page, res.TotalPages)
	v.ShowPages = w.Visible()
	for _, it := range w.Items {
		if it.Ellipsis {
			v.Pages = append(v.Pages, pageLink{Ellipsis: true})
			continue
		}
		v.Pages = append(v.Pages, pageLink{
			Number:  it.Number,
			Current: it.Number == res.Page,
			URL:     linkFor(it.Number),
		})
	}
	if w.HasPrev() {
		v.PrevURL = linkFor(res.Page - 1)
	}
	if w.HasNext() {
		v.NextURL = linkFor(res.Page + 1)
	}
	return v
}

type productView struct {
	Product      catalog.Product
	CategoryName string
	CategoryURL  string // empty when the category does not exist
	Image        string
	Highlights   []string
	Related      []catalog.Product
	QuoteURL     string
	EnquiryURL   string
}

func (r *Renderer) productView(p catalog.Product) productView {
	highlights := p.Applications
	if len(highlights) > 4 {
		highlights = highlights[:4]
	}

	// A dangling category has no page to link to.
	var categoryURL string
	if _, ok := r.qs.CategoryForProduct(p); ok {
		categoryURL = r.url(CategoryPath(p.Category, 1))
	}

	return productView{
		Product:      p,
		CategoryName: r.categoryName(p),
		CategoryURL:  categoryURL,
		Image:        r.url(catalog.ResolveImage(p.Image)),
		Highlights:   highlights,
		Related:      r.qs.RelatedProducts(p, relatedLimit),
		QuoteURL:     r.url(QuoteProductPath(p.Slug)),
		EnquiryURL:   contact.WhatsAppURL(r.cfg.Company.WhatsApp, contact.ProductEnquiry(p.Name)),
	}
}

// categoryName returns the display name of p's category, or a humanized
// slug when the category does not exist.
func (r *Renderer) categoryName(p catalog.Product) string {
	if c, ok := r.qs.CategoryForProduct(p); ok {
		return c.Name
	}
	return util.Humanize(p.Category)
}

type notFoundView struct {
	Featured []catalog.Product
}

func (r *Renderer) notFoundView() notFoundView {
	featured := r.qs.ListFeaturedProducts()
	if len(featured) > 3 {
		featured = featured[:3]
	}
	return notFoundView{Featured: featured}
}

// --- template helpers ---

func (r *Renderer) url(p string) string {
	return WithBasePath(r.cfg.Site.BasePath, p)
}

func (r *Renderer) funcs() template.FuncMap {
	return template.FuncMap{
		"url":   r.url,
		"image": func(p string) string { return r.url(catalog.ResolveImage(p)) },
		"productURL": func(slug string) string {
			return r.url(ProductPath(slug))
		},
		"quoteURL": func(slug string) string {
			return r.url(QuoteProductPath(slug))
		},
		"categoryName": r.categoryName,
		"whatsapp": func(message string) string {
			return contact.WhatsAppURL(r.cfg.Company.WhatsApp, message)
		},
		// html/template only passes http, https and mailto URLs through.
		"tel":      func(phone string) template.URL { return template.URL(contact.TelURL(phone)) },
		"mailto":   func(email string) template.URL { return template.URL(contact.MailtoURL(email)) },
		"truncate": util.Truncate,
		"initials": util.Initials,
		"humanize": util.Humanize,
		"enquiry":  contact.ProductEnquiry,
		"msg": func(name string) string {
			return supportMessages[name]
		},
	}
}

var supportMessages = map[string]string{
	"general": contact.GeneralEnquiry,
	"faq":     contact.FAQQuestion,
	"quote":   contact.QuoteRequest,
	"sales":   contact.SalesEnquiry,
	"support": contact.SupportRequest,
}
