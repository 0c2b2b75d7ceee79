package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gandtscales/scalesite/pkg/catalog"
	"github.com/gandtscales/scalesite/pkg/config"
	"github.com/gandtscales/scalesite/pkg/contact"
	"github.com/gandtscales/scalesite/pkg/site"
	"github.com/gandtscales/scalesite/pkg/util"
)

const (
	maxWidth     = 80
	relatedLimit = 3
	maxSuggested = 3
)

// productReport is the --json shape of inspect.
type productReport struct {
	catalog.Product
	CategoryName string   `json:"category_name"`
	URL          string   `json:"url"`
	ImageURL     string   `json:"image_url"`
	QuoteURL     string   `json:"quote_url"`
	WhatsAppURL  string   `json:"whatsapp_url"`
	Related      []string `json:"related"`
}

func newProductReport(qs *catalog.QueryService, cfg *config.Config, p *catalog.Product) productReport {
	categoryName := util.Humanize(p.Category)
	if c, ok := qs.CategoryForProduct(*p); ok {
		categoryName = c.Name
	}

	related := []string{}
	for _, r := range qs.RelatedProducts(*p, relatedLimit) {
		related = append(related, r.Slug)
	}

	return productReport{
		Product:      *p,
		CategoryName: categoryName,
		URL:          absoluteURL(cfg, site.ProductPath(p.Slug)),
		ImageURL:     absoluteURL(cfg, catalog.ResolveImage(p.Image)),
		QuoteURL:     absoluteURL(cfg, site.QuoteProductPath(p.Slug)),
		WhatsAppURL:  contact.WhatsAppURL(cfg.Company.WhatsApp, contact.ProductEnquiry(p.Name)),
		Related:      related,
	}
}

func absoluteURL(cfg *config.Config, p string) string {
	return strings.TrimRight(cfg.Site.URL, "/") + site.WithBasePath(cfg.Site.BasePath, p)
}

func printProductJSON(w io.Writer, qs *catalog.QueryService, cfg *config.Config, p *catalog.Product) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(newProductReport(qs, cfg, p)); err != nil {
		return fmt.Errorf("failed to encode product: %w", err)
	}
	return nil
}

// printProductHuman prints a human-readable product summary.
func printProductHuman(w io.Writer, qs *catalog.QueryService, cfg *config.Config, p *catalog.Product) {
	r := newProductReport(qs, cfg, p)

	header := p.Name
	if p.Featured {
		header += "  [FEATURED]"
	}
	fmt.Fprintf(w, "%s  [%s]\n", header, r.CategoryName)
	if _, ok := qs.CategoryForProduct(*p); !ok {
		fmt.Fprintf(w, "  Unknown category: %s\n", p.Category)
	}

	if p.Description != "" {
		fmt.Fprintln(w)
		printWrapped(w, p.Description, 0, maxWidth)
	}

	fmt.Fprintln(w)
	if len(p.Applications) == 0 {
		fmt.Fprintln(w, "Applications  (none)")
	} else {
		fmt.Fprintln(w, "Applications")
		for _, a := range p.Applications {
			fmt.Fprintf(w, "  - %s\n", a)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Links")
	printLinks(w, [][2]string{
		{"Page", r.URL},
		{"Image", r.ImageURL},
		{"Quote", r.QuoteURL},
		{"WhatsApp", r.WhatsAppURL},
	})

	fmt.Fprintln(w)
	if len(r.Related) == 0 {
		fmt.Fprintln(w, "Related  (none)")
		return
	}
	fmt.Fprintln(w, "Related")
	for _, slug := range r.Related {
		rp, _ := qs.GetProductBySlug(slug)
		fmt.Fprintf(w, "  %s  %s\n", slug, rp.Name)
	}
}

// printLinks renders label/value pairs with the labels padded to one width.
func printLinks(w io.Writer, links [][2]string) {
	labelW := 0
	for _, l := range links {
		if len(l[0]) > labelW {
			labelW = len(l[0])
		}
	}
	for _, l := range links {
		fmt.Fprintf(w, "  %-*s  %s\n", labelW, l[0], l[1])
	}
}

// printWrapped prints text word-wrapped at width with the given left indent.
func printWrapped(w io.Writer, text string, indent, width int) {
	words := strings.Fields(text)
	prefix := strings.Repeat(" ", indent)
	line := prefix
	for _, word := range words {
		if len(line)+len(word)+1 > width && line != prefix {
			fmt.Fprintln(w, line)
			line = prefix + word
		} else {
			if line == prefix {
				line += word
			} else {
				line += " " + word
			}
		}
	}
	if line != prefix {
		fmt.Fprintln(w, line)
	}
}

// suggest returns a "did you mean" hint for a mistyped slug, or "".
// The input is slugified first, so "Gold Scale" suggests gold-scale.
func suggest(qs *catalog.QueryService, slug string) string {
	needle := util.Slugify(slug)
	if needle == "" {
		return ""
	}

	var matches []string
	if p, ok := qs.GetProductBySlug(needle); ok {
		matches = append(matches, p.Slug)
	}
	for _, p := range qs.ListProducts() {
		if len(matches) == maxSuggested {
			break
		}
		if p.Slug == needle {
			continue
		}
		if strings.Contains(p.Slug, needle) || strings.Contains(needle, p.Slug) ||
			strings.Contains(util.Slugify(p.Name), needle) {
			matches = append(matches, p.Slug)
		}
	}
	if len(matches) == 0 {
		return ""
	}
	return " (did you mean " + strings.Join(matches, ", ") + "?)"
}
