package site

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"gopkg.in/yaml.v3"
)

// Document is a markdown content page with YAML front matter.
type Document struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Kicker      string `yaml:"kicker"`
	Lead        string `yaml:"lead"`

	// Body is the rendered and sanitized markdown.
	Body template.HTML `yaml:"-"`
}

// FAQ is the question list loaded from faq.yaml.
type FAQ struct {
	Title       string    `yaml:"title"`
	Description string    `yaml:"description"`
	Kicker      string    `yaml:"kicker"`
	Lead        string    `yaml:"lead"`
	Items       []FAQItem `yaml:"items"`
}

// FAQItem is one question and answer.
type FAQItem struct {
	Question string `yaml:"q"`
	Answer   string `yaml:"a"`
}

var frontMatterDelim = []byte("---")

// contentStore reads content files from an override directory first and the
// embedded bundle second.
type contentStore struct {
	fsys   fs.FS
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func newContentStore(overrideDir string) *contentStore {
	var fsys fs.FS = embeddedContent()
	if overrideDir != "" {
		fsys = overlayFS{os.DirFS(overrideDir), fsys}
	}

	return &contentStore{
		fsys: fsys,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
				parser.WithAttribute(),
			),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

// Document loads <name>.md.
func (s *contentStore) Document(name string) (*Document, error) {
	data, err := fs.ReadFile(s.fsys, name+".md")
	if err != nil {
		return nil, fmt.Errorf("failed to read content %q: %w", name, err)
	}

	front, body := splitFrontMatter(data)

	var doc Document
	if len(front) > 0 {
		if err := yaml.Unmarshal(front, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse front matter of %q: %w", name, err)
		}
	}
	if doc.Title == "" {
		return nil, fmt.Errorf("content %q has no title", name)
	}

	rendered, err := s.Markdown(body)
	if err != nil {
		return nil, fmt.Errorf("failed to render %q: %w", name, err)
	}
	doc.Body = rendered
	return &doc, nil
}

// FAQ loads faq.yaml.
func (s *contentStore) FAQ() (*FAQ, error) {
	data, err := fs.ReadFile(s.fsys, "faq.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read FAQ: %w", err)
	}
	var faq FAQ
	if err := yaml.Unmarshal(data, &faq); err != nil {
		return nil, fmt.Errorf("failed to parse FAQ YAML: %w", err)
	}
	for i, item := range faq.Items {
		if item.Question == "" || item.Answer == "" {
			return nil, fmt.Errorf("FAQ item %d: question and answer are required", i)
		}
	}
	return &faq, nil
}

// Markdown converts markdown to sanitized HTML.
func (s *contentStore) Markdown(src []byte) (template.HTML, error) {
	var buf bytes.Buffer
	if err := s.md.Convert(src, &buf); err != nil {
		return "", err
	}
	return template.HTML(s.policy.SanitizeBytes(buf.Bytes())), nil
}

// splitFrontMatter separates a leading "---" delimited YAML block from the body.
func splitFrontMatter(data []byte) (front, body []byte) {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	if !bytes.HasPrefix(data, frontMatterDelim) {
		return nil, data
	}
	rest := data[len(frontMatterDelim):]
	nl := bytes.IndexByte(rest, '\n')
	if nl < 0 || len(bytes.TrimSpace(rest[:nl])) != 0 {
		return nil, data
	}
	rest = rest[nl+1:]

	end := bytes.Index(rest, append([]byte("\n"), frontMatterDelim...))
	if end < 0 {
		return nil, data
	}
	front = rest[:end]
	body = rest[end+1+len(frontMatterDelim):]
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = nil
	}
	return front, body
}

// overlayFS serves each file from the first layer that has it.
type overlayFS []fs.FS

func (o overlayFS) Open(name string) (fs.File, error) {
	for _, layer := range o {
		f, err := layer.Open(name)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}
