package site

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFrontMatter(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantFront string
		wantBody  string
	}{
		{"with front matter", "---\ntitle: About\n---\n# Hello\n", "title: About", "# Hello\n"},
		{"no front matter", "# Hello\n", "", "# Hello\n"},
		{"unterminated", "---\ntitle: About\n# Hello\n", "", "---\ntitle: About\n# Hello\n"},
		{"front matter only", "---\ntitle: About\n---", "title: About", ""},
		{"byte order mark", "\ufeff---\ntitle: About\n---\nbody", "title: About", "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			front, body := splitFrontMatter([]byte(tt.in))
			assert.Equal(t, tt.wantFront, string(front))
			assert.Equal(t, tt.wantBody, string(body))
		})
	}
}

func TestContentStore_MarkdownSanitized(t *testing.T) {
	s := newContentStore("")

	out, err := s.Markdown([]byte("## Calibration {#calibration}\n\n<script>alert(1)</script>\n\n| a | b |\n|---|---|\n| 1 | 2 |\n"))
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, `<h2 id="calibration">Calibration</h2>`)
	assert.Contains(t, html, "<table>")
	assert.NotContains(t, html, "<script>")
}

func TestContentStore_EmbeddedDocuments(t *testing.T) {
	s := newContentStore("")
	for _, name := range documentPages {
		doc, err := s.Document(name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, doc.Title, name)
		assert.NotEmpty(t, doc.Body, name)
	}

	faq, err := s.FAQ()
	require.NoError(t, err)
	assert.NotEmpty(t, faq.Items)
}

func TestContentStore_Errors(t *testing.T) {
	s := newContentStore("")
	s.fsys = fstest.MapFS{
		"untitled.md": {Data: []byte("# no front matter\n")},
		"broken.md":   {Data: []byte("---\ntitle: [oops\n---\nbody\n")},
		"faq.yaml":    {Data: []byte("items:\n  - q: Only a question\n")},
	}

	_, err := s.Document("untitled")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no title")

	_, err = s.Document("broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "front matter")

	_, err = s.Document("missing")
	require.Error(t, err)

	_, err = s.FAQ()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "question and answer"))
}

func TestOverlayFS(t *testing.T) {
	fsys := overlayFS{
		fstest.MapFS{"a.md": {Data: []byte("top")}},
		fstest.MapFS{"a.md": {Data: []byte("bottom")}, "b.md": {Data: []byte("only bottom")}},
	}

	f, err := fsys.Open("a.md")
	require.NoError(t, err)
	buf := make([]byte, 16)
	n, _ := f.Read(buf)
	assert.Equal(t, "top", string(buf[:n]))
	f.Close()

	_, err = fsys.Open("b.md")
	assert.NoError(t, err)

	_, err = fsys.Open("c.md")
	assert.Error(t, err)
}
