package semantic

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func parseDoc(t *testing.T, markup string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		t.Fatalf("parse rewritten markup: %v", err)
	}
	return doc
}

func rewrite(t *testing.T, markup string, opts Options) *Result {
	t.Helper()
	res, err := Rewrite(markup, opts)
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	return res
}

func TestRewriteHeaderAndNav(t *testing.T) {
	in := `<div class="site-header"><div class="menu"><a href="/about">About</a></div></div>`
	res := rewrite(t, in, DefaultOptions())

	doc := parseDoc(t, res.HTML)
	if doc.Find("header").Length() != 1 {
		t.Errorf("want one header, got %d in %q", doc.Find("header").Length(), res.HTML)
	}
	if doc.Find("header > nav").Length() != 1 {
		t.Errorf("want nav nested in header, got %q", res.HTML)
	}
	// The anchor has a real destination and must survive untouched.
	href, _ := doc.Find("a").Attr("href")
	if href != "/about" {
		t.Errorf("anchor href = %q, want /about", href)
	}
	if len(res.Stats.Changes) != 2 {
		t.Errorf("want 2 changes, got %+v", res.Stats.Changes)
	}
}

func TestRewriteAnchorAsButton(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		wantButton bool
	}{
		{"btn class trivial href", `<a class="btn primary" href="#">Go</a>`, true},
		{"role button no href", `<a role="button">Go</a>`, true},
		{"javascript href", `<a class="cta" href="javascript:void(0)">Go</a>`, true},
		{"btn class real href", `<a class="btn" href="/signup">Go</a>`, false},
		{"plain anchor", `<a href="#">Go</a>`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := rewrite(t, tt.in, DefaultOptions())
			doc := parseDoc(t, res.HTML)
			if got := doc.Find("button").Length() == 1; got != tt.wantButton {
				t.Errorf("button conversion = %v, want %v (%q)", got, tt.wantButton, res.HTML)
			}
			if tt.wantButton {
				if _, ok := doc.Find("button").Attr("href"); ok {
					t.Errorf("converted button kept href: %q", res.HTML)
				}
				if doc.Find("button").Text() != "Go" {
					t.Errorf("button text lost: %q", res.HTML)
				}
			}
		})
	}
}

func TestRewriteFigureCaption(t *testing.T) {
	in := `<div class="figure"><img src="cat.jpg" alt="A cat"><div class="caption">A very good cat</div></div>`
	res := rewrite(t, in, DefaultOptions())

	doc := parseDoc(t, res.HTML)
	if doc.Find("figure").Length() != 1 {
		t.Fatalf("want figure, got %q", res.HTML)
	}
	if doc.Find("figure > figcaption").Length() != 1 {
		t.Errorf("want figcaption inside figure, got %q", res.HTML)
	}
	if got := doc.Find("figcaption").Text(); got != "A very good cat" {
		t.Errorf("figcaption text = %q", got)
	}
	if src, _ := doc.Find("figure > img").Attr("src"); src != "cat.jpg" {
		t.Errorf("img lost or moved: %q", res.HTML)
	}
}

func TestRewriteFigureRequiresBothParts(t *testing.T) {
	// Image without a caption container, and caption without an image; neither
	// qualifies.
	for _, in := range []string{
		`<div class="figure"><img src="cat.jpg"></div>`,
		`<div class="figure"><div class="caption">orphan</div></div>`,
	} {
		res := rewrite(t, in, DefaultOptions())
		if strings.Contains(res.HTML, "<figure") {
			t.Errorf("unexpected figure conversion for %q: %q", in, res.HTML)
		}
	}
}

func TestRewriteTimeDetection(t *testing.T) {
	in := `<span class="date">2024-03-05</span>`
	res := rewrite(t, in, DefaultOptions())

	doc := parseDoc(t, res.HTML)
	sel := doc.Find("time")
	if sel.Length() != 1 {
		t.Fatalf("want time element, got %q", res.HTML)
	}
	dt, _ := sel.Attr("datetime")
	if dt != "2024-03-05T00:00:00Z" {
		t.Errorf("datetime = %q", dt)
	}
	if sel.Text() != "2024-03-05" {
		t.Errorf("visible text changed: %q", sel.Text())
	}
}

func TestRewriteTimeDetectionSkipsNonDates(t *testing.T) {
	in := `<span class="date">see you later</span>`
	res := rewrite(t, in, DefaultOptions())
	if strings.Contains(res.HTML, "<time") {
		t.Errorf("non-date text converted: %q", res.HTML)
	}
}

func TestRewriteOptionToggles(t *testing.T) {
	in := `<span class="date">2024-03-05</span>` +
		`<div class="figure"><img src="x.png"><p class="caption">c</p></div>`

	res := rewrite(t, in, Options{TimeDetection: false, FigureDetection: false})
	if strings.Contains(res.HTML, "<time") {
		t.Errorf("time pass ran while disabled: %q", res.HTML)
	}
	if strings.Contains(res.HTML, "<figure") {
		t.Errorf("figure pass ran while disabled: %q", res.HTML)
	}
}

func TestRewriteRoleMappings(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`<div role="banner">x</div>`, "header"},
		{`<div role="navigation">x</div>`, "nav"},
		{`<div role="main">x</div>`, "main"},
		{`<div role="contentinfo">x</div>`, "footer"},
		{`<div role="complementary">x</div>`, "aside"},
		{`<div role="region">x</div>`, "section"},
		{`<div role="article">x</div>`, "article"},
	}
	for _, tt := range tests {
		res := rewrite(t, tt.in, DefaultOptions())
		doc := parseDoc(t, res.HTML)
		if doc.Find(tt.want).Length() != 1 {
			t.Errorf("Rewrite(%q): want <%s>, got %q", tt.in, tt.want, res.HTML)
		}
	}
}

func TestRewriteRoleSuppressesClassMapping(t *testing.T) {
	// role=banner wins; the nav-looking class must not produce a second rename.
	in := `<div role="banner" class="menu">x</div>`
	res := rewrite(t, in, DefaultOptions())

	doc := parseDoc(t, res.HTML)
	if doc.Find("header").Length() != 1 {
		t.Fatalf("want header, got %q", res.HTML)
	}
	if len(res.Stats.Changes) != 1 {
		t.Errorf("want a single change, got %+v", res.Stats.Changes)
	}
}

func TestRewriteClassMappingFirstMatchWins(t *testing.T) {
	// "header" is checked before the nav patterns.
	in := `<div class="header menu">x</div>`
	res := rewrite(t, in, DefaultOptions())
	doc := parseDoc(t, res.HTML)
	if doc.Find("header").Length() != 1 {
		t.Errorf("want header, got %q", res.HTML)
	}
}

func TestRewriteLeavesUnrecognizedMarkup(t *testing.T) {
	in := `<div class="wrapper"><p>Hello</p><span class="badge">new</span></div>`
	res := rewrite(t, in, DefaultOptions())
	if res.HTML != in {
		t.Errorf("unrecognized markup changed:\n in: %q\nout: %q", in, res.HTML)
	}
	if len(res.Stats.Changes) != 0 {
		t.Errorf("unexpected changes: %+v", res.Stats.Changes)
	}
}

func TestRewriteIdempotent(t *testing.T) {
	in := `<div class="site-header"><div class="menu"><a class="btn" href="#">Go</a></div></div>` +
		`<div class="figure"><img src="x.png"><div class="caption">c</div></div>` +
		`<span class="date">2024-03-05</span>`

	first := rewrite(t, in, DefaultOptions())
	second := rewrite(t, first.HTML, DefaultOptions())

	if second.HTML != first.HTML {
		t.Errorf("second run changed markup:\nfirst:  %q\nsecond: %q", first.HTML, second.HTML)
	}
	if len(second.Stats.Changes) != 0 {
		t.Errorf("second run recorded changes: %+v", second.Stats.Changes)
	}
}

func TestRewritePreservesContentAndOrder(t *testing.T) {
	in := `<div class="site-header">Site</div><div class="content"><p>First</p><p>Second</p></div><div class="footer">Fin</div>`
	res := rewrite(t, in, DefaultOptions())

	before := parseDoc(t, in).Text()
	after := parseDoc(t, res.HTML).Text()
	if before != after {
		t.Errorf("text content changed:\nbefore: %q\nafter:  %q", before, after)
	}
	// Order check via first/last landmark.
	if !strings.HasPrefix(res.HTML, "<header") || !strings.HasSuffix(res.HTML, "</footer>") {
		t.Errorf("element order disturbed: %q", res.HTML)
	}
}

func TestRewriteStats(t *testing.T) {
	in := `<div class="site-header">x</div><div class="menu">y</div>`
	res := rewrite(t, in, DefaultOptions())

	if res.Stats.TotalNodes != 2 {
		t.Errorf("TotalNodes = %d, want 2", res.Stats.TotalNodes)
	}
	if res.Stats.Counts["header"] != 1 || res.Stats.Counts["nav"] != 1 {
		t.Errorf("Counts = %v", res.Stats.Counts)
	}
}

func TestRewriteEmptyInput(t *testing.T) {
	res := rewrite(t, "", DefaultOptions())
	if res.HTML != "" {
		t.Errorf("HTML = %q, want empty", res.HTML)
	}
	if res.Stats.Changes == nil {
		t.Error("Changes must be non-nil for JSON encoding")
	}
}
