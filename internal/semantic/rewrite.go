// Package semantic rewrites structurally generic markup ("div-soup") into
// semantically meaningful markup using conservative heuristics, and derives
// structure/accessibility metrics and review patches from the result.
// Content and element order are always preserved; only tag identity and a
// small set of attributes change.
package semantic

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Options control the optional detection passes. Both default to enabled;
// use DefaultOptions and overlay caller-supplied JSON on top of it.
type Options struct {
	TimeDetection   bool `json:"enableTimeDetection"`
	FigureDetection bool `json:"enableFigureDetection"`
}

// DefaultOptions returns the standard configuration with all passes enabled.
func DefaultOptions() Options {
	return Options{TimeDetection: true, FigureDetection: true}
}

// Change records one element reclassification.
type Change struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason"`
}

// Stats summarizes a rewrite run.
type Stats struct {
	TotalNodes int            `json:"totalNodes"`
	Changes    []Change       `json:"changes"`
	Counts     map[string]int `json:"counts"`
}

// Result is the output of a heuristic rewrite.
type Result struct {
	HTML  string `json:"html"`
	Stats Stats  `json:"stats"`
}

var (
	navClassRe     = regexp.MustCompile(`\b(nav|navbar|menu|sidenav|breadcrumbs?)\b`)
	articleClassRe = regexp.MustCompile(`\b(article|post|blog-post)\b`)
	sectionClassRe = regexp.MustCompile(`\b(section|block|panel|card|hero|feature(s)?)\b`)
	buttonClassRe  = regexp.MustCompile(`\b(btn|button|cta)\b`)
	captionClassRe = regexp.MustCompile(`(?i)\b(caption|figcaption)\b`)
)

// Rewrite parses markup as a fragment, applies the reclassification passes,
// and returns the serialized tree with the full change list. It is a pure
// function of its input: identical markup and options always produce the
// same result.
func Rewrite(markup string, opts Options) (*Result, error) {
	root, err := parseFragment(markup)
	if err != nil {
		return nil, err
	}

	rw := &rewriter{opts: opts, counts: map[string]int{}}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		rw.walk(c)
	}
	if opts.FigureDetection {
		for c := root.FirstChild; c != nil; c = c.NextSibling {
			rw.walkFigures(c)
		}
	}

	out, err := renderChildren(root)
	if err != nil {
		return nil, err
	}
	changes := rw.changes
	if changes == nil {
		changes = []Change{}
	}
	return &Result{
		HTML: out,
		Stats: Stats{
			TotalNodes: rw.totalNodes,
			Changes:    changes,
			Counts:     rw.counts,
		},
	}, nil
}

type rewriter struct {
	opts       Options
	totalNodes int
	changes    []Change
	counts     map[string]int
}

// rename retags n, recording a change. Renaming is idempotent: an element
// already at the target tag is left alone and not recorded.
func (rw *rewriter) rename(n *html.Node, to, reason string) bool {
	if n.Data == to {
		return false
	}
	rw.changes = append(rw.changes, Change{From: n.Data, To: to, Reason: reason})
	rw.counts[to]++
	n.Data = to
	n.DataAtom = atom.Lookup([]byte(to))
	return true
}

// walk applies the first pass (role, id/class, anchor demotion, time
// detection) to n and its subtree in pre-order.
func (rw *rewriter) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		rw.classify(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		rw.walk(c)
	}
}

func (rw *rewriter) classify(n *html.Node) {
	rw.totalNodes++

	tag := n.Data
	role := strings.ToLower(attr(n, "role"))
	id := strings.ToLower(attr(n, "id"))
	classes := classList(n)

	// Role-based mappings fire first and are the strongest signal; they
	// suppress the id/class mappings below.
	roleMapped := false
	switch role {
	case "banner":
		if tag == "div" || tag == "section" {
			roleMapped = rw.rename(n, "header", "role=banner")
		}
	case "navigation":
		if tag == "div" || tag == "section" {
			roleMapped = rw.rename(n, "nav", "role=navigation")
		}
	case "main":
		if tag != "main" {
			roleMapped = rw.rename(n, "main", "role=main")
		}
	case "contentinfo":
		if tag == "div" || tag == "section" {
			roleMapped = rw.rename(n, "footer", "role=contentinfo")
		}
	case "complementary":
		if tag == "div" || tag == "section" {
			roleMapped = rw.rename(n, "aside", "role=complementary")
		}
	case "region":
		if tag == "div" {
			roleMapped = rw.rename(n, "section", "role=region")
		}
	case "article":
		if tag != "article" {
			roleMapped = rw.rename(n, "article", "role=article")
		}
	}

	// Id/class mappings are mutually exclusive: first match wins.
	if !roleMapped && (tag == "div" || tag == "section") {
		switch {
		case id == "header" || hasClass(classes, "header", "site-header", "topbar"):
			rw.rename(n, "header", "id/class indicates header")
		case id == "nav" || matchClass(classes, navClassRe):
			rw.rename(n, "nav", "id/class indicates nav")
		case id == "main" || hasClass(classes, "main", "content", "page"):
			rw.rename(n, "main", "id/class indicates main")
		case id == "footer" || hasClass(classes, "footer"):
			rw.rename(n, "footer", "id/class indicates footer")
		case id == "sidebar" || hasClass(classes, "sidebar", "aside"):
			rw.rename(n, "aside", "id/class indicates aside")
		case matchClass(classes, articleClassRe):
			rw.rename(n, "article", "class indicates article")
		case matchClass(classes, sectionClassRe):
			rw.rename(n, "section", "class indicates section")
		}
	}

	// Anchors masquerading as buttons: only demoted when the href carries
	// no real destination.
	if n.Data == "a" {
		buttonish := role == "button" || matchClass(classes, buttonClassRe)
		if buttonish && trivialHref(n) {
			rw.rename(n, "button", "anchor used as button")
			removeAttr(n, "href")
		}
	}

	if rw.opts.TimeDetection && (tag == "div" || tag == "span" || tag == "p") {
		if hasClass(classes, "date", "time") {
			if iso, ok := firstTextAsISO(n); ok {
				rw.rename(n, "time", "class indicates date/time")
				setAttr(n, "datetime", iso)
			}
		}
	}
}

// walkFigures applies the second pass: a div with a figure-like class that
// wraps an img and a caption-like container becomes figure/figcaption.
func (rw *rewriter) walkFigures(n *html.Node) {
	if n.Type == html.ElementNode && n.Data == "div" && n.Parent != nil {
		classes := classList(n)
		if hasClass(classes, "figure", "image", "media") && hasChildTag(n, "img") {
			if caption := findCaption(n); caption != nil {
				rw.changes = append(rw.changes, Change{From: n.Data, To: "figure", Reason: "image with caption container"})
				rw.counts["figure"]++
				n.Data = "figure"
				n.DataAtom = atom.Figure
				caption.Data = "figcaption"
				caption.DataAtom = atom.Figcaption
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		rw.walkFigures(c)
	}
}

func findCaption(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if c.Data != "div" && c.Data != "span" && c.Data != "p" {
			continue
		}
		for _, cls := range classList(c) {
			if captionClassRe.MatchString(cls) {
				return c
			}
		}
	}
	return nil
}

// trivialHref reports whether the anchor's href is absent, empty, "#", or a
// javascript: pseudo-URL.
func trivialHref(n *html.Node) bool {
	for _, a := range n.Attr {
		if a.Key != "href" {
			continue
		}
		val := strings.ToLower(strings.TrimSpace(a.Val))
		return val == "" || val == "#" || strings.HasPrefix(val, "javascript:")
	}
	return true
}

// firstTextAsISO parses the element's first text child as a date using a
// deliberately lenient parser and returns it in ISO-8601 form. Lenient
// parsing mirrors the capture pipeline's observed behavior; ambiguous
// numeric strings may convert.
func firstTextAsISO(n *html.Node) (string, bool) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.TextNode {
			continue
		}
		text := strings.TrimSpace(c.Data)
		if text == "" {
			return "", false
		}
		t, err := dateparse.ParseAny(text)
		if err != nil {
			return "", false
		}
		return t.UTC().Format(time.RFC3339), true
	}
	return "", false
}
