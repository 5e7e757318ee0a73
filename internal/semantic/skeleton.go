package semantic

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// The skeleton/content split: skeleton markup is the noise-stripped basis
// for fingerprinting, content markup keeps class/id/role so the rewrite
// heuristics have signals to work with. Capture snippets normally send both;
// these derivations cover payloads that arrive with markup only.

// Skeleton strips scripts, stylesheets, and presentation attributes
// (class, style, data-*, aria-*) so that re-scrapes with cosmetic churn
// fingerprint identically.
func Skeleton(markup string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("semantic: parse for skeleton: %w", err)
	}

	doc.Find(`script, style, link[rel="stylesheet"]`).Remove()

	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		for _, n := range s.Nodes {
			kept := n.Attr[:0]
			for _, a := range n.Attr {
				switch {
				case a.Key == "class" || a.Key == "style":
				case strings.HasPrefix(a.Key, "data-") || strings.HasPrefix(a.Key, "aria-"):
				default:
					kept = append(kept, a)
				}
			}
			n.Attr = kept
		}
	})

	out, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("semantic: render skeleton: %w", err)
	}
	return out, nil
}

// ContentHTML strips scripts and stylesheets but keeps class/id/role and
// aria attributes; only inline style is dropped.
func ContentHTML(markup string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("semantic: parse for content: %w", err)
	}

	doc.Find(`script, style, link[rel="stylesheet"]`).Remove()
	doc.Find("*").RemoveAttr("style")

	out, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("semantic: render content: %w", err)
	}
	return out, nil
}

var (
	commentRe    = regexp.MustCompile(`<!--[\s\S]*?-->`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	interTagRe   = regexp.MustCompile(`>\s+<`)
)

// Minify collapses comments and whitespace. Applied before fingerprinting
// so collapsible noise never perturbs the hash.
func Minify(markup string) string {
	markup = commentRe.ReplaceAllString(markup, "")
	markup = whitespaceRe.ReplaceAllString(markup, " ")
	markup = interTagRe.ReplaceAllString(markup, "><")
	return strings.TrimSpace(markup)
}
