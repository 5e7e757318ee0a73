package semantic

import (
	"math"
	"strconv"

	"golang.org/x/net/html"
)

// Heading is one h1-h6 element with its collapsed descendant text.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Landmarks counts the nine structural tags used as the accessibility
// signal set.
type Landmarks struct {
	Header  int `json:"header"`
	Nav     int `json:"nav"`
	Main    int `json:"main"`
	Aside   int `json:"aside"`
	Footer  int `json:"footer"`
	Section int `json:"section"`
	Article int `json:"article"`
	Figure  int `json:"figure"`
	Time    int `json:"time"`
}

// Totals aggregates the per-document counters.
type Totals struct {
	Elements  int `json:"elements"`
	TextNodes int `json:"textNodes"`
	Headings  int `json:"headings"`
	Landmarks int `json:"landmarks"`
}

// Coverage tracks the generic-vs-semantic element split.
type Coverage struct {
	Semantic        int     `json:"semantic"`
	Generic         int     `json:"generic"`
	PercentSemantic float64 `json:"percentSemantic"`
}

// Metrics is the fully structured result of ComputeMetrics. Heading text is
// the only free text it carries, so downstream consumers can aggregate it.
type Metrics struct {
	Totals    Totals    `json:"totals"`
	Coverage  Coverage  `json:"coverage"`
	Headings  []Heading `json:"headings"`
	Landmarks Landmarks `json:"landmarks"`
}

// genericTags are the structurally meaningless containers; semanticTags is
// the landmark set plus headings and figcaption.
var (
	genericTags = map[string]bool{"div": true, "span": true}

	semanticTags = map[string]bool{
		"header": true, "nav": true, "main": true, "section": true,
		"article": true, "aside": true, "footer": true, "figure": true,
		"figcaption": true, "time": true,
		"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	}
)

// ComputeMetrics derives structure and accessibility statistics from
// markup. It is pure and deterministic: identical input always yields an
// identical result.
func ComputeMetrics(markup string) (*Metrics, error) {
	root, err := parseFragment(markup)
	if err != nil {
		return nil, err
	}

	m := &Metrics{Headings: []Heading{}}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			m.Totals.Elements++
			tag := n.Data
			if genericTags[tag] {
				m.Coverage.Generic++
			}
			if semanticTags[tag] {
				m.Coverage.Semantic++
			}
			countLandmark(&m.Landmarks, tag)
			if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
				level, _ := strconv.Atoi(tag[1:])
				m.Headings = append(m.Headings, Heading{Level: level, Text: collectText(n)})
				m.Totals.Headings++
			}
		case html.TextNode:
			m.Totals.TextNodes++
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}

	lm := m.Landmarks
	m.Totals.Landmarks = lm.Header + lm.Nav + lm.Main + lm.Aside + lm.Footer +
		lm.Section + lm.Article + lm.Figure + lm.Time

	// One-decimal percentage; the denominator is floored at 1 so a document
	// with no generic or semantic elements reports 0.0 instead of dividing
	// by zero.
	denom := m.Coverage.Semantic + m.Coverage.Generic
	if denom == 0 {
		denom = 1
	}
	m.Coverage.PercentSemantic = math.Round(float64(m.Coverage.Semantic)/float64(denom)*1000) / 10

	return m, nil
}

func countLandmark(lm *Landmarks, tag string) {
	switch tag {
	case "header":
		lm.Header++
	case "nav":
		lm.Nav++
	case "main":
		lm.Main++
	case "aside":
		lm.Aside++
	case "footer":
		lm.Footer++
	case "section":
		lm.Section++
	case "article":
		lm.Article++
	case "figure":
		lm.Figure++
	case "time":
		lm.Time++
	}
}
