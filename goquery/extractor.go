// Package goquery implements seocrawl.Extractor by parsing the rendered
// document with goquery.
package goquery

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/seocrawl"
)

// Ensure Extractor implements seocrawl.Extractor at compile time.
var _ seocrawl.Extractor = (*Extractor)(nil)

// documentScript serializes the rendered DOM.
const documentScript = `document.documentElement ? document.documentElement.outerHTML : ""`

// Extractor harvests SEO fields from the document loaded in a renderer.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract serializes the renderer's document and parses it.
func (e *Extractor) Extract(ctx context.Context, r seocrawl.Renderer, opts seocrawl.ExtractOptions) (*seocrawl.Extraction, error) {
	html, err := r.RunScript(ctx, documentScript)
	if err != nil {
		return nil, fmt.Errorf("serializing document: %w", err)
	}
	pageURL, err := r.CurrentURL(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading document URL: %w", err)
	}
	return ExtractHTML(html, pageURL, opts)
}

// ExtractHTML parses html served at pageURL. Relative references resolve
// against the document's <base href> if present.
func ExtractHTML(html, pageURL string, opts seocrawl.ExtractOptions) (*seocrawl.Extraction, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, seocrawl.Errorf(seocrawl.EINVALID, "invalid page URL: %v", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, seocrawl.Errorf(seocrawl.EINVALID, "failed to parse HTML: %v", err)
	}

	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			base = base.ResolveReference(ref)
		}
	}

	ext := seocrawl.EmptyExtraction()
	ext.HTMLBytes = len(html)
	ext.Title = collapse(doc.Find("head > title").First().Text())
	ext.Lang = strings.TrimSpace(doc.Find("html").First().AttrOr("lang", ""))

	doc.Find("meta[name]").Each(func(_ int, sel *goquery.Selection) {
		content := strings.TrimSpace(sel.AttrOr("content", ""))
		switch strings.ToLower(strings.TrimSpace(sel.AttrOr("name", ""))) {
		case "description":
			setOnce(&ext.MetaDescription, content)
		case "keywords":
			setOnce(&ext.MetaKeywords, content)
		case "robots":
			setOnce(&ext.Robots, content)
		}
	})

	doc.Find("link[rel][href]").Each(func(_ int, sel *goquery.Selection) {
		rels := strings.Fields(strings.ToLower(sel.AttrOr("rel", "")))
		href := resolveURL(base, sel.AttrOr("href", ""))
		if href == "" {
			return
		}
		for _, rel := range rels {
			switch rel {
			case "canonical":
				setOnce(&ext.Canonical, href)
			case "stylesheet":
				ext.Stylesheets = append(ext.Stylesheets, href)
			}
		}
	})

	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, sel *goquery.Selection) {
		name := goquery.NodeName(sel)
		ext.Headings = append(ext.Headings, seocrawl.Heading{
			Level: int(name[1] - '0'),
			Text:  collapse(sel.Text()),
		})
	})

	baseHost := seocrawl.HostOf(pageURL)
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := sel.AttrOr("href", "")
		if isNonHTTPLink(href) {
			return
		}
		resolved := resolveURL(base, href)
		if resolved == "" {
			return
		}
		if opts.DeduplicateLinks {
			if seen[resolved] {
				return
			}
			seen[resolved] = true
		}
		ext.Links = append(ext.Links, seocrawl.Link{
			URL:      resolved,
			Text:     collapse(sel.Text()),
			Rel:      strings.TrimSpace(sel.AttrOr("rel", "")),
			Internal: seocrawl.IsInternal(resolved, baseHost),
		})
	})

	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src := sel.AttrOr("src", "")
		if strings.TrimSpace(src) == "" {
			src = sel.AttrOr("data-src", "")
		}
		ext.Images = append(ext.Images, seocrawl.Image{
			Src: resolveURL(base, src),
			Alt: strings.TrimSpace(sel.AttrOr("alt", "")),
		})
	})

	doc.Find("script[src]").Each(func(_ int, sel *goquery.Selection) {
		if src := resolveURL(base, sel.AttrOr("src", "")); src != "" {
			ext.Scripts = append(ext.Scripts, src)
		}
	})

	body := doc.Find("body").First().Clone()
	body.Find("script, style, noscript, template").Remove()
	ext.Text = collapse(body.Text())

	return ext, nil
}

// resolveURL resolves href against base with the fragment stripped.
// Returns an empty string if href is empty or cannot be parsed.
func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	resolved.Fragment = ""
	resolved.RawFragment = ""
	return resolved.String()
}

// isNonHTTPLink checks if a href is a non-HTTP link that should be skipped.
func isNonHTTPLink(href string) bool {
	href = strings.ToLower(strings.TrimSpace(href))
	return strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func setOnce(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}
