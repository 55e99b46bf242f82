package http

import (
	"html"
	"regexp"
	"strings"

	"github.com/beevik/etree"
	"github.com/fwojciec/seocrawl"
)

// sitemapDoc is a parsed sitemap document. An index carries child sitemap
// locations; a urlset carries page entries.
type sitemapDoc struct {
	index    bool
	sitemaps []string
	urls     []sitemapEntry
}

type sitemapEntry struct {
	loc  string
	meta seocrawl.SitemapURLMeta
}

// parseSitemap parses body as a sitemap index or urlset. Well-formed XML
// goes through etree; anything it rejects is scanned with regular
// expressions, which find nothing in garbage rather than failing.
func parseSitemap(body []byte) sitemapDoc {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err == nil && doc.Root() != nil {
		return parseTree(doc.Root())
	}
	return scanSitemap(body)
}

func parseTree(root *etree.Element) sitemapDoc {
	if root.Tag == "sitemapindex" {
		doc := sitemapDoc{index: true}
		for _, el := range root.SelectElements("sitemap") {
			if loc := childText(el, "loc"); loc != "" {
				doc.sitemaps = append(doc.sitemaps, loc)
			}
		}
		return doc
	}

	var doc sitemapDoc
	if root.Tag != "urlset" {
		return doc
	}
	for _, el := range root.SelectElements("url") {
		loc := childText(el, "loc")
		if loc == "" {
			continue
		}
		doc.urls = append(doc.urls, sitemapEntry{
			loc: loc,
			meta: seocrawl.SitemapURLMeta{
				LastMod:    childText(el, "lastmod"),
				ChangeFreq: childText(el, "changefreq"),
				Priority:   childText(el, "priority"),
			},
		})
	}
	return doc
}

func childText(el *etree.Element, tag string) string {
	child := el.SelectElement(tag)
	if child == nil {
		return ""
	}
	return strings.TrimSpace(child.Text())
}

var (
	indexRootRe    = regexp.MustCompile(`(?i)<(?:[\w-]+:)?sitemapindex[\s>]`)
	sitemapBlockRe = regexp.MustCompile(`(?is)<(?:[\w-]+:)?sitemap[\s>](.*?)</(?:[\w-]+:)?sitemap\s*>`)
	urlBlockRe     = regexp.MustCompile(`(?is)<(?:[\w-]+:)?url[\s>](.*?)</(?:[\w-]+:)?url\s*>`)
	cdataRe        = regexp.MustCompile(`(?s)^<!\[CDATA\[(.*)\]\]>$`)

	fieldRes = map[string]*regexp.Regexp{
		"loc":        fieldRe("loc"),
		"lastmod":    fieldRe("lastmod"),
		"changefreq": fieldRe("changefreq"),
		"priority":   fieldRe("priority"),
	}
)

func fieldRe(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?is)<(?:[\w-]+:)?` + name + `\s*>(.*?)</(?:[\w-]+:)?` + name + `\s*>`)
}

// scanSitemap extracts what it can from a malformed document.
// Unterminated blocks are ignored.
func scanSitemap(body []byte) sitemapDoc {
	if indexRootRe.Match(body) {
		doc := sitemapDoc{index: true}
		for _, m := range sitemapBlockRe.FindAllSubmatch(body, -1) {
			if loc := scanField(m[1], "loc"); loc != "" {
				doc.sitemaps = append(doc.sitemaps, loc)
			}
		}
		return doc
	}

	var doc sitemapDoc
	for _, m := range urlBlockRe.FindAllSubmatch(body, -1) {
		block := m[1]
		loc := scanField(block, "loc")
		if loc == "" {
			continue
		}
		doc.urls = append(doc.urls, sitemapEntry{
			loc: loc,
			meta: seocrawl.SitemapURLMeta{
				LastMod:    scanField(block, "lastmod"),
				ChangeFreq: scanField(block, "changefreq"),
				Priority:   scanField(block, "priority"),
			},
		})
	}
	return doc
}

func scanField(block []byte, name string) string {
	m := fieldRes[name].FindSubmatch(block)
	if m == nil {
		return ""
	}
	v := strings.TrimSpace(string(m[1]))
	if c := cdataRe.FindStringSubmatch(v); c != nil {
		return strings.TrimSpace(c[1])
	}
	return strings.TrimSpace(html.UnescapeString(v))
}
