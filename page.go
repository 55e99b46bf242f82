package seocrawl

import "time"

// PageState is the lifecycle state of a PageRecord.
type PageState string

// Page lifecycle states.
const (
	// PageDiscovered marks a stub emitted when a link is queued.
	PageDiscovered PageState = "discovered"

	// PageDone marks a record populated after render and extraction.
	PageDone PageState = "done"
)

// Heading is an h1-h6 element.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Link is an anchor harvested from a page. URL is absolute.
type Link struct {
	URL      string `json:"url"`
	Text     string `json:"text,omitempty"`
	Rel      string `json:"rel,omitempty"`
	Internal bool   `json:"internal"`
}

// Image is an img element harvested from a page.
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// Extraction holds the SEO fields harvested from a rendered document.
type Extraction struct {
	Title           string    `json:"title"`
	MetaDescription string    `json:"metaDescription"`
	MetaKeywords    string    `json:"metaKeywords"`
	Robots          string    `json:"robots"`
	Canonical       string    `json:"canonical"`
	Lang            string    `json:"lang"`
	Headings        []Heading `json:"headings"`
	Links           []Link    `json:"links"`
	Images          []Image   `json:"images"`
	Scripts         []string  `json:"scripts"`
	Stylesheets     []string  `json:"stylesheets"`

	// Text is the visible text of the body, whitespace collapsed.
	Text string `json:"-"`

	// HTMLBytes is the byte length of the serialized document.
	HTMLBytes int `json:"htmlBytes"`
}

// EmptyExtraction returns an extraction with no fields populated. It is
// used in place of a failed extraction so that the page still produces a
// record.
func EmptyExtraction() *Extraction {
	return &Extraction{
		Headings:    []Heading{},
		Links:       []Link{},
		Images:      []Image{},
		Scripts:     []string{},
		Stylesheets: []string{},
	}
}

// PageRecord is the unit of crawl output. A page's identity is its
// NormalizedURL; a PageDone record supersedes the PageDiscovered stub with
// the same key.
type PageRecord struct {
	URL           string    `json:"url"`
	NormalizedURL string    `json:"normalizedUrl"`
	FinalURL      string    `json:"finalUrl,omitempty"`
	Depth         int       `json:"depth"`
	State         PageState `json:"state"`

	// OK reports whether the page load succeeded. Extraction failures do
	// not affect it.
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`

	Extraction

	StatusCode     *int   `json:"statusCode"`
	ContentLength  *int64 `json:"contentLength"`
	IP             string `json:"ip,omitempty"`
	LoadTimeMs     *int64 `json:"loadTimeMs"`
	AnalysisTimeMs *int64 `json:"analysisTimeMs"`
	ContentHash    string `json:"contentHash,omitempty"`

	DiscoveredAt time.Time `json:"discoveredAt"`
}

// NewStubRecord returns a discovered-state record with only the URL
// fields populated.
func NewStubRecord(rawURL, normalizedURL string, depth int) *PageRecord {
	return &PageRecord{
		URL:           rawURL,
		NormalizedURL: normalizedURL,
		Depth:         depth,
		State:         PageDiscovered,
		DiscoveredAt:  time.Now(),
	}
}

// QueueEntry is a URL waiting in the crawl frontier.
type QueueEntry struct {
	URL   string
	Depth int

	// DiscoveredAt is when the URL was first queued.
	DiscoveredAt time.Time
}
