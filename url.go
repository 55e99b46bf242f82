package seocrawl

import (
	"net"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/idna"
)

// NormalizeURL returns the canonical form of raw used as the identity key of
// a page. Bare domains get an https scheme. The scheme and host are
// lowercased, default ports and the fragment are removed, and trailing
// slashes are trimmed from the path. NormalizeURL is idempotent.
//
// Returns EINVALID if raw cannot be parsed or is not an http(s) URL.
func NormalizeURL(raw string) (string, error) {
	u, err := parseLenient(raw)
	if err != nil {
		return "", err
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if host, port, err := net.SplitHostPort(u.Host); err == nil {
		if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
			if strings.Contains(host, ":") {
				host = "[" + host + "]"
			}
			u.Host = host
		}
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.ForceQuery = false
	if u.RawPath == "" {
		u.Path = strings.TrimRight(u.Path, "/")
	} else {
		// Only literal slashes are trimmed; an encoded %2F is path data.
		raw := strings.TrimRight(u.RawPath, "/")
		p, err := url.PathUnescape(raw)
		if err != nil {
			return "", Errorf(EINVALID, "invalid URL path %q: %v", raw, err)
		}
		u.Path, u.RawPath = p, raw
	}

	return u.String(), nil
}

// parseLenient parses raw as an absolute http(s) URL, accepting bare
// domains and protocol-relative references.
func parseLenient(raw string) (*url.URL, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, Errorf(EINVALID, "empty URL")
	}
	switch {
	case strings.HasPrefix(s, "//"):
		s = "https:" + s
	case !strings.Contains(s, "://"):
		if scheme, ok := opaqueScheme(s); ok {
			return nil, Errorf(EINVALID, "unsupported URL scheme %q", scheme)
		}
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return nil, Errorf(EINVALID, "invalid URL %q: %v", raw, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, Errorf(EINVALID, "unsupported URL scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, Errorf(EINVALID, "URL %q has no host", raw)
	}
	return u, nil
}

// opaqueScheme reports the scheme of a reference like "mailto:x@y" or
// "javascript:void(0)". A "host:port" prefix is not a scheme.
func opaqueScheme(s string) (string, bool) {
	i := strings.IndexByte(s, ':')
	if i <= 0 {
		return "", false
	}
	scheme, rest := s[:i], s[i+1:]
	for j, r := range scheme {
		letter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !letter && (j == 0 || !strings.ContainsRune("0123456789+-.", r)) {
			return "", false
		}
	}
	port := rest
	if end := strings.IndexAny(rest, "/?#"); end >= 0 {
		port = rest[:end]
	}
	if port != "" && strings.Trim(port, "0123456789") == "" {
		return "", false
	}
	return scheme, true
}

// HostOf returns the lowercase hostname of rawURL with a leading "www."
// removed. Internationalized names are converted to their ASCII form.
// It returns an empty string if rawURL cannot be parsed.
func HostOf(rawURL string) string {
	u, err := parseLenient(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		host = ascii
	}
	return strings.TrimPrefix(host, "www.")
}

// IsInternal reports whether rawURL is an http(s) URL on baseHost.
func IsInternal(rawURL, baseHost string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return false
	}
	host := HostOf(rawURL)
	return host != "" && host == baseHost
}

// FolderBoundary returns the directory that bounds a folder-restricted
// crawl started at seedPath. A path ending in "/" is its own boundary;
// otherwise the last segment names a page (with or without an extension)
// and the boundary is its parent directory. The result never ends in "/",
// so the site root is the empty string.
//
// A seed without a trailing slash such as "/docs" is read as a page in the
// site root, so its boundary is empty and a folder-restricted crawl from it
// covers the whole host. Pass "/docs/" to confine the crawl to that folder.
func FolderBoundary(seedPath string) string {
	p := seedPath
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if !strings.HasSuffix(p, "/") {
		p = p[:strings.LastIndex(p, "/")+1]
	}
	return strings.TrimRight(p, "/")
}

// IsUnderFolder reports whether the path of rawURL equals boundary or is
// nested below it.
func IsUnderFolder(rawURL, boundary string) bool {
	u, err := parseLenient(rawURL)
	if err != nil {
		return false
	}
	if boundary == "" {
		return true
	}
	p := strings.TrimRight(u.Path, "/")
	return p == boundary || strings.HasPrefix(p, boundary+"/")
}

// nonHTMLExtensions lists path extensions that never lead to an HTML page.
var nonHTMLExtensions = map[string]struct{}{
	// documents
	".pdf": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {}, ".ppt": {}, ".pptx": {},
	".odt": {}, ".ods": {}, ".odp": {}, ".rtf": {}, ".csv": {}, ".epub": {},
	// archives
	".zip": {}, ".rar": {}, ".7z": {}, ".tar": {}, ".gz": {}, ".tgz": {}, ".bz2": {}, ".xz": {},
	// executables and installers
	".exe": {}, ".msi": {}, ".dmg": {}, ".pkg": {}, ".deb": {}, ".rpm": {}, ".apk": {}, ".iso": {}, ".bin": {},
	// audio
	".mp3": {}, ".wav": {}, ".ogg": {}, ".flac": {}, ".aac": {}, ".m4a": {}, ".wma": {},
	// video
	".mp4": {}, ".avi": {}, ".mov": {}, ".mkv": {}, ".webm": {}, ".wmv": {}, ".flv": {}, ".m4v": {}, ".mpeg": {}, ".mpg": {},
}

// IsNonHTMLResource reports whether the path extension of rawURL marks a
// document, archive, executable, or audio/video file.
func IsNonHTMLResource(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	_, ok := nonHTMLExtensions[strings.ToLower(path.Ext(u.Path))]
	return ok
}

// Scope decides which discovered URLs are eligible for traversal.
type Scope struct {
	// BaseHost is the seed's host as returned by HostOf.
	BaseHost string

	// Folder is the seed's folder boundary. Only consulted when
	// RestrictToFolder is set.
	Folder           string
	RestrictToFolder bool
}

// NewScope builds the traversal scope of a crawl seeded at seedURL.
// The folder boundary is taken from the seed as given, before
// normalization trims its trailing slash.
func NewScope(seedURL string, restrictToFolder bool) (*Scope, error) {
	u, err := parseLenient(seedURL)
	if err != nil {
		return nil, err
	}
	s := &Scope{
		BaseHost:         HostOf(seedURL),
		RestrictToFolder: restrictToFolder,
	}
	if restrictToFolder {
		s.Folder = FolderBoundary(u.Path)
	}
	return s, nil
}

// Allows reports whether rawURL is internal and, if folder restriction is
// enabled, inside the folder boundary.
func (s *Scope) Allows(rawURL string) bool {
	if !IsInternal(rawURL, s.BaseHost) {
		return false
	}
	if s.RestrictToFolder && !IsUnderFolder(rawURL, s.Folder) {
		return false
	}
	return true
}
