package crawl

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Extensions that never resolve to an auditable HTML page.
var skipExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".svg": {}, ".webp": {},
	".ico": {}, ".pdf": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {},
	".zip": {}, ".gz": {}, ".tar": {}, ".rar": {},
	".css": {}, ".js": {}, ".mjs": {},
	".json": {}, ".xml": {}, ".csv": {}, ".txt": {},
	".mp3": {}, ".mp4": {}, ".webm": {}, ".avi": {},
	".woff": {}, ".woff2": {}, ".ttf": {}, ".eot": {},
}

// NormalizeURL standardizes a URL so the visited set keys consistently.
// It lowercases the scheme and host, strips default ports and fragments,
// and trims a trailing slash from non-root paths.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	u.Fragment = ""

	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	return u.String(), nil
}

// Admissible decides whether a discovered URL may join the frontier:
// http/https, same hostname as the seed, no query string or fragment
// (near-duplicate explosion guard), and not a non-page extension.
func Admissible(seed *url.URL, candidate string) bool {
	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if !strings.EqualFold(u.Hostname(), seed.Hostname()) {
		return false
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return false
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if _, skip := skipExtensions[ext]; skip {
		return false
	}
	return true
}
