package generators

import (
	"encoding/xml"
	"fmt"
	"time"
)

// SitemapEntry is one <url> of sitemap.xml.
type SitemapEntry struct {
	URL     string
	LastMod time.Time
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// Sitemap renders entries in the order given. siteURL and baseURL prefix every URL.
func Sitemap(siteURL, baseURL string, entries []SitemapEntry) ([]byte, error) {
	set := urlSet{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, e := range entries {
		u := sitemapURL{Loc: siteURL + baseURL + e.URL}
		if !e.LastMod.IsZero() {
			u.LastMod = e.LastMod.Format("2006-01-02")
		}
		set.URLs = append(set.URLs, u)
	}
	output, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode sitemap: %w", err)
	}
	return []byte(xml.Header + string(output) + "\n"), nil
}
