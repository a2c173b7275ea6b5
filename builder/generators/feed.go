package generators

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/kiln-ssg/kiln/builder/models"
)

// FeedSize is the number of posts in feed.xml.
const FeedSize = 10

type rss struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	Channel channel  `xml:"channel"`
}

type channel struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Items       []item `xml:"item"`
}

type item struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description,omitempty"`
	PubDate     string `xml:"pubDate,omitempty"`
	GUID        string `xml:"guid"`
}

// FeedMeta describes the channel.
type FeedMeta struct {
	Title       string
	Description string
	SiteURL     string
	BaseURL     string
}

// Feed renders an RSS 2.0 document with the newest FeedSize docs. Drafts are left out.
func Feed(meta FeedMeta, docs []*models.Document) ([]byte, error) {
	root := meta.SiteURL + meta.BaseURL
	var items []item
	for _, d := range NewestFirst(docs) {
		if d.Draft {
			continue
		}
		if len(items) == FeedSize {
			break
		}
		it := item{
			Title:       d.Title(),
			Link:        root + d.URL,
			Description: d.Excerpt,
			GUID:        root + d.URL,
		}
		if !d.Date.IsZero() {
			it.PubDate = d.Date.Format(time.RFC1123Z)
		}
		items = append(items, it)
	}

	doc := rss{
		Version: "2.0",
		Channel: channel{
			Title:       meta.Title,
			Link:        root + "/",
			Description: meta.Description,
			Items:       items,
		},
	}
	output, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode feed: %w", err)
	}
	return []byte(xml.Header + string(output) + "\n"), nil
}
