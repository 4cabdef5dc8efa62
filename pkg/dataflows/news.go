package dataflows

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const googleNewsRSSURL = "https://news.google.com/rss/search"

const maxNewsItems = 15

// NewsClient searches Google News for recent company headlines.
type NewsClient struct {
	client *resty.Client
}

func NewNewsClient() *NewsClient {
	return &NewsClient{
		client: resty.New().SetTimeout(20 * time.Second),
	}
}

type rssFeed struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []struct {
			Title       string `xml:"title"`
			Link        string `xml:"link"`
			PubDate     string `xml:"pubDate"`
			Source      string `xml:"source"`
			Description string `xml:"description"`
		} `xml:"item"`
	} `xml:"channel"`
}

func (n *NewsClient) Search(ctx context.Context, query string) ([]NewsItem, error) {
	resp, err := n.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":    query,
			"hl":   "ja",
			"gl":   "JP",
			"ceid": "JP:ja",
		}).
		Get(googleNewsRSSURL)
	if err != nil {
		return nil, fmt.Errorf("google news: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("google news: status %s", resp.Status())
	}

	var feed rssFeed
	if err := xml.Unmarshal(resp.Body(), &feed); err != nil {
		return nil, fmt.Errorf("google news: parse rss: %w", err)
	}

	items := make([]NewsItem, 0, len(feed.Channel.Items))
	for _, raw := range feed.Channel.Items {
		if len(items) >= maxNewsItems {
			break
		}
		item := NewsItem{
			Title:  stripHTML(raw.Title),
			URL:    raw.Link,
			Source: raw.Source,
		}
		if ts, err := time.Parse(time.RFC1123, raw.PubDate); err == nil {
			item.PublishedAt = ts
		}
		items = append(items, item)
	}
	return items, nil
}

// RSS titles and descriptions occasionally embed markup.
func stripHTML(s string) string {
	if !strings.ContainsRune(s, '<') {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(doc.Text())
}
