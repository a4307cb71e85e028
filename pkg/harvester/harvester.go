package harvester

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/spacebio/rag/internal/models"
	"golang.org/x/time/rate"
)

// Canonical article sections, in presentation order.
var sectionKeys = []string{"abstract", "introduction", "methods", "results", "discussion", "conclusion"}

type HarvesterConfig struct {
	RateLimit       float64 // requests per second
	Timeout         time.Duration
	UserAgent       string
	MinSectionChars int
	OnProgress      func(url string)
}

// Harvester fetches article pages and splits them into per-section
// documents, grouping paragraph text under the nearest heading.
type Harvester struct {
	config  HarvesterConfig
	client  *http.Client
	limiter *rate.Limiter
}

func NewWithConfig(config HarvesterConfig) *Harvester {
	if config.RateLimit == 0 {
		config.RateLimit = 2
	}
	if config.Timeout == 0 {
		config.Timeout = 25 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "Mozilla/5.0 (compatible; SpaceBioHarvester/1.0)"
	}
	if config.MinSectionChars == 0 {
		config.MinSectionChars = 400
	}

	return &Harvester{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

// Harvest fetches each URL in order. Pages that fail to fetch are
// skipped; the error comes back only when nothing was harvested.
func (h *Harvester) Harvest(ctx context.Context, urls []string) ([]models.Document, error) {
	var docs []models.Document
	var lastErr error

	for _, url := range urls {
		if err := h.limiter.Wait(ctx); err != nil {
			return docs, err
		}

		pageDocs, err := h.harvestPage(ctx, url)
		if err != nil {
			lastErr = err
			continue
		}
		docs = append(docs, pageDocs...)

		if h.config.OnProgress != nil {
			h.config.OnProgress(url)
		}
	}

	if len(docs) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return docs, nil
}

func (h *Harvester) harvestPage(ctx context.Context, url string) ([]models.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", h.config.UserAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: status %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", url, err)
	}

	return h.extract(doc, url), nil
}

// extract walks headings and paragraphs in document order and groups
// paragraph text under the nearest canonical heading. Sections shorter
// than MinSectionChars are dropped; when nothing qualifies, the whole
// page body becomes one fulltext document.
func (h *Harvester) extract(doc *goquery.Document, url string) []models.Document {
	doc.Find("script,style,noscript,header,footer,nav,aside").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	sections := make(map[string]*strings.Builder)
	order := []string{}
	current := "fulltext"

	appendText := func(section, text string) {
		b, ok := sections[section]
		if !ok {
			b = &strings.Builder{}
			sections[section] = b
			order = append(order, section)
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}

	doc.Find("h1,h2,h3,p").Each(func(_ int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		text := collapseWhitespace(s.Text())

		switch tag {
		case "h1", "h2", "h3":
			current = mapSection(strings.ToLower(text))
		default:
			if len(text) > 1 {
				appendText(current, text)
			}
		}
	})

	var out []models.Document
	seen := make(map[string]bool)

	// Canonical sections first, then substantial leftovers.
	for _, key := range sectionKeys {
		if b, ok := sections[key]; ok && b.Len() >= h.config.MinSectionChars {
			out = append(out, h.document(url, title, key, b.String()))
			seen[key] = true
		}
	}
	for _, key := range order {
		if !seen[key] && sections[key].Len() >= h.config.MinSectionChars {
			out = append(out, h.document(url, title, key, sections[key].String()))
		}
	}

	if len(out) > 0 {
		return out
	}

	body := collapseWhitespace(doc.Find("body").Text())
	if body == "" {
		return nil
	}
	return []models.Document{h.document(url, title, "fulltext", body)}
}

func (h *Harvester) document(url, title, section, text string) models.Document {
	return models.Document{
		ID:      uuid.New().String(),
		URL:     url,
		Title:   title,
		Section: section,
		Text:    text,
	}
}

// mapSection folds a heading onto a canonical section name when one of
// the known keys appears in it.
func mapSection(heading string) string {
	for _, key := range sectionKeys {
		if strings.Contains(heading, key) {
			return key
		}
	}
	if heading == "" {
		return "section"
	}
	return heading
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
