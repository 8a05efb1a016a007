package processing

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/russross/blackfriday/v2"
	"github.com/spacesedan/narratives/internal/logging"
	"github.com/spacesedan/narratives/internal/models"
)

var (
	markdownLinkPattern = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	urlPattern          = regexp.MustCompile(`https?://\S+|www\.\S+`)
	// NewsAPI truncates content with a "[+1234 chars]" marker.
	truncationPattern = regexp.MustCompile(`\s*\[\+\d+ chars\]`)
)

// Normalizer cleans collected items before they reach the engine: markup is
// stripped, links removed, whitespace collapsed, and duplicates dropped.
type Normalizer struct {
	logger *slog.Logger
}

func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Normalizer{logger: logger}
}

// Normalize returns the cleaned, deduplicated items in their original order.
// Items that end up with neither title nor text are dropped. Duplicates are
// detected by URL and by the content of title and text.
func (n *Normalizer) Normalize(items []models.Item) []models.Item {
	seenURLs := make(map[string]struct{})
	seenContent := make(map[string]struct{})
	out := make([]models.Item, 0, len(items))
	dropped := 0

	for _, item := range items {
		item.Title = CleanText(item.Title)
		item.Text = CleanText(item.Text)
		item.URL = strings.TrimSpace(item.URL)

		if item.Title == "" && item.Text == "" {
			dropped++
			continue
		}

		if item.URL != "" {
			if _, dup := seenURLs[item.URL]; dup {
				dropped++
				continue
			}
		}

		key := contentKey(item)
		if _, dup := seenContent[key]; dup {
			dropped++
			continue
		}

		if item.URL != "" {
			seenURLs[item.URL] = struct{}{}
		}
		seenContent[key] = struct{}{}
		out = append(out, item)
	}

	n.logger.Info("[Normalizer] Processed items",
		slog.Int("in", len(items)),
		slog.Int("out", len(out)),
		slog.Int("dropped", dropped))
	return out
}

func contentKey(item models.Item) string {
	sum := sha256.Sum256([]byte(strings.ToLower(item.Title + "\n" + item.Text)))
	return hex.EncodeToString(sum[:])
}

// CleanText turns markdown or HTML into plain text without links.
func CleanText(input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}

	input = markdownLinkPattern.ReplaceAllString(input, "$1")
	input = truncationPattern.ReplaceAllString(input, "")

	// No smartypants: curly apostrophes hide negations like "don't" from VADER.
	renderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{})
	html := blackfriday.Run([]byte(input), blackfriday.WithNoExtensions(), blackfriday.WithRenderer(renderer))
	text := string(html)
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(text)); err == nil {
		doc.Find("script, style").Remove()
		doc.Find("p, div, li, br, tr, blockquote, h1, h2, h3, h4, h5, h6").AfterHtml(" ")
		text = doc.Text()
	}

	text = urlPattern.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}
