package dashboard

import (
	"fmt"
	"rpicovid/internal/history"
	"rpicovid/lib/htmlutil"
	"rpicovid/lib/textutil"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// Selectors locate the statistics on the dashboard page.
type Selectors struct {
	// Stats matches the element holding each statistic's number.
	Stats string
	// Container is the closest ancestor of a statistic holding its caption.
	Container string
	// Caption matches the free-text date caption of the statistics block.
	Caption string
	// Labels are the known captions of the five statistics in dashboard
	// order, used to map statistics to counters when the page reorders them.
	Labels [history.FieldCount]string
}

var defaultSelectors = Selectors{
	Stats:     "div.field--name-field-stats div.field--name-field-stat",
	Container: ".paragraph",
	Caption:   "div.field--name-field-stats-caption",
	Labels: [history.FieldCount]string{
		"Positive Tests (last 24 hours)",
		"Positive Test Results (last 7 days)",
		"Positive Test Results (since August 17th)",
		"Total Tests (last 7 days)",
		"Total Tests (since August 17th)",
	},
}

func (s Selectors) withDefaults() Selectors {
	if s.Stats == "" {
		s.Stats = defaultSelectors.Stats
	}
	if s.Container == "" {
		s.Container = defaultSelectors.Container
	}
	if s.Caption == "" {
		s.Caption = defaultSelectors.Caption
	}
	for i, l := range s.Labels {
		if l == "" {
			s.Labels[i] = defaultSelectors.Labels[i]
		}
	}
	return s
}

// captions closer than this to a known label are trusted
const minLabelSimilarity = 0.9

type page struct {
	counts   history.Counts
	label    string
	captions []string
	labelled bool
}

func parsePage(doc *goquery.Document, selectors Selectors) (page, error) {
	stats := doc.Find(selectors.Stats)
	if stats.Length() < history.FieldCount {
		return page{}, fmt.Errorf(
			"%w: expected %d statistics, found %d",
			ErrMalformedPage, history.FieldCount, stats.Length(),
		)
	}

	var values []int
	var captions []string
	var parseErr error
	stats.EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := htmlutil.SelectionText(s)
		value, err := ParseCount(text)
		if err != nil {
			parseErr = fmt.Errorf("%w: statistic %d: %w", ErrMalformedPage, i, err)
			return false
		}
		values = append(values, value)
		captions = append(captions, statCaption(s, text, selectors.Container))
		return true
	})
	if parseErr != nil {
		return page{}, parseErr
	}

	out := page{
		label:    htmlutil.SelectionText(doc.Find(selectors.Caption).First()),
		captions: captions,
	}

	order, ok := matchCaptions(captions, selectors.Labels)
	if ok {
		out.labelled = true
		for i, field := range order {
			out.counts[field] = values[i]
		}
		return out, nil
	}
	for i := range out.counts {
		out.counts[i] = values[i]
	}
	return out, nil
}

// statCaption returns the text of the statistic's container without the
// number itself.
func statCaption(stat *goquery.Selection, valueText, container string) string {
	parent := stat.Closest(container)
	if parent.Length() == 0 {
		return ""
	}
	caption := htmlutil.SelectionText(parent)
	caption = strings.Replace(caption, valueText, "", 1)
	return htmlutil.CleanText(caption)
}

// matchCaptions maps each statistic to a counter by caption. It only
// succeeds when exactly FieldCount statistics match distinct labels closely.
func matchCaptions(captions []string, labels [history.FieldCount]string) ([]history.Field, bool) {
	if len(captions) != history.FieldCount {
		return nil, false
	}
	seen := map[int]bool{}
	order := make([]history.Field, len(captions))
	for i, caption := range captions {
		if caption == "" {
			return nil, false
		}
		idx, similarity := textutil.MostSimilar(caption, labels[:])
		if idx < 0 || similarity < minLabelSimilarity || seen[idx] {
			return nil, false
		}
		seen[idx] = true
		order[i] = history.Field(idx)
	}
	return order, true
}

// ParseCount parses a dashboard number such as "1,234" or "1 234".
func ParseCount(text string) (int, error) {
	var digits strings.Builder
	for _, r := range text {
		if r == ',' || unicode.IsSpace(r) {
			continue
		}
		digits.WriteRune(r)
	}
	value, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0, fmt.Errorf("parse count %q: %w", text, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("parse count %q: negative", text)
	}
	return value, nil
}
