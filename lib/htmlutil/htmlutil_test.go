package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	require.Equal(t, "1 234", CleanText("\n\t1 234  "))
	require.Equal(t, "a b", CleanText("a​   b"))
}

func TestSelectionText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<div class="stat"><span>1,234</span><p>Positive
		Tests</p></div>`,
	))
	require.NoError(t, err)
	require.Equal(t, "1,234 Positive Tests", SelectionText(doc.Find("div.stat")))
	require.Equal(t, "", SelectionText(doc.Find("div.missing")))
}
