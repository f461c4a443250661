package textutil

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

// MostSimilar returns the index of the candidate most similar to name by
// Jaro-Winkler distance of the normalized strings, and that similarity.
// It returns -1 when there are no candidates.
func MostSimilar(name string, candidates []string) (int, float64) {
	name = NormalizeName(name)
	best := -1
	var similarity float64
	for i, c := range candidates {
		sim := matchr.JaroWinkler(name, NormalizeName(c), false)
		if best < 0 || sim > similarity {
			best = i
			similarity = sim
		}
	}
	return best, similarity
}
