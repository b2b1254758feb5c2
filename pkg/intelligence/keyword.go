package intelligence

import "strings"

// KeywordMatchScore scores how well a query matches a memory's keywords and
// serialized content, normalized to 0-100.
//
// The query is lowercased and split on whitespace. Each term earns 2 points
// if it is a substring of, or contains, any keyword, and 1 point if it occurs
// in the lowercased content. The total is divided by 3 points per term.
func KeywordMatchScore(query string, keywords []string, content []byte) float64 {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return 0
	}

	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowered = append(lowered, k)
		}
	}
	text := strings.ToLower(string(content))

	points := 0
	for _, term := range terms {
		for _, k := range lowered {
			if strings.Contains(k, term) || strings.Contains(term, k) {
				points += 2
				break
			}
		}
		if strings.Contains(text, term) {
			points++
		}
	}

	return float64(points) / float64(3*len(terms)) * 100
}
