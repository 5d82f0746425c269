package searcher

import "strings"

// minTokenLen drops noise words like "a", "of", "to".
const minTokenLen = 3

// Tokenize splits text on non-alphanumeric boundaries, lowercases, and
// drops tokens shorter than minTokenLen.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) >= minTokenLen {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// KeywordScore is the lexical overlap between a query and candidate text:
// |intersection| / |query tokens|, capped at 1.0. Candidate text is
// typically snippet plus filename.
func KeywordScore(query, text string) float64 {
	queryTokens := make(map[string]struct{})
	for _, t := range Tokenize(query) {
		queryTokens[t] = struct{}{}
	}
	if len(queryTokens) == 0 {
		return 0
	}

	candidate := make(map[string]struct{})
	for _, t := range Tokenize(text) {
		candidate[t] = struct{}{}
	}

	matched := 0
	for t := range queryTokens {
		if _, ok := candidate[t]; ok {
			matched++
		}
	}

	score := float64(matched) / float64(len(queryTokens))
	if score > 1 {
		score = 1
	}
	return score
}
