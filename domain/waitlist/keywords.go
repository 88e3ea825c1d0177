package waitlist

import (
	"regexp"
	"strings"

	"github.com/akeren/waitlist-api/pkg/constants"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const minDerivedKeywordLength = 3

var (
	nonKeywordChars = regexp.MustCompile(`[^a-z0-9\s,]+`)
	keywordSplitter = regexp.MustCompile(`[,\s]+`)
)

var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`the and for with that this from into your you are our their about
		over under but not more less than then like just have has will can could would should
		to of in on at by a an or as be is it`) {
		stopwords[w] = struct{}{}
	}
}

// ExtractKeywords merges the client's explicit keywords with words pulled from
// the usecase text. Order of first appearance is kept, duplicates are dropped
// and the result is capped.
func ExtractKeywords(explicit []string, usecase *string) []string {
	// Casers are stateful, so one per call.
	lower := cases.Lower(language.Und)

	seen := make(map[string]struct{})
	keywords := make([]string, 0, constants.MaxKeywords)
	add := func(word string) bool {
		if word == "" {
			return true
		}
		if _, dup := seen[word]; dup {
			return true
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
		return len(keywords) < constants.MaxKeywords
	}

	for _, k := range explicit {
		if !add(lower.String(strings.TrimSpace(k))) {
			return keywords
		}
	}

	if usecase == nil {
		return keywords
	}

	cleaned := nonKeywordChars.ReplaceAllString(lower.String(*usecase), " ")
	for _, word := range keywordSplitter.Split(cleaned, -1) {
		if len(word) < minDerivedKeywordLength {
			continue
		}
		if _, stop := stopwords[word]; stop {
			continue
		}
		if !add(word) {
			break
		}
	}

	return keywords
}
