// Package textnorm canonicalizes text before embedding so paraphrase drift
// (case, whitespace, regional spelling) does not degrade cosine similarity.
// Both queries and chunks must pass through Normalize before every embedding
// call; embeddings are a pure function of (normalized text, model version).
package textnorm

import "strings"

// spellingVariants folds common regional spellings onto one form. Applied after
// lowercasing, whole words only.
var spellingVariants = map[string]string{
	"colour":       "color",
	"colours":      "colors",
	"behaviour":    "behavior",
	"behaviours":   "behaviors",
	"organise":     "organize",
	"organised":    "organized",
	"organisation": "organization",
	"analyse":      "analyze",
	"analysed":     "analyzed",
	"optimise":     "optimize",
	"optimised":    "optimized",
	"licence":      "license",
	"centre":       "center",
	"centres":      "centers",
	"favourite":    "favorite",
	"catalogue":    "catalog",
	"grey":         "gray",
}

// Normalize lowercases the text, collapses all whitespace runs to single
// spaces, trims the ends, and folds common spelling variants.
func Normalize(text string) string {
	fields := strings.Fields(strings.ToLower(text))
	for i, word := range fields {
		// Strip trailing punctuation for the variant lookup only; the word
		// itself keeps its punctuation.
		trimmed := strings.TrimRight(word, ".,;:!?")
		if repl, ok := spellingVariants[trimmed]; ok {
			fields[i] = repl + word[len(trimmed):]
		}
	}
	return strings.Join(fields, " ")
}
