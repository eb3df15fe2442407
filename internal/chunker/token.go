package chunker

import "strings"

// Tokenize splits text on whitespace into word-level tokens. Exact
// tokenization is not required for chunking; window sizes are approximate.
func Tokenize(text string) []string {
	return strings.Fields(text)
}
