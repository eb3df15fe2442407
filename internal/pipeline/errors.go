package pipeline

import "fmt"

// InsufficientContentError reports extracted text below the minimum length,
// the signature of an empty or unreadable document.
type InsufficientContentError struct {
	Chars int
	Min   int
}

func (e *InsufficientContentError) Error() string {
	return fmt.Sprintf("insufficient text content extracted: %d chars (minimum %d)", e.Chars, e.Min)
}
