package gallery

import "github.com/jo-hoe/monadgram/internal/submission"

const (
	InitialBatch = 16
	BatchSize    = 8
)

// Page returns items[offset:offset+limit] clamped to bounds, the offset of the
// following page and whether the list is exhausted after this page.
func Page(items []submission.Submission, offset, limit int) ([]submission.Submission, int, bool) {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) || limit <= 0 {
		return []submission.Submission{}, len(items), true
	}
	end := min(offset+limit, len(items))
	return items[offset:end], end, end >= len(items)
}
