package gallery

import "github.com/jo-hoe/monadgram/internal/submission"

// PlaceholderPath serves the image shown when a submission has no usable source.
const PlaceholderPath = "/placeholder.png"

// ResolveImage picks the visible source of an item: the storage public URL when a
// storage path is present, then the inline payload, then the placeholder.
func ResolveImage(item submission.Submission, publicURL func(storagePath string) string) string {
	if item.StoragePath != "" && publicURL != nil {
		if u := publicURL(item.StoragePath); u != "" {
			return u
		}
	}
	if item.Src != "" {
		return item.Src
	}
	return PlaceholderPath
}
