package submission

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is implicit: a submission is pending or approved depending on the list it lives in.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
)

// Submission is an uploaded image waiting for, or having passed, moderation.
// StoragePath is set for remotely persisted items, Src carries an inline data URI
// for items kept in the local store.
type Submission struct {
	ID          string    `json:"id"`
	StoragePath string    `json:"storage_path,omitempty"`
	Src         string    `json:"src,omitempty"`
	Handle      string    `json:"twitter"`
	CreatedAt   Timestamp `json:"created_at"`
	FileType    string    `json:"fileType,omitempty"`
	IsGIF       bool      `json:"isGif,omitempty"`
}

// NewLocalID returns "<epoch millis>-<random suffix>" for submissions created without the remote backend.
func NewLocalID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%d-%s", now.UnixMilli(), suffix)
}

// FormatLabel renders the short uppercase format name of FileType, e.g. "JPEG" for "image/jpeg".
func (s Submission) FormatLabel() string {
	_, sub, ok := strings.Cut(s.FileType, "/")
	if !ok || sub == "" {
		return ""
	}
	return strings.ToUpper(sub)
}

// Title is the caption shown on admin cards.
func (s Submission) Title() string {
	handle := s.Handle
	if handle == "" {
		handle = "Unknown"
	}
	title := "By " + handle
	if label := s.FormatLabel(); label != "" {
		title += " (" + label + ")"
	}
	if s.IsGIF {
		title += " [GIF]"
	}
	return title
}

// SortNewestFirst orders items by creation time descending. The sort is stable and
// items without a timestamp are treated as created at epoch 0.
func SortNewestFirst(items []Submission) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.Millis() > items[j].CreatedAt.Millis()
	})
}

// IndexOf returns the position of id in items or -1.
func IndexOf(items []Submission, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
