package compress

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ErrInvalidDataURL is returned by ParseDataURL for anything but a base64 data URI.
var ErrInvalidDataURL = errors.New("invalid base64 data url")

// DataURL encodes data as "data:<mime>;base64,<payload>".
func DataURL(mimeType string, data []byte) string {
	var b strings.Builder
	b.Grow(len(mimeType) + 13 + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(mimeType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}

// ParseDataURL splits a base64 data URI into its MIME type and decoded bytes.
func ParseDataURL(dataURL string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, ErrInvalidDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrInvalidDataURL
	}
	mimeType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, ErrInvalidDataURL
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, errors.Join(ErrInvalidDataURL, err)
	}
	return mimeType, data, nil
}
