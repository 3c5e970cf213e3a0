package upload

import (
	"errors"

	"github.com/jo-hoe/monadgram/internal/submission"
)

var (
	ErrFileRequired    = errors.New("please select an image to upload")
	ErrFileTooLarge    = errors.New("file is too large")
	ErrUnsupportedType = errors.New("only JPEG, PNG, GIF and WebP images are accepted")
	ErrUnreadableImage = errors.New("the image could not be read, it may be corrupt")
	ErrInvalidHandle   = submission.ErrInvalidHandle
	// ErrBusy is returned for a submit while a previous one from the same uploader is in flight.
	ErrBusy = errors.New("an upload is already in progress")
)

// ValidationError marks errors the user can fix; nothing was compressed, sent or stored.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err was raised while validating the form.
func IsValidation(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}
