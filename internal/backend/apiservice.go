package backend

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/jo-hoe/monadgram/internal/common"
	"github.com/jo-hoe/monadgram/internal/compress"
	"github.com/jo-hoe/monadgram/internal/core"
	"github.com/jo-hoe/monadgram/internal/gallery"
	"github.com/jo-hoe/monadgram/internal/upload"
)

type APIService struct {
	coreService *core.CoreService
}

type GalleryItem struct {
	ID        string `json:"id"`
	ImageURL  string `json:"imageUrl"`
	Twitter   string `json:"twitter"`
	CreatedAt int64  `json:"createdAt"`
	IsGIF     bool   `json:"isGif,omitempty"`
}

type GalleryResponse struct {
	Items  []GalleryItem `json:"items"`
	Next   int           `json:"next"`
	Done   bool          `json:"done"`
	Source string        `json:"source"`
}

type galleryQuery struct {
	Offset int `query:"offset" validate:"min=0"`
	Limit  int `query:"limit" validate:"min=0,max=100"`
}

type SubmissionRequest struct {
	DataURL  string `json:"dataUrl" validate:"required"`
	FileName string `json:"fileName"`
	Twitter  string `json:"twitter" validate:"required,handle"`
}

type SubmissionResponse struct {
	ID           string `json:"id,omitempty"`
	Twitter      string `json:"twitter"`
	SavedLocally bool   `json:"savedLocally"`
	Message      string `json:"message"`
}

func NewAPIService(coreService *core.CoreService) *APIService {
	return &APIService{
		coreService: coreService,
	}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	// Set probe route
	e.GET("/probe", func(c echo.Context) error {
		return c.String(http.StatusOK, "API Service is running")
	})
	e.GET("/api/gallery", s.galleryHandler)
	e.POST("/api/submissions", s.submissionHandler,
		common.UploadBodyLimitMiddleware(s.coreService.Uploads().MaxBytes()))
}

func (s *APIService) galleryHandler(c echo.Context) error {
	var query galleryQuery
	if err := c.Bind(&query); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query")
	}
	if err := c.Validate(&query); err != nil {
		return err
	}
	limit := query.Limit
	if limit == 0 {
		limit = s.coreService.Config().Gallery.BatchSize
		if query.Offset == 0 {
			limit = s.coreService.Config().Gallery.InitialBatch
		}
	}

	items, source := s.coreService.Approved(c.Request().Context())
	page, next, done := gallery.Page(items, query.Offset, limit)

	response := GalleryResponse{Items: make([]GalleryItem, 0, len(page)), Next: next, Done: done, Source: source}
	for _, item := range page {
		imageURL := s.coreService.ImageURL(item)
		if strings.HasPrefix(imageURL, "data:") {
			imageURL = "/image/" + url.PathEscape(item.ID)
		}
		response.Items = append(response.Items, GalleryItem{
			ID:        item.ID,
			ImageURL:  imageURL,
			Twitter:   item.Handle,
			CreatedAt: item.CreatedAt.Millis(),
			IsGIF:     item.IsGIF,
		})
	}
	return c.JSON(http.StatusOK, response)
}

// submissionHandler accepts an already encoded image, e.g. from scripts or other clients.
func (s *APIService) submissionHandler(c echo.Context) error {
	var request SubmissionRequest
	if err := c.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&request); err != nil {
		return err
	}
	mimeType, data, err := compress.ParseDataURL(request.DataURL)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	outcome, err := s.coreService.Uploads().Submit(c.Request().Context(), c.RealIP(), upload.Request{
		File:   &compress.File{Name: request.FileName, Type: mimeType, Data: data},
		Handle: request.Twitter,
	})
	switch {
	case err == nil:
	case upload.IsValidation(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, upload.ErrBusy):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		slog.Error("submissionHandler: upload failed", "status", http.StatusInternalServerError, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "upload failed")
	}

	status := http.StatusCreated
	if outcome.SavedLocally {
		status = http.StatusAccepted
	}
	return c.JSON(status, SubmissionResponse{
		ID:           outcome.Submission.ID,
		Twitter:      outcome.Submission.Handle,
		SavedLocally: outcome.SavedLocally,
		Message:      outcome.Message(),
	})
}
