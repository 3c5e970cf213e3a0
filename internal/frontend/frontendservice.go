package frontend

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/jo-hoe/monadgram/internal/common"
	"github.com/jo-hoe/monadgram/internal/compress"
	"github.com/jo-hoe/monadgram/internal/core"
	"github.com/jo-hoe/monadgram/internal/gallery"
	"github.com/jo-hoe/monadgram/internal/submission"
	"github.com/jo-hoe/monadgram/internal/upload"
)

const (
	MainPageName   = "index.html"
	mimePNG        = "image/png"
	uploaderCookie = "monadgram_uploader"
)

type FrontendService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig

	placeholderOnce sync.Once
	placeholder     []byte
	placeholderErr  error
}

func NewFrontendService(config *core.ServiceConfig, coreService *core.CoreService) *FrontendService {
	return &FrontendService{
		coreService: coreService,
		config:      config,
	}
}

type pageData struct {
	MaxUploadMB string
	Compression bool
	Error       string
}

type galleryCard struct {
	ID       string
	ImageURL string
	Alt      string
	Credit   string
}

type galleryPage struct {
	Cards   []galleryCard
	NextURL string
	Empty   bool
}

type toastData struct {
	Kind      string
	Message   string
	TimeoutMs int64
}

// rootRedirectHandler redirects root path to index.html
func (service *FrontendService) rootRedirectHandler(ctx echo.Context) error {
	return ctx.Redirect(http.StatusMovedPermanently, "/"+MainPageName)
}

func (service *FrontendService) SetRoutes(e *echo.Echo) {
	e.Renderer = newTemplate()

	e.GET("/", service.rootRedirectHandler)
	e.GET("/"+MainPageName, service.indexHandler)
	e.GET("/htmx/gallery", service.htmxGalleryHandler)
	e.POST("/htmx/upload", service.htmxUploadHandler,
		common.UploadBodyLimitMiddleware(service.coreService.Uploads().MaxBytes()))
	e.GET("/image/:id", service.localImageHandler)
	e.GET(gallery.PlaceholderPath, service.placeholderHandler)
	e.GET("/icon.svg", service.iconHandler)

	service.setAdminRoutes(e)
}

func (service *FrontendService) indexHandler(ctx echo.Context) error {
	uploads := service.coreService.Uploads()
	return ctx.Render(http.StatusOK, MainPageName, pageData{
		MaxUploadMB: strconv.FormatFloat(float64(uploads.MaxBytes())/(1024*1024), 'f', -1, 64),
		Compression: uploads.Options().CompressionEnabled,
	})
}

// htmxGalleryHandler renders one batch of approved art plus a sentinel that loads the next batch when revealed.
func (service *FrontendService) htmxGalleryHandler(ctx echo.Context) error {
	offset, err := strconv.Atoi(ctx.QueryParam("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	limit := service.config.Gallery.BatchSize
	if offset == 0 {
		limit = service.config.Gallery.InitialBatch
	}

	items, source := service.coreService.Approved(ctx.Request().Context())
	page, next, done := gallery.Page(items, offset, limit)
	slog.Debug("gallery batch rendered", "source", source, "offset", offset, "count", len(page), "total", len(items))

	data := galleryPage{Empty: offset == 0 && len(items) == 0}
	for _, item := range page {
		data.Cards = append(data.Cards, galleryCard{
			ID:       item.ID,
			ImageURL: service.imageURL(item),
			Alt:      "Monad art by " + creditHandle(item),
			Credit:   "Art by " + creditHandle(item),
		})
	}
	if !done {
		data.NextURL = fmt.Sprintf("/htmx/gallery?offset=%d", next)
	}

	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, "gallery_items", data)
}

func (service *FrontendService) htmxUploadHandler(ctx echo.Context) error {
	request := upload.Request{Handle: ctx.FormValue("twitter")}

	fileHeader, err := ctx.FormFile("image")
	switch {
	case errors.Is(err, echo.ErrStatusRequestEntityTooLarge):
		slog.Warn("htmxUploadHandler: request body too large", "status", http.StatusRequestEntityTooLarge, "error", err)
		return service.renderToast(ctx, http.StatusRequestEntityTooLarge, "error", upload.ErrFileTooLarge.Error())
	case err != nil && !errors.Is(err, http.ErrMissingFile):
		slog.Warn("htmxUploadHandler: malformed upload form", "status", http.StatusBadRequest, "error", err)
		return service.renderToast(ctx, http.StatusBadRequest, "error", "The upload could not be read. Please try again.")
	case err == nil:
		src, err := fileHeader.Open()
		if err != nil {
			slog.Error("htmxUploadHandler: failed to open uploaded file",
				"status", http.StatusInternalServerError, "error", err, "filename", fileHeader.Filename)
			return service.renderToast(ctx, http.StatusInternalServerError, "error", "Failed to open uploaded file")
		}
		defer func() {
			if cerr := src.Close(); cerr != nil {
				slog.Error("htmxUploadHandler: failed to close uploaded file reader", "error", cerr, "filename", fileHeader.Filename)
			}
		}()

		// One byte past the limit is enough for validation to reject the file.
		data, err := io.ReadAll(io.LimitReader(src, service.coreService.Uploads().MaxBytes()+1))
		if err != nil {
			slog.Error("htmxUploadHandler: failed to read uploaded file",
				"status", http.StatusInternalServerError, "error", err, "filename", fileHeader.Filename)
			return service.renderToast(ctx, http.StatusInternalServerError, "error", "Failed to read uploaded file")
		}
		request.File = &compress.File{
			Name: fileHeader.Filename,
			Type: fileHeader.Header.Get(echo.HeaderContentType),
			Data: data,
		}
	}

	outcome, err := service.coreService.Uploads().Submit(ctx.Request().Context(), service.uploaderKey(ctx), request)
	switch {
	case err == nil:
		return service.renderToast(ctx, http.StatusOK, "success", outcome.Message())
	case upload.IsValidation(err):
		slog.Warn("htmxUploadHandler: rejected submission", "status", http.StatusBadRequest, "error", err)
		return service.renderToast(ctx, http.StatusBadRequest, "error", err.Error())
	case errors.Is(err, upload.ErrBusy):
		return service.renderToast(ctx, http.StatusConflict, "error", "Your previous upload is still in progress.")
	default:
		slog.Error("htmxUploadHandler: upload failed", "status", http.StatusInternalServerError, "error", err)
		return service.renderToast(ctx, http.StatusInternalServerError, "error", "Upload failed. Please try again.")
	}
}

// localImageHandler serves the inline payload of a locally stored submission.
func (service *FrontendService) localImageHandler(ctx echo.Context) error {
	id := ctx.Param("id")
	item, ok := service.coreService.FindLocal(ctx.Request().Context(), id, false)
	if !ok || item.Src == "" {
		slog.Warn("localImageHandler: image not available", "status", http.StatusNotFound, "image_id", id)
		return ctx.Redirect(http.StatusFound, gallery.PlaceholderPath)
	}
	mimeType, data, err := compress.ParseDataURL(item.Src)
	if err != nil {
		slog.Warn("localImageHandler: stored payload is not a data url", "status", http.StatusNotFound, "image_id", id, "error", err)
		return ctx.Redirect(http.StatusFound, gallery.PlaceholderPath)
	}
	ctx.Response().Header().Set("Cache-Control", "private, max-age=86400")
	return ctx.Blob(http.StatusOK, mimeType, data)
}

func (service *FrontendService) placeholderHandler(ctx echo.Context) error {
	service.placeholderOnce.Do(func() {
		service.placeholder, service.placeholderErr = renderSVGToPNG([]byte(placeholderSVG), placeholderSize, placeholderSize)
	})
	if service.placeholderErr != nil {
		slog.Error("placeholderHandler: failed to render placeholder", "status", http.StatusInternalServerError, "error", service.placeholderErr)
		return ctx.String(http.StatusInternalServerError, "Failed to render placeholder")
	}
	ctx.Response().Header().Set("Cache-Control", "public, max-age=604800, immutable")
	return ctx.Blob(http.StatusOK, mimePNG, service.placeholder)
}

func (service *FrontendService) iconHandler(ctx echo.Context) error {
	data, err := assetsFS.ReadFile("views/icon.svg")
	if err != nil {
		slog.Error("iconHandler: failed to read icon.svg", "status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to load icon")
	}
	// Cache for 7 days
	ctx.Response().Header().Set("Cache-Control", "public, max-age=604800, immutable")
	return ctx.Blob(http.StatusOK, "image/svg+xml", data)
}

// imageURL resolves the image source of item; inline payloads are served through /image/:id.
func (service *FrontendService) imageURL(item submission.Submission) string {
	resolved := service.coreService.ImageURL(item)
	if strings.HasPrefix(resolved, "data:") && item.ID != "" {
		return "/image/" + url.PathEscape(item.ID)
	}
	return resolved
}

// uploaderKey identifies the browser so that one upload per uploader runs at a time.
func (service *FrontendService) uploaderKey(ctx echo.Context) string {
	if cookie, err := ctx.Cookie(uploaderCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	key := uuid.NewString()
	ctx.SetCookie(&http.Cookie{
		Name:     uploaderCookie,
		Value:    key,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().AddDate(1, 0, 0),
	})
	return key
}

func (service *FrontendService) renderToast(ctx echo.Context, status int, kind, message string) error {
	return ctx.Render(status, "toast", toastData{
		Kind:      kind,
		Message:   message,
		TimeoutMs: service.config.Upload.ConfirmationTimeout.Milliseconds(),
	})
}

func (service *FrontendService) setNoCache(ctx echo.Context) {
	ctx.Response().Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	ctx.Response().Header().Set("Pragma", "no-cache")
	ctx.Response().Header().Set("Expires", "0")
}

func creditHandle(item submission.Submission) string {
	if item.Handle == "" {
		return "Unknown"
	}
	return item.Handle
}
