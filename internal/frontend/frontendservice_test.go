package frontend

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jo-hoe/monadgram/internal/common"
	"github.com/jo-hoe/monadgram/internal/compress"
	"github.com/jo-hoe/monadgram/internal/core"
	"github.com/jo-hoe/monadgram/internal/upload"
)

func newTestServer(t *testing.T) (*echo.Echo, *core.CoreService) {
	t.Helper()
	return newTestServerWith(t, nil)
}

func newTestServerWith(t *testing.T, configure func(*core.ServiceConfig)) (*echo.Echo, *core.CoreService) {
	t.Helper()
	config := &core.ServiceConfig{
		LocalStore: core.LocalStore{Type: "sqlite", ConnectionString: ":memory:"},
		Admin:      core.Admin{Password: "pw"},
		Upload: core.Upload{
			MaxDimension:        1920,
			ConfirmationTimeout: 3200 * time.Millisecond,
		},
		Gallery:        core.Gallery{InitialBatch: 16, BatchSize: 8},
		ThumbnailWidth: 64,
	}
	if configure != nil {
		configure(config)
	}
	coreService, err := core.NewCoreService(config)
	if err != nil {
		t.Fatalf("NewCoreService error: %v", err)
	}
	t.Cleanup(func() { _ = coreService.Close() })

	e := echo.New()
	e.Validator = &common.GenericEchoValidator{}
	NewFrontendService(config, coreService).SetRoutes(e)
	return e, coreService
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func multipartUpload(t *testing.T, fileName, contentType string, data []byte, handle string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if data != nil {
		header := make(map[string][]string)
		header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="image"; filename=%q`, fileName)}
		header["Content-Type"] = []string{contentType}
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("CreatePart error: %v", err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := writer.WriteField("twitter", handle); err != nil {
		t.Fatalf("WriteField error: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("multipart close: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/htmx/upload", &body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}

// seedApproved stores n local submissions through the upload flow and approves them.
func seedApproved(t *testing.T, coreService *core.CoreService, n int) []string {
	t.Helper()
	ctx := context.Background()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		file := &compress.File{Name: "a.gif", Type: "image/gif", Data: gifBytes(t)}
		outcome, err := coreService.Uploads().Submit(ctx, "seed", upload.Request{File: file, Handle: fmt.Sprintf("artist%d", i)})
		if err != nil {
			t.Fatalf("seed upload %d: %v", i, err)
		}
		ids = append(ids, outcome.Submission.ID)
	}
	if result := coreService.Admin().BulkApprove(ctx, ids); result.Failed != 0 {
		t.Fatalf("seed approve: %s", result)
	}
	return ids
}

func TestGallery_EmptyMessage(t *testing.T) {
	e, _ := newTestServer(t)
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/htmx/gallery?offset=0", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No art has been approved yet") {
		t.Fatalf("expected empty gallery message, got %s", rec.Body.String())
	}
}

func TestGallery_Batches(t *testing.T) {
	e, coreService := newTestServer(t)
	seedApproved(t, coreService, 20)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/htmx/gallery?offset=0", nil))
	body := rec.Body.String()
	if got := strings.Count(body, "<figure"); got != 16 {
		t.Fatalf("first batch = %d figures, want 16", got)
	}
	if !strings.Contains(body, `hx-get="/htmx/gallery?offset=16"`) || !strings.Contains(body, `hx-trigger="revealed"`) {
		t.Fatalf("first batch should end with a sentinel for offset 16")
	}
	if !strings.Contains(body, `hx-sync="this:drop"`) || !strings.Contains(body, `hx-swap="outerHTML"`) {
		t.Fatalf("sentinel should drop triggers while its batch is loading and replace itself")
	}
	if strings.Count(body, `loading="lazy"`) != 16 {
		t.Fatalf("gallery images should load lazily")
	}
	if !strings.Contains(body, "Art by @artist") {
		t.Fatalf("cards should credit their artist")
	}

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/htmx/gallery?offset=16", nil))
	body = rec.Body.String()
	if got := strings.Count(body, "<figure"); got != 4 {
		t.Fatalf("second batch = %d figures, want 4", got)
	}
	if strings.Contains(body, "hx-trigger") {
		t.Fatalf("exhausted gallery must not render another sentinel")
	}
}

func TestUpload_LocalFallbackAndImage(t *testing.T) {
	e, coreService := newTestServer(t)

	data := gifBytes(t)
	rec := serve(e, multipartUpload(t, "loop.gif", "image/gif", data, "alice"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "saved locally") {
		t.Fatalf("expected local save confirmation, got %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `data-dismiss-after="3200"`) {
		t.Fatalf("confirmation should auto-dismiss after 3200ms")
	}
	if !strings.Contains(rec.Body.String(), `onclick="this.parentElement.remove()"`) {
		t.Fatalf("confirmation should offer an explicit close")
	}
	if !strings.Contains(rec.Header().Get("Set-Cookie"), uploaderCookie) {
		t.Fatalf("uploader cookie should be issued")
	}

	ctx := context.Background()
	pending := coreService.Admin().ListPending(ctx)
	if len(pending) != 1 || pending[0].Handle != "@alice" {
		t.Fatalf("pending = %+v", pending)
	}
	id := pending[0].ID

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/image/"+url.PathEscape(id), nil))
	if rec.Code != http.StatusFound {
		t.Fatalf("pending images must not be served publicly, status %d", rec.Code)
	}

	if err := coreService.Admin().Approve(ctx, id); err != nil {
		t.Fatalf("Approve error: %v", err)
	}
	rec = serve(e, httptest.NewRequest(http.MethodGet, "/image/"+url.PathEscape(id), nil))
	if rec.Code != http.StatusOK || rec.Header().Get(echo.HeaderContentType) != "image/gif" {
		t.Fatalf("status = %d content type = %q", rec.Code, rec.Header().Get(echo.HeaderContentType))
	}
	if !bytes.Equal(rec.Body.Bytes(), data) {
		t.Fatalf("served payload differs from the upload (%d bytes)", rec.Body.Len())
	}
}

func TestUpload_ValidationErrors(t *testing.T) {
	e, coreService := newTestServer(t)
	tests := []struct {
		name string
		req  *http.Request
		want string
	}{
		{"missing file", multipartUpload(t, "", "", nil, "alice"), "select an image"},
		{"invalid handle", multipartUpload(t, "a.gif", "image/gif", gifBytes(t), "not valid!"), "valid Twitter username"},
		{"corrupt image", multipartUpload(t, "a.jpg", "image/jpeg", []byte("definitely not a jpeg"), "alice"), "could not be read"},
		{"unsupported type", multipartUpload(t, "a.txt", "text/plain", []byte("hello"), "alice"), "only JPEG, PNG, GIF and WebP"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(e, tt.req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Fatalf("body %q does not contain %q", rec.Body.String(), tt.want)
			}
		})
	}
	if got := coreService.Admin().ListPending(context.Background()); len(got) != 0 {
		t.Fatalf("rejected uploads must not be stored, got %d", len(got))
	}
}

func TestUpload_MalformedForm(t *testing.T) {
	e, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/htmx/upload", strings.NewReader("--other\r\ngarbage"))
	req.Header.Set(echo.HeaderContentType, "multipart/form-data; boundary=expected")
	rec := serve(e, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "upload could not be read") || strings.Contains(body, "select an image") {
		t.Fatalf("malformed form should not be reported as a missing file, got %s", body)
	}
}

func TestUpload_BodyLimit(t *testing.T) {
	const maxBytes = 4 * 1024
	e, coreService := newTestServerWith(t, func(config *core.ServiceConfig) {
		config.Upload.MaxBytes = maxBytes
	})

	oversized := make([]byte, common.UploadBodyLimit(maxBytes))
	rec := serve(e, multipartUpload(t, "big.png", "image/png", oversized, "alice"))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}

	// Within the body limit but over the file limit is still a validation error.
	rec = serve(e, multipartUpload(t, "big.png", "image/png", make([]byte, maxBytes+512), "alice"))
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "too large") {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if got := coreService.Admin().ListPending(context.Background()); len(got) != 0 {
		t.Fatalf("oversized uploads must not be stored, got %d", len(got))
	}
}

func TestPlaceholder(t *testing.T) {
	e, _ := newTestServer(t)
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/placeholder.png", nil))
	if rec.Code != http.StatusOK || rec.Header().Get(echo.HeaderContentType) != mimePNG {
		t.Fatalf("status = %d content type = %q", rec.Code, rec.Header().Get(echo.HeaderContentType))
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("placeholder is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != placeholderSize || img.Bounds().Dy() != placeholderSize {
		t.Fatalf("placeholder size = %v", img.Bounds())
	}
	r, g, b, _ := img.At(5, 5).RGBA()
	if r>>8 != 0x66 || g>>8 != 0x66 || b>>8 != 0x66 {
		t.Fatalf("placeholder background = %d,%d,%d, want grey", r>>8, g>>8, b>>8)
	}
}

func TestIndexAndRedirect(t *testing.T) {
	e, _ := newTestServer(t)
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusMovedPermanently || rec.Header().Get("Location") != "/"+MainPageName {
		t.Fatalf("root should redirect to the main page, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	rec = serve(e, httptest.NewRequest(http.MethodGet, "/"+MainPageName, nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `hx-post="/htmx/upload"`) {
		t.Fatalf("index should render the upload form, status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "up to 10MB") {
		t.Fatalf("index should state the compressed upload limit")
	}
}

func gifBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewPaletted(image.Rect(0, 0, 4, 4), color.Palette{color.Black, color.White})
	img.SetColorIndex(2, 2, 1)
	var buf bytes.Buffer
	if err := gif.Encode(&buf, img, nil); err != nil {
		t.Fatalf("gif.Encode error: %v", err)
	}
	return buf.Bytes()
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode error: %v", err)
	}
	return buf.Bytes()
}
