package frontend

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/labstack/echo/v4"

	"github.com/jo-hoe/monadgram/internal/admin"
	"github.com/jo-hoe/monadgram/internal/compress"
	"github.com/jo-hoe/monadgram/internal/submission"
)

const sessionCookie = "monadgram_admin_session"

type adminCard struct {
	ID       string
	ImageURL string
	Label    string
}

type adminToolbar struct {
	List      string
	Pending   bool
	Count     int
	Label     string
	SelectAll string
}

type adminList struct {
	Name         string
	Title        string
	Pending      bool
	EmptyMessage string
	Cards        []adminCard
	Toolbar      adminToolbar
}

type adminLists struct {
	Pending  adminList
	Approved adminList
}

func (service *FrontendService) setAdminRoutes(e *echo.Echo) {
	e.GET("/admin", service.adminPageHandler)
	e.POST("/admin/login", service.adminLoginHandler)
	e.POST("/admin/logout", service.adminLogoutHandler)

	group := e.Group("/htmx/admin", service.requireAdmin)
	group.GET("/lists", service.htmxAdminListsHandler)
	group.POST("/approve/:id", service.htmxAdminApproveHandler)
	group.POST("/delete/:id", service.htmxAdminDeleteHandler)
	group.POST("/bulk", service.htmxAdminBulkHandler)
	group.POST("/selection/:list", service.htmxAdminSelectionHandler)
	group.POST("/clear", service.htmxAdminClearHandler)
	group.GET("/thumb/:id", service.htmxAdminThumbnailHandler)
}

func (service *FrontendService) panel() *admin.Panel {
	return service.coreService.Admin()
}

func (service *FrontendService) authorized(ctx echo.Context) bool {
	cookie, err := ctx.Cookie(sessionCookie)
	if err != nil {
		return false
	}
	return service.panel().Authorized(ctx.Request().Context(), cookie.Value)
}

func (service *FrontendService) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if !service.authorized(ctx) {
			slog.Warn("admin route without valid session", "status", http.StatusUnauthorized, "path", ctx.Path())
			ctx.Response().Header().Set("HX-Redirect", "/admin")
			return ctx.String(http.StatusUnauthorized, "Admin session required")
		}
		return next(ctx)
	}
}

func (service *FrontendService) adminPageHandler(ctx echo.Context) error {
	service.setNoCache(ctx)
	if !service.authorized(ctx) {
		return ctx.Render(http.StatusOK, "admin_login.html", pageData{})
	}
	return ctx.Render(http.StatusOK, "admin.html", pageData{})
}

func (service *FrontendService) adminLoginHandler(ctx echo.Context) error {
	marker, err := service.panel().Login(ctx.Request().Context(), ctx.FormValue("password"))
	if errors.Is(err, admin.ErrInvalidCredentials) {
		return ctx.Render(http.StatusUnauthorized, "admin_login.html", pageData{Error: "Incorrect password."})
	}
	if err != nil {
		slog.Error("adminLoginHandler: failed to create session", "status", http.StatusInternalServerError, "error", err)
		return ctx.Render(http.StatusInternalServerError, "admin_login.html", pageData{Error: "Login failed. Please try again."})
	}
	ctx.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    marker,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	return ctx.Redirect(http.StatusSeeOther, "/admin")
}

func (service *FrontendService) adminLogoutHandler(ctx echo.Context) error {
	if err := service.panel().Logout(ctx.Request().Context()); err != nil {
		slog.Error("adminLogoutHandler: failed to clear session", "error", err)
	}
	ctx.SetCookie(&http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	return ctx.Redirect(http.StatusSeeOther, "/admin")
}

func (service *FrontendService) htmxAdminListsHandler(ctx echo.Context) error {
	return service.renderAdminLists(ctx, http.StatusOK)
}

func (service *FrontendService) htmxAdminApproveHandler(ctx echo.Context) error {
	id := ctx.Param("id")
	if err := service.panel().Approve(ctx.Request().Context(), id); err != nil {
		slog.Error("htmxAdminApproveHandler: failed to approve", "id", id, "error", err)
		return service.renderAdminListsWithToast(ctx, "error", "Approve failed.")
	}
	return service.renderAdminLists(ctx, http.StatusOK)
}

func (service *FrontendService) htmxAdminDeleteHandler(ctx echo.Context) error {
	id := ctx.Param("id")
	if err := service.panel().Delete(ctx.Request().Context(), id); err != nil {
		slog.Error("htmxAdminDeleteHandler: failed to delete", "id", id, "error", err)
		return service.renderAdminListsWithToast(ctx, "error", "Delete failed.")
	}
	return service.renderAdminLists(ctx, http.StatusOK)
}

func (service *FrontendService) htmxAdminBulkHandler(ctx echo.Context) error {
	form, err := ctx.FormParams()
	if err != nil {
		slog.Warn("htmxAdminBulkHandler: invalid form", "status", http.StatusBadRequest, "error", err)
		return ctx.String(http.StatusBadRequest, "Invalid form")
	}
	ids := form["id"]
	if len(ids) == 0 {
		return service.renderAdminListsWithToast(ctx, "error", "Nothing selected.")
	}

	var result admin.BulkResult
	switch ctx.QueryParam("action") {
	case "approve":
		result = service.panel().BulkApprove(ctx.Request().Context(), ids)
	case "delete":
		result = service.panel().BulkDelete(ctx.Request().Context(), ids)
	default:
		return ctx.String(http.StatusBadRequest, "Unknown bulk action")
	}

	kind := "success"
	if result.Failed > 0 {
		kind = "error"
	}
	return service.renderAdminListsWithToast(ctx, kind, result.String())
}

// htmxAdminSelectionHandler recomputes the toolbar of one list from the checked ids.
func (service *FrontendService) htmxAdminSelectionHandler(ctx echo.Context) error {
	list := ctx.Param("list")
	if list != "pending" && list != "approved" {
		return ctx.String(http.StatusBadRequest, "Unknown list")
	}
	form, err := ctx.FormParams()
	if err != nil {
		return ctx.String(http.StatusBadRequest, "Invalid form")
	}
	visible := form["visible"]
	selection := admin.NewSelection()
	for _, id := range form["id"] {
		if containsID(visible, id) {
			selection.Toggle(id, true)
		}
	}
	return ctx.Render(http.StatusOK, "admin_toolbar", toolbarFor(list, selection, visible))
}

func (service *FrontendService) htmxAdminClearHandler(ctx echo.Context) error {
	if err := service.panel().Reset(ctx.Request().Context()); err != nil {
		slog.Error("htmxAdminClearHandler: failed to clear local store", "status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to clear local storage")
	}
	ctx.SetCookie(&http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	ctx.Response().Header().Set("HX-Redirect", "/admin")
	return ctx.NoContent(http.StatusOK)
}

// htmxAdminThumbnailHandler shrinks an inline payload so the admin grid does not load full images.
func (service *FrontendService) htmxAdminThumbnailHandler(ctx echo.Context) error {
	id := ctx.Param("id")
	item, ok := service.coreService.FindLocal(ctx.Request().Context(), id, true)
	if !ok {
		slog.Warn("htmxAdminThumbnailHandler: image not available", "status", http.StatusNotFound, "image_id", id)
		return ctx.String(http.StatusNotFound, "Image not available")
	}
	thumbnail, err := service.toThumbnail(item.Src)
	if err != nil {
		slog.Warn("htmxAdminThumbnailHandler: thumbnail not available", "status", http.StatusNotFound, "image_id", id, "error", err)
		return ctx.String(http.StatusNotFound, "Thumbnail not available")
	}

	// Prevent caching
	service.setNoCache(ctx)

	return ctx.Blob(http.StatusOK, mimePNG, thumbnail)
}

func (service *FrontendService) toThumbnail(dataURL string) ([]byte, error) {
	_, data, err := compress.ParseDataURL(dataURL)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if width := service.config.ThumbnailWidth; width > 0 && img.Bounds().Dx() > width {
		img = imaging.Resize(img, width, 0, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (service *FrontendService) renderAdminLists(ctx echo.Context, status int) error {
	service.setNoCache(ctx)
	return ctx.Render(status, "admin_lists", service.buildAdminLists(ctx))
}

func (service *FrontendService) renderAdminListsWithToast(ctx echo.Context, kind, message string) error {
	service.setNoCache(ctx)
	var buf bytes.Buffer
	if err := ctx.Echo().Renderer.Render(&buf, "admin_lists", service.buildAdminLists(ctx), ctx); err != nil {
		return err
	}
	toast := toastData{Kind: kind, Message: message, TimeoutMs: service.config.Upload.ConfirmationTimeout.Milliseconds()}
	if err := ctx.Echo().Renderer.Render(&buf, "toast_oob", toast, ctx); err != nil {
		return err
	}
	return ctx.HTMLBlob(http.StatusOK, buf.Bytes())
}

// buildAdminLists loads both lists fresh; every refresh starts with an empty selection.
func (service *FrontendService) buildAdminLists(ctx echo.Context) adminLists {
	requestCtx := ctx.Request().Context()
	pending := service.panel().ListPending(requestCtx)
	approved := service.panel().ListApproved(requestCtx)
	return adminLists{
		Pending:  service.buildAdminList("pending", "Pending", admin.EmptyPendingMessage, pending),
		Approved: service.buildAdminList("approved", "Approved", admin.EmptyApprovedMessage, approved),
	}
}

func (service *FrontendService) buildAdminList(name, title, empty string, items []submission.Submission) adminList {
	list := adminList{
		Name:         name,
		Title:        title,
		Pending:      name == "pending",
		EmptyMessage: empty,
	}
	visible := make([]string, 0, len(items))
	for _, item := range items {
		visible = append(visible, item.ID)
		list.Cards = append(list.Cards, adminCard{
			ID:       item.ID,
			ImageURL: service.adminImageURL(item),
			Label:    item.Title(),
		})
	}
	list.Toolbar = toolbarFor(name, admin.NewSelection(), visible)
	return list
}

func (service *FrontendService) adminImageURL(item submission.Submission) string {
	resolved := service.coreService.ImageURL(item)
	if strings.HasPrefix(resolved, "data:") && item.ID != "" {
		return "/htmx/admin/thumb/" + url.PathEscape(item.ID)
	}
	return resolved
}

func toolbarFor(list string, selection *admin.Selection, visible []string) adminToolbar {
	return adminToolbar{
		List:      list,
		Pending:   list == "pending",
		Count:     selection.Count(),
		Label:     selection.Label(),
		SelectAll: selection.State(visible).String(),
	}
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
