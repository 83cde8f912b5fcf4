package handler

import (
	"errors"
	"fmt"
	"go-pages-app/internal/logger"
	"go-pages-app/internal/middleware"
	"go-pages-app/internal/service"
	"go-pages-app/internal/session"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// PageHandler holds the dependencies for the page handlers.
type PageHandler struct {
	base
	pageService service.PageServicer
	userService service.UserServicer
}

// NewPageHandler creates a new PageHandler with the given dependencies.
//
// Parameters:
//   - ps: The page service for pages, comments, categories and search.
//   - us: The user service, used for profiles.
//   - v: The renderer for the HTML templates.
//   - sm: The session manager, used to identify the caller and queue flashes.
//   - log: The application logger.
func NewPageHandler(ps service.PageServicer, us service.UserServicer, v Renderer, sm session.Manager, log logger.Logger) *PageHandler {
	return &PageHandler{
		base:        base{view: v, sessions: sm, log: log},
		pageService: ps,
		userService: us,
	}
}

// homeHandler lists every page.
func (h *PageHandler) homeHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	pages, err := h.pageService.ListPages(r.Context())
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to retrieve pages", Code: http.StatusInternalServerError}
	}
	return h.render(w, r, "home.html", map[string]interface{}{"Pages": pages})
}

func pageForm(r *http.Request) map[string]string {
	return map[string]string{
		"Title":      r.FormValue("page_name"),
		"Content":    r.FormValue("content"),
		"ImageURL":   r.FormValue("image_url"),
		"Categories": r.FormValue("categories"),
		"Tags":       r.FormValue("tags"),
	}
}

// createPageHandler shows the new page form.
func (h *PageHandler) createPageHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return h.render(w, r, "create_page.html", map[string]interface{}{"Form": map[string]string{}})
}

// saveNewPageHandler creates a page from the submitted form.
func (h *PageHandler) saveNewPageHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	form := pageForm(r)
	_, err := h.pageService.CreatePage(r.Context(), middleware.GetCaller(r.Context()), service.CreatePageInput{
		Title:      form["Title"],
		Content:    form["Content"],
		ImageURL:   form["ImageURL"],
		Categories: service.SplitNames(form["Categories"]),
		Tags:       service.SplitNames(form["Tags"]),
	})
	if err != nil {
		if msg, ok := validationMessage(err); ok {
			return h.renderStatus(w, r, http.StatusUnprocessableEntity, "create_page.html", map[string]interface{}{"Form": form, "Error": msg})
		}
		return appError(err, "Page not found")
	}
	return h.redirect(w, r, "success", "Page created successfully!", "/")
}

// editPageHandler shows the edit form to the page's author.
func (h *PageHandler) editPageHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "id")
	if appErr != nil {
		return appErr
	}
	page, err := h.pageService.GetPage(r.Context(), id)
	if err != nil {
		return appError(err, "Page not found")
	}
	if page.AuthorID != middleware.GetCaller(r.Context()).UserID {
		return h.redirect(w, r, "danger", "You do not have permission to edit this page.", "/")
	}
	return h.render(w, r, "edit_page.html", map[string]interface{}{
		"Page": page,
		"Form": map[string]string{"Title": page.Title, "Content": page.Content},
	})
}

// saveEditHandler applies an edit submitted by the page's author.
func (h *PageHandler) saveEditHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "id")
	if appErr != nil {
		return appErr
	}
	form := pageForm(r)
	page, err := h.pageService.EditPage(r.Context(), middleware.GetCaller(r.Context()), id, service.EditPageInput{
		Title:   form["Title"],
		Content: form["Content"],
	})
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		return h.redirect(w, r, "danger", "You do not have permission to edit this page.", "/")
	case err != nil:
		if msg, ok := validationMessage(err); ok {
			return h.renderStatus(w, r, http.StatusUnprocessableEntity, "edit_page.html", map[string]interface{}{
				"Page":  map[string]interface{}{"ID": id},
				"Form":  form,
				"Error": msg,
			})
		}
		return appError(err, "Page not found")
	}
	return h.redirect(w, r, "success", "Page updated successfully.", fmt.Sprintf("/page/%d", page.ID))
}

// pageHandler shows a page with its comments.
func (h *PageHandler) pageHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "id")
	if appErr != nil {
		return appErr
	}
	page, err := h.pageService.GetPage(r.Context(), id)
	if err != nil {
		return appError(err, "Page not found")
	}
	caller := middleware.GetCaller(r.Context())
	return h.render(w, r, "page.html", map[string]interface{}{
		"Page":     page,
		"IsAuthor": caller.Authenticated() && caller.UserID == page.AuthorID,
	})
}

// commentHandler posts a comment under a page.
func (h *PageHandler) commentHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "id")
	if appErr != nil {
		return appErr
	}
	target := fmt.Sprintf("/page/%d", id)

	_, err := h.pageService.AddComment(r.Context(), middleware.GetCaller(r.Context()), id, r.FormValue("comment"))
	if err != nil {
		if _, ok := validationMessage(err); ok {
			return h.redirect(w, r, "warning", "Comment cannot be empty.", target)
		}
		return appError(err, "Page not found")
	}
	return h.redirect(w, r, "success", "Comment added.", target)
}

// randomHandler redirects to a random page.
func (h *PageHandler) randomHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	page, err := h.pageService.RandomPage(r.Context())
	if errors.Is(err, service.ErrNoPages) {
		return h.redirect(w, r, "info", "No pages available.", "/")
	}
	if err != nil {
		return appError(err, "Page not found")
	}
	http.Redirect(w, r, fmt.Sprintf("/page/%d", page.ID), http.StatusSeeOther)
	return nil
}

// searchHandler ranks pages by fuzzy title match.
func (h *PageHandler) searchHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	query := strings.TrimSpace(r.FormValue("search_query"))
	if query == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return nil
	}
	pages, err := h.pageService.Search(r.Context(), query)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Search failed", Code: http.StatusInternalServerError}
	}
	return h.render(w, r, "search_results.html", map[string]interface{}{"Pages": pages, "Query": query})
}

// categoryHandler lists the pages in a category.
func (h *PageHandler) categoryHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := idParam(r, "id")
	if appErr != nil {
		return appErr
	}
	category, pages, err := h.pageService.CategoryPages(r.Context(), id)
	if err != nil {
		return appError(err, "Category not found")
	}
	return h.render(w, r, "category.html", map[string]interface{}{"Category": category, "Pages": pages})
}

// profileHandler shows a user and the pages they wrote.
func (h *PageHandler) profileHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	user, pages, err := h.userService.Profile(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		return appError(err, "User not found")
	}
	return h.render(w, r, "profile.html", map[string]interface{}{"User": user, "Pages": pages})
}
