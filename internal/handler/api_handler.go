package handler

import (
	"errors"
	"go-pages-app/internal/data"
	"go-pages-app/internal/logger"
	"go-pages-app/internal/service"
	"net/http"
	"strconv"
)

// APIHandler serves the JSON endpoints.
type APIHandler struct {
	pageService service.PageServicer
	log         logger.Logger
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(ps service.PageServicer, log logger.Logger) *APIHandler {
	return &APIHandler{pageService: ps, log: log}
}

type pageItem struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type pageListResponse struct {
	Items []pageItem `json:"items"`
	Total int        `json:"total"`
	Pages int        `json:"pages"`
	Page  int        `json:"page"`
}

type categoryItem struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// searchHandler returns pages whose title contains search_query, with a short preview.
func (h *APIHandler) searchHandler(w http.ResponseWriter, r *http.Request) {
	results, err := h.pageService.QuickSearch(r.Context(), r.FormValue("search_query"))
	if err != nil {
		h.log.Error(err, "Quick search failed")
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// pagesHandler returns one page of the page listing, ten items at a time.
func (h *APIHandler) pagesHandler(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		// A malformed number falls back to the first page.
		if n, err := strconv.Atoi(raw); err == nil {
			page = n
		}
	}

	list, err := h.pageService.ListPagesPage(r.Context(), page, service.DefaultPerPage)
	if errors.Is(err, data.ErrNotFound) {
		writeError(w, http.StatusNotFound, "page out of range")
		return
	}
	if err != nil {
		h.log.Error(err, "Failed to list pages")
		writeError(w, http.StatusInternalServerError, "failed to list pages")
		return
	}

	resp := pageListResponse{Items: make([]pageItem, len(list.Items)), Total: list.Total, Pages: list.Pages, Page: list.Page}
	for i, p := range list.Items {
		resp.Items[i] = pageItem{ID: p.ID, Title: p.Title}
	}
	writeJSON(w, http.StatusOK, resp)
}

// categoriesHandler lists categories, filtered by the optional q parameter.
func (h *APIHandler) categoriesHandler(w http.ResponseWriter, r *http.Request) {
	categories, err := h.pageService.Categories(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.log.Error(err, "Failed to list categories")
		writeError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	items := make([]categoryItem, len(categories))
	for i, c := range categories {
		items[i] = categoryItem{ID: c.ID, Name: c.Name}
	}
	writeJSON(w, http.StatusOK, items)
}
