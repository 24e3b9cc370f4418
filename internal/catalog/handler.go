package catalog

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
	"github.com/odyssey-commerce/storefront/internal/rbac"
	"github.com/odyssey-commerce/storefront/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

func (h *Handler) listPublic(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.service.ListPublic(r.Context(), q.Get("search"), q.Get("category"), shared.PageFromQuery(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) showPublic(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetPublic(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) listAdmin(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.service.ListAdmin(r.Context(), q.Get("search"), q.Get("category"), shared.PageFromQuery(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) showAdmin(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in ProductInput
	if err := httpx.Bind(w, r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	p, err := h.service.Create(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var in ProductInput
	if err := httpx.Bind(w, r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	p, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	err = h.service.Delete(r.Context(), id)
	switch {
	case err == nil:
		httpx.Success(w, nil)
	case errors.Is(err, ErrArchived):
		httpx.Success(w, map[string]any{"archived": true})
	default:
		httpx.RespondError(w, h.logger, err)
	}
}
