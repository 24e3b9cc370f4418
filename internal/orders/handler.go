package orders

import (
	"log/slog"
	"net/http"

	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
	"github.com/odyssey-commerce/storefront/internal/rbac"
	"github.com/odyssey-commerce/storefront/internal/shared"
)

type Handler struct {
	logger    *slog.Logger
	service   *Service
	customers rbac.Middleware
	admins    rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, customers, admins rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, customers: customers, admins: admins}
}

func identity(r *http.Request, aud shared.Audience) *shared.Identity {
	return shared.IdentityFromContext(r.Context(), aud)
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var in CheckoutInput
	if err := httpx.Bind(w, r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	o, err := h.service.Checkout(r.Context(), identity(r, shared.AudienceCustomer).ID, in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, o)
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.ListMine(r.Context(), identity(r, shared.AudienceCustomer).ID, shared.PageFromQuery(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) showMine(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	o, err := h.service.GetMine(r.Context(), identity(r, shared.AudienceCustomer).ID, id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) cancelMine(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	o, err := h.service.Cancel(r.Context(), identity(r, shared.AudienceCustomer).ID, id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.ListAll(r.Context(), r.URL.Query().Get("status"), shared.PageFromQuery(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) showAny(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	o, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var in StatusInput
	if err := httpx.Bind(w, r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	o, err := h.service.UpdateStatus(r.Context(), identity(r, shared.AudienceAdmin).ID, id, in.Status)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}
