package asset

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/asset-attestation/internal/auth"
	"github.com/frahmantamala/asset-attestation/internal/transport"
	"github.com/frahmantamala/asset-attestation/pkg/logger"
)

type ServiceAPI interface {
	CreateAsset(ctx context.Context, dto CreateAssetDTO) (*Asset, error)
	GetAsset(ctx context.Context, viewer Viewer, id int64) (*Asset, error)
	ListAssets(ctx context.Context, viewer Viewer, companyID *int64, status string) ([]*Asset, error)
	UpdateAsset(ctx context.Context, id int64, dto UpdateAssetDTO) (*Asset, error)
	UpdateAssetStatus(ctx context.Context, viewer Viewer, id int64, dto UpdateStatusDTO) (*Asset, error)
	DeleteAsset(ctx context.Context, id int64) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func viewerFrom(r *http.Request) (Viewer, bool) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok || u == nil {
		return Viewer{}, false
	}
	return Viewer{ID: u.ID, Email: u.Email, Role: u.Role}, true
}

func (h *Handler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	var dto CreateAssetDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	a, err := h.Service.CreateAsset(r.Context(), dto)
	if err != nil {
		h.Logger.Error("CreateAsset: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, a)
}

func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	viewer, ok := viewerFrom(r)
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	a, err := h.Service.GetAsset(r.Context(), viewer, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, a)
}

// ListAssets handles GET /assets?company_id=&status=
func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	viewer, ok := viewerFrom(r)
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	companyID, err := h.OptionalIDQuery(r, "company_id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	assets, err := h.Service.ListAssets(r.Context(), viewer, companyID, r.URL.Query().Get("status"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ListAssetsResponse{Assets: assets, Count: len(assets)})
}

func (h *Handler) UpdateAsset(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto UpdateAssetDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	a, err := h.Service.UpdateAsset(r.Context(), id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) UpdateAssetStatus(w http.ResponseWriter, r *http.Request) {
	viewer, ok := viewerFrom(r)
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto UpdateStatusDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	a, err := h.Service.UpdateAssetStatus(r.Context(), viewer, id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if err := h.Service.DeleteAsset(r.Context(), id); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
