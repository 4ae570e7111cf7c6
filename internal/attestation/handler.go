package attestation

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/asset-attestation/internal/asset"
	"github.com/frahmantamala/asset-attestation/internal/auth"
	"github.com/frahmantamala/asset-attestation/internal/transport"
	"github.com/frahmantamala/asset-attestation/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	CreateCampaign(ctx context.Context, createdBy int64, dto CampaignDTO) (*Campaign, error)
	GetCampaign(ctx context.Context, id int64) (*Campaign, error)
	ListCampaigns(ctx context.Context, status string) ([]*Campaign, error)
	UpdateCampaign(ctx context.Context, id int64, dto CampaignDTO) (*Campaign, error)
	DeleteCampaign(ctx context.Context, id int64) error
	LaunchCampaign(ctx context.Context, id int64) (*LaunchResult, error)
	CancelCampaign(ctx context.Context, id int64) (*Campaign, error)
	CompleteCampaign(ctx context.Context, id int64) (*Campaign, error)
	Dashboard(ctx context.Context, campaignID int64) (*Dashboard, error)
	CampaignRecords(ctx context.Context, campaignID int64) ([]*Record, error)
	CampaignInvites(ctx context.Context, campaignID int64) ([]*PendingInvite, error)

	MyAttestations(ctx context.Context, userID int64) ([]*Record, error)
	GetMyRecord(ctx context.Context, recordID int64, viewer asset.Viewer) (*RecordDetail, error)
	StartRecord(ctx context.Context, recordID, userID int64) (*Record, error)
	AddNewAsset(ctx context.Context, recordID, userID int64, dto NewAssetDTO) (*NewAsset, error)
	UpdateAssetStatus(ctx context.Context, recordID int64, viewer asset.Viewer, assetID int64, dto AssetStatusDTO) (*asset.Asset, error)
	CompleteRecord(ctx context.Context, recordID int64, viewer asset.Viewer) (*CompletionResult, error)

	InviteByToken(ctx context.Context, token string) (*InviteDetail, error)
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

func viewerFrom(r *http.Request) (asset.Viewer, bool) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok || u == nil {
		return asset.Viewer{}, false
	}
	return asset.Viewer{ID: u.ID, Email: u.Email, Role: u.Role}, true
}

// ----------------- CAMPAIGNS (admin) -----------------

func (h *Handler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	viewer, ok := viewerFrom(r)
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CampaignDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	c, err := h.Service.CreateCampaign(r.Context(), viewer.ID, dto)
	if err != nil {
		h.Logger.Error("CreateCampaign: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, c)
}

// ListCampaigns handles GET /campaigns?status=
func (h *Handler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.Service.ListCampaigns(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ListCampaignsResponse{Campaigns: campaigns, Count: len(campaigns)})
}

func (h *Handler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	c, err := h.Service.GetCampaign(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto CampaignDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	c, err := h.Service.UpdateCampaign(r.Context(), id, dto)
	if err != nil {
		h.Logger.Error("UpdateCampaign: service error", "error", err, "campaign_id", id)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if err := h.Service.DeleteCampaign(r.Context(), id); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) LaunchCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	result, err := h.Service.LaunchCampaign(r.Context(), id)
	if err != nil {
		h.Logger.Error("LaunchCampaign: service error", "error", err, "campaign_id", id)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) CancelCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	c, err := h.Service.CancelCampaign(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) CompleteCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	c, err := h.Service.CompleteCampaign(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	d, err := h.Service.Dashboard(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) CampaignRecords(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	records, err := h.Service.CampaignRecords(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ListRecordsResponse{Records: records, Count: len(records)})
}

func (h *Handler) CampaignInvites(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	invites, err := h.Service.CampaignInvites(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"invites": invites, "count": len(invites)})
}

// ----------------- EMPLOYEE SELF-SERVICE -----------------

func (h *Handler) MyAttestations(w http.ResponseWriter, r *http.Request) {
	viewer, ok := viewerFrom(r)
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	records, err := h.Service.MyAttestations(r.Context(), viewer.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ListRecordsResponse{Records: records, Count: len(records)})
}

func (h *Handler) GetMyRecord(w http.ResponseWriter, r *http.Request) {
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

	detail, err := h.Service.GetMyRecord(r.Context(), id, viewer)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, detail)
}

func (h *Handler) StartRecord(w http.ResponseWriter, r *http.Request) {
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

	record, err := h.Service.StartRecord(r.Context(), id, viewer.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) AddNewAsset(w http.ResponseWriter, r *http.Request) {
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

	var dto NewAssetDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	staged, err := h.Service.AddNewAsset(r.Context(), id, viewer.ID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, staged)
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
	assetID, err := h.IDParam(r, "assetID")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto AssetStatusDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	a, err := h.Service.UpdateAssetStatus(r.Context(), id, viewer, assetID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) CompleteRecord(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.Service.CompleteRecord(r.Context(), id, viewer)
	if err != nil {
		h.Logger.Error("CompleteRecord: service error", "error", err, "record_id", id)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}

// ----------------- INVITES (public) -----------------

func (h *Handler) InviteByToken(w http.ResponseWriter, r *http.Request) {
	detail, err := h.Service.InviteByToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, detail)
}
