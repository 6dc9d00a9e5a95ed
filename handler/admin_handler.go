package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"cmrp/models"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// OfficerAdmin manages the officer registry
type OfficerAdmin interface {
	Create(ctx context.Context, createdBy models.Principal, req models.CreateOfficerRequest) (*models.OfficerResponse, error)
	List(ctx context.Context, activeOnly bool) ([]models.Officer, error)
	Get(ctx context.Context, id string) (*models.Officer, error)
	Pincodes(ctx context.Context, id string) ([]string, error)
	Update(ctx context.Context, id string, req models.UpdateOfficerRequest) (*models.OfficerResponse, error)
	ResetPassword(ctx context.Context, id, password string) error
	Delete(ctx context.Context, id string) error
}

// PromotionReviewer lists and decides citizen requests for officer access
type PromotionReviewer interface {
	ListPromotionRequests(ctx context.Context, status *models.OfficerRequestStatus) ([]models.User, error)
	ReviewPromotion(ctx context.Context, userID string, approve bool) (*models.User, error)
}

// Reconciler re-derives complaint assignments from current coverage
type Reconciler interface {
	Reconcile(ctx context.Context, mode models.ReconcileMode) (*models.ReconcileReport, error)
}

// AdminHandler provides admin-only endpoints: officer registry, promotion review, migration
type AdminHandler struct {
	officers   OfficerAdmin
	promotions PromotionReviewer
	reconciler Reconciler
	logger     logrus.FieldLogger
}

// NewAdminHandler creates an admin handler
func NewAdminHandler(officers OfficerAdmin, promotions PromotionReviewer, reconciler Reconciler, logger logrus.FieldLogger) *AdminHandler {
	return &AdminHandler{
		officers:   officers,
		promotions: promotions,
		reconciler: reconciler,
		logger:     logger.WithField("component", "admin_handler"),
	}
}

// CreateOfficer handles POST /api/admin/officers
func (h *AdminHandler) CreateOfficer(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req models.CreateOfficerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.officers.Create(r.Context(), p, req)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, resp)
}

// ListOfficers handles GET /api/admin/officers (everyone, ?active=true narrows)
func (h *AdminHandler) ListOfficers(w http.ResponseWriter, r *http.Request) {
	h.listOfficers(w, r, strings.EqualFold(r.URL.Query().Get("active"), "true"))
}

// ListActiveOfficers handles GET /api/officers
func (h *AdminHandler) ListActiveOfficers(w http.ResponseWriter, r *http.Request) {
	h.listOfficers(w, r, true)
}

func (h *AdminHandler) listOfficers(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	list, err := h.officers.List(r.Context(), activeOnly)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, nonNil(list))
}

// GetOfficer handles GET /api/admin/officers/{id}
func (h *AdminHandler) GetOfficer(w http.ResponseWriter, r *http.Request) {
	o, err := h.officers.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}

// GetOfficerPincodes handles GET /api/admin/officers/{id}/pincodes
func (h *AdminHandler) GetOfficerPincodes(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	pincodes, err := h.officers.Pincodes(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"officer_id": id, "pincodes": nonNil(pincodes)})
}

// UpdateOfficer handles PUT /api/admin/officers/{id}
func (h *AdminHandler) UpdateOfficer(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateOfficerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.officers.Update(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// ResetOfficerPassword handles PUT /api/admin/officers/{id}/password
func (h *AdminHandler) ResetOfficerPassword(w http.ResponseWriter, r *http.Request) {
	var req models.PasswordResetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.officers.ResetPassword(r.Context(), mux.Vars(r)["id"], req.Password); err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

// DeleteOfficer handles DELETE /api/admin/officers/{id}
func (h *AdminHandler) DeleteOfficer(w http.ResponseWriter, r *http.Request) {
	if err := h.officers.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Officer deleted"})
}

// ListOfficerRequests handles GET /api/admin/officer-requests?status=
func (h *AdminHandler) ListOfficerRequests(w http.ResponseWriter, r *http.Request) {
	var status *models.OfficerRequestStatus
	if raw := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status"))); raw != "" {
		s := models.OfficerRequestStatus(raw)
		switch s {
		case models.OfficerRequestPending, models.OfficerRequestApproved, models.OfficerRequestRejected:
			status = &s
		default:
			respondWithError(w, http.StatusBadRequest, "Validation error", fmt.Sprintf("unknown request status %q", raw))
			return
		}
	}

	users, err := h.promotions.ListPromotionRequests(r.Context(), status)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, nonNil(users))
}

// ApproveOfficer handles POST /api/admin/approve-officer/{id}
func (h *AdminHandler) ApproveOfficer(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, true)
}

// RejectOfficer handles POST /api/admin/reject-officer/{id}
func (h *AdminHandler) RejectOfficer(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, false)
}

func (h *AdminHandler) review(w http.ResponseWriter, r *http.Request, approve bool) {
	u, err := h.promotions.ReviewPromotion(r.Context(), mux.Vars(r)["id"], approve)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, u)
}

// MigrateComplaints handles POST /api/admin/migrate-complaints?mode=full|unassigned
func (h *AdminHandler) MigrateComplaints(w http.ResponseWriter, r *http.Request) {
	mode, err := models.ParseReconcileMode(r.URL.Query().Get("mode"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation error", "mode must be full or unassigned")
		return
	}

	report, err := h.reconciler.Reconcile(r.Context(), mode)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}
