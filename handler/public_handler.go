package handler

import (
	"context"
	"net/http"

	"cmrp/models"
	"cmrp/service"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// PublicLookup resolves a public tracking id
type PublicLookup interface {
	GetPublic(ctx context.Context, publicID string) (*models.PublicComplaint, error)
}

// AnalyticsOps is the aggregate read side
type AnalyticsOps interface {
	Dashboard(ctx context.Context, f models.ComplaintFilter) ([]models.DashboardItem, error)
	Locations(ctx context.Context, f models.ComplaintFilter) ([]models.LocationItem, error)
	Public(ctx context.Context) (*models.Analytics, error)
	Stats(ctx context.Context) (*models.DashboardStats, error)
}

// PublicHandler serves read-only public data. No auth; whitelisted fields only.
type PublicHandler struct {
	complaints PublicLookup
	analytics  AnalyticsOps
	logger     logrus.FieldLogger
}

// NewPublicHandler creates a public handler
func NewPublicHandler(complaints PublicLookup, analytics AnalyticsOps, logger logrus.FieldLogger) *PublicHandler {
	return &PublicHandler{complaints: complaints, analytics: analytics, logger: logger.WithField("component", "public_handler")}
}

// TrackComplaint handles GET /api/complaints/public/{public_id}
func (h *PublicHandler) TrackComplaint(w http.ResponseWriter, r *http.Request) {
	publicID := mux.Vars(r)["public_id"]
	if publicID == "" {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "public_id required")
		return
	}

	c, err := h.complaints.GetPublic(r.Context(), publicID)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

// Dashboard handles GET /public/complaints/dashboard
func (h *PublicHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	items, err := h.analytics.Dashboard(r.Context(), service.ParseComplaintFilter(r.URL.Query()))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, nonNil(items))
}

// Locations handles GET /public/complaints/locations
func (h *PublicHandler) Locations(w http.ResponseWriter, r *http.Request) {
	items, err := h.analytics.Locations(r.Context(), service.ParseComplaintFilter(r.URL.Query()))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, nonNil(items))
}

// Analytics handles GET /api/analytics/public and its /api/analytics alias
func (h *PublicHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	a, err := h.analytics.Public(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, a)
}

// DashboardStats handles GET /api/dashboard/stats (admin)
func (h *PublicHandler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	s, err := h.analytics.Stats(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, s)
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Banner handles GET /api/
func Banner(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Civic Complaint Management API"})
}
