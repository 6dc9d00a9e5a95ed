package handler

import (
	"context"
	"net/http"
	"strings"

	"cmrp/models"
	"cmrp/storage"

	"github.com/sirupsen/logrus"
)

// PromotionRequester files a citizen's request for officer access
type PromotionRequester interface {
	RequestPromotion(ctx context.Context, p models.Principal, req models.PromotionRequest, idProof *storage.File) (*models.User, error)
}

// UserHandler handles citizen self-service endpoints
type UserHandler struct {
	users  PromotionRequester
	logger logrus.FieldLogger
}

// NewUserHandler creates a new user handler
func NewUserHandler(users PromotionRequester, logger logrus.FieldLogger) *UserHandler {
	return &UserHandler{users: users, logger: logger.WithField("component", "user_handler")}
}

// RequestOfficer handles POST /api/users/request-officer.
// Multipart (department, designation, reason, optional id_proof) or a JSON body.
func (h *UserHandler) RequestOfficer(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var (
		req     models.PromotionRequest
		idProof *storage.File
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if !parseMultipart(w, r) {
			return
		}
		req.Department = r.FormValue("department")
		req.Designation = r.FormValue("designation")
		req.Reason = r.FormValue("reason")

		f, err := formFile(r, "id_proof")
		if err != nil {
			respondWithServiceError(w, h.logger, err)
			return
		}
		idProof = f
	} else if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.users.RequestPromotion(r.Context(), p, req, idProof)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, u)
}
