package handler

import (
	"context"
	"net/http"
	"strings"

	"cmrp/models"
	"cmrp/service"
	"cmrp/storage"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// ComplaintOps is the complaint lifecycle used by the HTTP layer
type ComplaintOps interface {
	Submit(ctx context.Context, p models.Principal, req models.CreateComplaintRequest) (*models.Complaint, error)
	OfficerUpdate(ctx context.Context, officerID, complaintID string, req models.OfficerUpdateRequest) (*models.Complaint, error)
	AdminUpdate(ctx context.Context, p models.Principal, complaintID string, req models.AdminUpdateRequest) (*models.Complaint, error)
	AddWorkNote(ctx context.Context, officerID, complaintID, note string, photo *storage.File) (*models.WorkNote, error)
	ListWorkNotes(ctx context.Context, p models.Principal, complaintID string) ([]models.WorkNote, error)
	AddComment(ctx context.Context, p models.Principal, complaintID string, req models.CommentRequest) (*models.Comment, error)
	ListComments(ctx context.Context, p models.Principal, complaintID string) ([]models.Comment, error)
	AttachImage(ctx context.Context, p models.Principal, complaintID string, f storage.File) (*models.Complaint, error)
	ListMine(ctx context.Context, p models.Principal, status *models.ComplaintStatus) ([]models.Complaint, error)
	ListAll(ctx context.Context, p models.Principal, f models.ComplaintFilter) ([]models.Complaint, error)
	Get(ctx context.Context, p models.Principal, id string) (*models.Complaint, error)
	GetPublic(ctx context.Context, publicID string) (*models.PublicComplaint, error)
}

// ComplaintHandler handles HTTP requests for complaints, for citizens, officers and admins
type ComplaintHandler struct {
	complaints ComplaintOps
	logger     logrus.FieldLogger
}

// NewComplaintHandler creates a new complaint handler
func NewComplaintHandler(complaints ComplaintOps, logger logrus.FieldLogger) *ComplaintHandler {
	return &ComplaintHandler{complaints: complaints, logger: logger.WithField("component", "complaint_handler")}
}

// CreateComplaint handles POST /api/complaints
func (h *ComplaintHandler) CreateComplaint(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req models.CreateComplaintRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.complaints.Submit(r.Context(), p, req)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, c)
}

// GetMyComplaints handles GET /api/complaints/my and GET /api/officer/complaints.
// Citizens see what they filed; officers see what is assigned to them. ?status= narrows.
func (h *ComplaintHandler) GetMyComplaints(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	list, err := h.complaints.ListMine(r.Context(), p, service.ParseStatusFilter(r.URL.Query().Get("status")))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, nonNil(list))
}

// ListComplaints handles GET /api/complaints (admin)
func (h *ComplaintHandler) ListComplaints(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	list, err := h.complaints.ListAll(r.Context(), p, service.ParseComplaintFilter(r.URL.Query()))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, nonNil(list))
}

// GetComplaint handles GET /api/complaints/{id}
func (h *ComplaintHandler) GetComplaint(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	c, err := h.complaints.Get(r.Context(), p, mux.Vars(r)["id"])
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

// AdminUpdateComplaint handles PUT /api/complaints/{id}
func (h *ComplaintHandler) AdminUpdateComplaint(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req models.AdminUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.complaints.AdminUpdate(r.Context(), p, mux.Vars(r)["id"], req)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

// OfficerUpdateComplaint handles PUT /api/officer/complaints/{id}
func (h *ComplaintHandler) OfficerUpdateComplaint(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req models.OfficerUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.complaints.OfficerUpdate(r.Context(), p.ID, mux.Vars(r)["id"], req)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

// UploadImage handles POST /api/complaints/{id}/upload (multipart field "file")
func (h *ComplaintHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if !parseMultipart(w, r) {
		return
	}

	f, err := formFile(r, "file")
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	if f == nil {
		respondWithError(w, http.StatusBadRequest, "Validation error", "file is required")
		return
	}

	c, err := h.complaints.AttachImage(r.Context(), p, mux.Vars(r)["id"], *f)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

// AddWorkNote handles POST /api/officer/complaints/{id}/notes.
// Multipart with "note" and an optional "photo"; a JSON {"note": ...} body also works.
func (h *ComplaintHandler) AddWorkNote(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var (
		note  string
		photo *storage.File
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if !parseMultipart(w, r) {
			return
		}
		note = r.FormValue("note")
		f, err := formFile(r, "photo")
		if err != nil {
			respondWithServiceError(w, h.logger, err)
			return
		}
		photo = f
	} else {
		var body struct {
			Note string `json:"note"`
		}
		if !decodeJSON(w, r, &body) {
			return
		}
		note = body.Note
	}

	wn, err := h.complaints.AddWorkNote(r.Context(), p.ID, mux.Vars(r)["id"], note, photo)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, wn)
}

// GetWorkNotes handles GET /api/complaints/{id}/notes
func (h *ComplaintHandler) GetWorkNotes(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	notes, err := h.complaints.ListWorkNotes(r.Context(), p, mux.Vars(r)["id"])
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, nonNil(notes))
}

// AddComment handles POST /api/complaints/{id}/comments
func (h *ComplaintHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req models.CommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.complaints.AddComment(r.Context(), p, mux.Vars(r)["id"], req)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, c)
}

// GetComments handles GET /api/complaints/{id}/comments
func (h *ComplaintHandler) GetComments(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	comments, err := h.complaints.ListComments(r.Context(), p, mux.Vars(r)["id"])
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, nonNil(comments))
}

// nonNil keeps empty lists encoding as [] rather than null
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
