package routes

import (
	"net/http"
	"strings"

	"cmrp/handler"
	"cmrp/middleware"
	"cmrp/models"

	"github.com/gorilla/mux"
)

// Handlers groups everything the router dispatches to
type Handlers struct {
	Auth       *handler.AuthHandler
	Complaints *handler.ComplaintHandler
	Admin      *handler.AdminHandler
	Users      *handler.UserHandler
	Public     *handler.PublicHandler
	WS         *handler.WSHandler
}

// Uploads configures static serving of locally stored files. An empty Dir disables it.
type Uploads struct {
	Dir       string
	URLPrefix string
}

// SetupRoutes configures all API routes
func SetupRoutes(h Handlers, auth *middleware.AuthMiddleware, uploads Uploads) *mux.Router {
	router := mux.NewRouter()

	// protect wraps a handler with token auth and, when roles are given, a role check
	protect := func(fn http.HandlerFunc, roles ...models.Role) http.Handler {
		var next http.Handler = fn
		if len(roles) > 0 {
			next = middleware.RequireRole(roles...)(next)
		}
		return auth.RequireAuth(next)
	}

	router.HandleFunc("/health", handler.Health).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/", handler.Banner).Methods("GET")

	// Auth
	api.HandleFunc("/auth/register", h.Auth.Register).Methods("POST")
	api.HandleFunc("/auth/login", h.Auth.Login).Methods("POST")
	api.Handle("/auth/me", protect(h.Auth.Me)).Methods("GET")
	api.HandleFunc("/officer/login", h.Auth.OfficerLogin).Methods("POST")

	// Complaints. Fixed paths are registered before /{id}.
	complaints := api.PathPrefix("/complaints").Subrouter()
	complaints.Handle("", protect(h.Complaints.CreateComplaint, models.RoleCitizen)).Methods("POST")
	complaints.Handle("", protect(h.Complaints.ListComplaints, models.RoleAdmin)).Methods("GET")
	complaints.Handle("/my", protect(h.Complaints.GetMyComplaints, models.RoleCitizen, models.RoleOfficer)).Methods("GET")
	complaints.HandleFunc("/public/{public_id}", h.Public.TrackComplaint).Methods("GET")
	complaints.Handle("/{id}", protect(h.Complaints.GetComplaint)).Methods("GET")
	complaints.Handle("/{id}", protect(h.Complaints.AdminUpdateComplaint, models.RoleAdmin)).Methods("PUT")
	complaints.Handle("/{id}/upload", protect(h.Complaints.UploadImage, models.RoleCitizen)).Methods("POST")
	complaints.Handle("/{id}/comments", protect(h.Complaints.AddComment)).Methods("POST")
	complaints.Handle("/{id}/comments", protect(h.Complaints.GetComments)).Methods("GET")
	complaints.Handle("/{id}/notes", protect(h.Complaints.GetWorkNotes, models.RoleOfficer, models.RoleAdmin)).Methods("GET")

	// Officer desk
	desk := api.PathPrefix("/officer/complaints").Subrouter()
	desk.Handle("", protect(h.Complaints.GetMyComplaints, models.RoleOfficer)).Methods("GET")
	desk.Handle("/{id}", protect(h.Complaints.OfficerUpdateComplaint, models.RoleOfficer)).Methods("PUT")
	desk.Handle("/{id}/notes", protect(h.Complaints.AddWorkNote, models.RoleOfficer)).Methods("POST")

	api.Handle("/officers", protect(h.Admin.ListActiveOfficers, models.RoleOfficer, models.RoleAdmin)).Methods("GET")
	api.Handle("/users/request-officer", protect(h.Users.RequestOfficer, models.RoleCitizen)).Methods("POST")

	// Public aggregates
	api.HandleFunc("/analytics/public", h.Public.Analytics).Methods("GET")
	api.HandleFunc("/analytics", h.Public.Analytics).Methods("GET")
	api.Handle("/dashboard/stats", protect(h.Public.DashboardStats, models.RoleAdmin)).Methods("GET")
	router.HandleFunc("/public/complaints/dashboard", h.Public.Dashboard).Methods("GET")
	router.HandleFunc("/public/complaints/locations", h.Public.Locations).Methods("GET")

	// Admin
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(auth.RequireAuth, middleware.RequireRole(models.RoleAdmin))
	admin.HandleFunc("/officers", h.Admin.CreateOfficer).Methods("POST")
	admin.HandleFunc("/officers", h.Admin.ListOfficers).Methods("GET")
	admin.HandleFunc("/officers/{id}", h.Admin.GetOfficer).Methods("GET")
	admin.HandleFunc("/officers/{id}", h.Admin.UpdateOfficer).Methods("PUT")
	admin.HandleFunc("/officers/{id}", h.Admin.DeleteOfficer).Methods("DELETE")
	admin.HandleFunc("/officers/{id}/pincodes", h.Admin.GetOfficerPincodes).Methods("GET")
	admin.HandleFunc("/officers/{id}/password", h.Admin.ResetOfficerPassword).Methods("PUT")
	admin.HandleFunc("/officer-requests", h.Admin.ListOfficerRequests).Methods("GET")
	admin.HandleFunc("/approve-officer/{id}", h.Admin.ApproveOfficer).Methods("POST")
	admin.HandleFunc("/reject-officer/{id}", h.Admin.RejectOfficer).Methods("POST")
	admin.HandleFunc("/migrate-complaints", h.Admin.MigrateComplaints).Methods("POST")

	router.HandleFunc("/ws/complaints", h.WS.Complaints).Methods("GET")

	if uploads.Dir != "" {
		prefix := "/" + strings.Trim(uploads.URLPrefix, "/") + "/"
		router.PathPrefix(prefix).Handler(http.StripPrefix(prefix, http.FileServer(http.Dir(uploads.Dir)))).Methods("GET")
	}

	return router
}
