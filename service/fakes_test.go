package service_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"cmrp/broadcast"
	"cmrp/models"
	"cmrp/service"
	"cmrp/storage"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func nullLogger() logrus.FieldLogger {
	logger, _ := test.NewNullLogger()
	return logger
}

func strPtr(s string) *string { return &s }

// memComplaints is an in-memory complaint table
type memComplaints struct {
	mu   sync.Mutex
	rows map[string]*models.Complaint
	seq  int

	// publicIDTaken forces PublicIDExists to report true
	publicIDTaken bool
	// beforeAssign runs inside ConditionalAssign before the guard is checked
	beforeAssign func(id string)
	// failAssign makes ConditionalAssign fail for these ids
	failAssign map[string]bool
}

func newMemComplaints() *memComplaints {
	return &memComplaints{rows: make(map[string]*models.Complaint), failAssign: make(map[string]bool)}
}

func copyComplaint(c *models.Complaint) *models.Complaint {
	cp := *c
	if c.AssignedTo != nil {
		cp.AssignedTo = strPtr(*c.AssignedTo)
	}
	return &cp
}

// seed inserts a complaint directly, bypassing the service
func (m *memComplaints) seed(c models.Complaint) *models.Complaint {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if c.ID == "" {
		c.ID = fmt.Sprintf("c%d", m.seq)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(m.seq) * time.Minute)
	}
	m.rows[c.ID] = copyComplaint(&c)
	return copyComplaint(&c)
}

func (m *memComplaints) get(id string) *models.Complaint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyComplaint(m.rows[id])
}

func (m *memComplaints) Create(ctx context.Context, c *models.Complaint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.PublicID == c.PublicID {
			return models.ErrConflict
		}
	}
	m.seq++
	m.rows[c.ID] = copyComplaint(c)
	return nil
}

func (m *memComplaints) PublicIDExists(ctx context.Context, publicID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publicIDTaken {
		return true, nil
	}
	for _, row := range m.rows {
		if row.PublicID == publicID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memComplaints) find(match func(*models.Complaint) bool) (*models.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if match(row) {
			return copyComplaint(row), nil
		}
	}
	return nil, fmt.Errorf("%w: complaint", models.ErrNotFound)
}

func (m *memComplaints) GetByID(ctx context.Context, id string) (*models.Complaint, error) {
	return m.find(func(c *models.Complaint) bool { return c.ID == id })
}

func (m *memComplaints) GetForAssignee(ctx context.Context, id, officerID string) (*models.Complaint, error) {
	return m.find(func(c *models.Complaint) bool {
		return c.ID == id && c.AssignedTo != nil && *c.AssignedTo == officerID
	})
}

func (m *memComplaints) GetForOwner(ctx context.Context, id, userID string) (*models.Complaint, error) {
	return m.find(func(c *models.Complaint) bool { return c.ID == id && c.UserID == userID })
}

func (m *memComplaints) GetByPublicID(ctx context.Context, publicID string) (*models.Complaint, error) {
	return m.find(func(c *models.Complaint) bool { return c.PublicID == publicID })
}

func (m *memComplaints) filter(match func(*models.Complaint) bool, newestFirst bool) []models.Complaint {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Complaint, 0)
	for _, row := range m.rows {
		if match(row) {
			out = append(out, *copyComplaint(row))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (m *memComplaints) ListByUser(ctx context.Context, userID string) ([]models.Complaint, error) {
	return m.filter(func(c *models.Complaint) bool { return c.UserID == userID }, true), nil
}

func (m *memComplaints) ListByAssignee(ctx context.Context, officerID string, status *models.ComplaintStatus) ([]models.Complaint, error) {
	return m.filter(func(c *models.Complaint) bool {
		if c.AssignedTo == nil || *c.AssignedTo != officerID {
			return false
		}
		return status == nil || c.Status == *status
	}, true), nil
}

func (m *memComplaints) List(ctx context.Context, f models.ComplaintFilter) ([]models.Complaint, error) {
	return m.filter(func(c *models.Complaint) bool {
		if f.Status != nil && c.Status != *f.Status {
			return false
		}
		if f.Category != "" && c.Category != f.Category {
			return false
		}
		if f.Zone != "" && !strings.Contains(strings.ToLower(c.Address), strings.ToLower(f.Zone)) {
			return false
		}
		return true
	}, true), nil
}

func (m *memComplaints) ListLocations(ctx context.Context, f models.ComplaintFilter) ([]models.LocationItem, error) {
	rows := m.filter(func(c *models.Complaint) bool { return c.Latitude != nil && c.Longitude != nil }, true)
	out := make([]models.LocationItem, 0, len(rows))
	for _, c := range rows {
		out = append(out, models.LocationItem{
			PublicID: c.PublicID, Latitude: *c.Latitude, Longitude: *c.Longitude, Status: c.Status, Category: c.Category,
		})
	}
	return out, nil
}

func (m *memComplaints) Update(ctx context.Context, id string, patch models.ComplaintPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return models.ErrNotFound
	}
	if patch.Status != nil {
		row.Status = *patch.Status
	}
	if patch.AssignedTo != nil {
		if *patch.AssignedTo == "" {
			row.AssignedTo = nil
		} else {
			row.AssignedTo = strPtr(*patch.AssignedTo)
		}
	}
	if patch.AdminComments != nil {
		row.AdminComments = strPtr(*patch.AdminComments)
	}
	row.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memComplaints) SetImageURL(ctx context.Context, id, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return models.ErrNotFound
	}
	row.ImageURL = strPtr(url)
	return nil
}

func (m *memComplaints) ListReconcileCandidates(ctx context.Context, mode models.ReconcileMode) ([]models.Complaint, error) {
	return m.filter(func(c *models.Complaint) bool {
		if c.Status == models.StatusInProgress || c.Status == models.StatusResolved {
			return false
		}
		if mode == models.ReconcileUnassigned {
			return !c.IsAssigned()
		}
		return true
	}, false), nil
}

func (m *memComplaints) ConditionalAssign(ctx context.Context, id string, expected models.ComplaintStatus, assignedTo *string, status models.ComplaintStatus) (bool, error) {
	if m.beforeAssign != nil {
		m.beforeAssign(id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAssign[id] {
		return false, errors.New("deadlock found")
	}
	row, ok := m.rows[id]
	if !ok || row.Status != expected {
		return false, nil
	}
	row.Status = status
	row.AssignedTo = nil
	if assignedTo != nil {
		row.AssignedTo = strPtr(*assignedTo)
	}
	return true, nil
}

func (m *memComplaints) AssignUnrouted(ctx context.Context, officerID string, pincodes []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in := make(map[string]bool, len(pincodes))
	for _, p := range pincodes {
		in[p] = true
	}
	n := 0
	for _, row := range m.rows {
		if !in[row.Pincode] {
			continue
		}
		if row.Status == models.StatusNoOfficer || (row.Status == models.StatusPending && !row.IsAssigned()) {
			row.Status = models.StatusPending
			row.AssignedTo = strPtr(officerID)
			n++
		}
	}
	return n, nil
}

func (m *memComplaints) CountByStatus(ctx context.Context) (map[models.ComplaintStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[models.ComplaintStatus]int)
	for _, row := range m.rows {
		out[row.Status]++
	}
	return out, nil
}

func (m *memComplaints) CategoryStats(ctx context.Context) ([]models.CategoryStat, error) {
	m.mu.Lock()
	byName := make(map[string]*models.CategoryStat)
	for _, row := range m.rows {
		st, ok := byName[row.Category]
		if !ok {
			st = &models.CategoryStat{Name: row.Category}
			byName[row.Category] = st
		}
		st.Total++
		if row.Status == models.StatusResolved {
			st.Resolved++
		}
	}
	m.mu.Unlock()

	out := make([]models.CategoryStat, 0, len(byName))
	for _, st := range byName {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// memOfficers keeps insertion order so "first match" is predictable in tests
type memOfficers struct {
	mu          sync.Mutex
	rows        []*models.Officer
	lookups     int
	failLookups bool
}

func copyOfficer(o *models.Officer) *models.Officer {
	cp := *o
	cp.Pincodes = append([]string(nil), o.Pincodes...)
	return &cp
}

func (m *memOfficers) add(o models.Officer) *models.Officer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, copyOfficer(&o))
	return copyOfficer(&o)
}

func (m *memOfficers) FindActiveByPincode(ctx context.Context, pincode string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if m.failLookups {
		return "", false, errors.New("connection refused")
	}
	for _, o := range m.rows {
		if o.IsActive && o.Covers(pincode) {
			return o.ID, true, nil
		}
	}
	return "", false, nil
}

func (m *memOfficers) Create(ctx context.Context, o *models.Officer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.Username == o.Username {
			return models.ErrConflict
		}
	}
	m.rows = append(m.rows, copyOfficer(o))
	return nil
}

func (m *memOfficers) index(match func(*models.Officer) bool) int {
	for i, o := range m.rows {
		if match(o) {
			return i
		}
	}
	return -1
}

func (m *memOfficers) GetByID(ctx context.Context, id string) (*models.Officer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.index(func(o *models.Officer) bool { return o.ID == id }); i >= 0 {
		return copyOfficer(m.rows[i]), nil
	}
	return nil, fmt.Errorf("%w: officer", models.ErrNotFound)
}

func (m *memOfficers) GetByUsername(ctx context.Context, username string) (*models.Officer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.index(func(o *models.Officer) bool { return o.Username == username }); i >= 0 {
		return copyOfficer(m.rows[i]), nil
	}
	return nil, fmt.Errorf("%w: officer", models.ErrNotFound)
}

func (m *memOfficers) List(ctx context.Context, activeOnly bool) ([]models.Officer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Officer, 0, len(m.rows))
	for _, o := range m.rows {
		if activeOnly && !o.IsActive {
			continue
		}
		out = append(out, *copyOfficer(o))
	}
	return out, nil
}

func (m *memOfficers) Pincodes(ctx context.Context, id string) ([]string, error) {
	o, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return o.Pincodes, nil
}

func (m *memOfficers) Update(ctx context.Context, o *models.Officer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(func(row *models.Officer) bool { return row.ID == o.ID })
	if i < 0 {
		return models.ErrNotFound
	}
	m.rows[i] = copyOfficer(o)
	return nil
}

func (m *memOfficers) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(func(row *models.Officer) bool { return row.ID == id })
	if i < 0 {
		return models.ErrNotFound
	}
	m.rows[i].PasswordHash = passwordHash
	return nil
}

func (m *memOfficers) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(func(row *models.Officer) bool { return row.ID == id })
	if i < 0 {
		return models.ErrNotFound
	}
	m.rows = append(m.rows[:i], m.rows[i+1:]...)
	return nil
}

// memUsers is an in-memory user table
type memUsers struct {
	mu   sync.Mutex
	rows map[string]*models.User
}

func newMemUsers() *memUsers {
	return &memUsers{rows: make(map[string]*models.User)}
}

func (m *memUsers) Create(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.Email == u.Email {
			return models.ErrConflict
		}
	}
	cp := *u
	m.rows[u.ID] = &cp
	return nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.Email == email {
			cp := *row
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: user", models.ErrNotFound)
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.rows[id]; ok {
		cp := *row
		return &cp, nil
	}
	return nil, fmt.Errorf("%w: user", models.ErrNotFound)
}

func (m *memUsers) ListByOfficerRequest(ctx context.Context, status *models.OfficerRequestStatus) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.User, 0)
	for _, row := range m.rows {
		st := row.OfficerRequest.Status
		if (status != nil && st == *status) || (status == nil && st != models.OfficerRequestNone) {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (m *memUsers) SubmitOfficerRequest(ctx context.Context, userID string, req models.OfficerRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[userID]
	if !ok {
		return models.ErrNotFound
	}
	row.OfficerRequest = req
	return nil
}

func (m *memUsers) ReviewOfficerRequest(ctx context.Context, userID string, status models.OfficerRequestStatus, role *models.Role, reviewedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[userID]
	if !ok {
		return models.ErrNotFound
	}
	row.OfficerRequest.Status = status
	row.OfficerRequest.ReviewedAt = &reviewedAt
	if role != nil {
		row.Role = *role
	}
	return nil
}

type memComments struct {
	mu   sync.Mutex
	rows []models.Comment
}

func (m *memComments) Create(ctx context.Context, c *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, *c)
	return nil
}

func (m *memComments) ListByComplaint(ctx context.Context, complaintID string, includeInternal bool) ([]models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Comment, 0)
	for _, c := range m.rows {
		if c.ComplaintID != complaintID {
			continue
		}
		if !includeInternal && c.Visibility == models.VisibilityInternal {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

type memNotes struct {
	mu   sync.Mutex
	rows []models.WorkNote
}

func (m *memNotes) Create(ctx context.Context, n *models.WorkNote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, *n)
	return nil
}

func (m *memNotes) ListByComplaint(ctx context.Context, complaintID string) ([]models.WorkNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.WorkNote, 0)
	for _, n := range m.rows {
		if n.ComplaintID == complaintID {
			out = append(out, n)
		}
	}
	return out, nil
}

// memFiles records saved files and returns predictable URLs
type memFiles struct {
	mu    sync.Mutex
	saved map[string][]byte
}

func (m *memFiles) Save(ctx context.Context, prefix string, f storage.File) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	url := fmt.Sprintf("/uploads/%s/%d-%s", prefix, len(m.saved), f.Name)
	m.saved[url] = f.Data
	return url, nil
}

// recordingPublisher captures published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []broadcast.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, ev broadcast.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []broadcast.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]broadcast.EventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

// fixture wires every service over the in-memory stores
type fixture struct {
	complaints *memComplaints
	officers   *memOfficers
	users      *memUsers
	comments   *memComments
	notes      *memNotes
	files      *memFiles
	publisher  *recordingPublisher

	resolver   *service.AssignmentService
	reconciler *service.ReconcileService
	complaint  *service.ComplaintService
	officer    *service.OfficerService
	user       *service.UserService
	auth       *service.AuthService
}

func newFixture() *fixture {
	f := &fixture{
		complaints: newMemComplaints(),
		officers:   &memOfficers{},
		users:      newMemUsers(),
		comments:   &memComments{},
		notes:      &memNotes{},
		files:      &memFiles{},
		publisher:  &recordingPublisher{},
	}
	logger := nullLogger()

	f.resolver = service.NewAssignmentService(f.officers)
	f.reconciler = service.NewReconcileService(f.complaints, f.officers, f.resolver, nil, logger)
	f.complaint = service.NewComplaintService(f.complaints, f.comments, f.notes, f.officers, f.resolver, f.files, f.publisher, nil, logger)
	f.officer = service.NewOfficerService(f.officers, f.reconciler, logger)
	f.user = service.NewUserService(f.users, f.files, logger)
	f.auth = service.NewAuthService(f.users, f.officer, service.AuthSettings{
		Secret:        []byte("test-secret"),
		TokenTTL:      time.Hour,
		AdminUsername: "admin",
		AdminPassword: "admin-pass",
		EmailDomain:   "cmrp.com",
	})
	return f
}

var (
	citizen = models.Principal{ID: "u1", Email: "asha@example.com", Name: "Asha", Role: models.RoleCitizen}
	admin   = models.Principal{ID: "admin", Email: "admin@cmrp.com", Name: "Administrator", Role: models.RoleAdmin}
)

func officerPrincipal(id string) models.Principal {
	return models.Principal{ID: id, Email: id + "@cmrp.com", Name: id, Role: models.RoleOfficer}
}

func newComplaint(pincode string) models.CreateComplaintRequest {
	return models.CreateComplaintRequest{
		Title:       "Streetlight out",
		Description: "The lamp at the corner has been dark for a week",
		Category:    "Electricity",
		Address:     "12 Main Road, Ward 4",
		Pincode:     pincode,
	}
}
