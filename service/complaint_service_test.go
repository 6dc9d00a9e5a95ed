package service_test

import (
	"context"
	"regexp"
	"testing"

	"cmrp/broadcast"
	"cmrp/models"
	"cmrp/storage"
	"cmrp/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveBlankPincodeSkipsRegistry(t *testing.T) {
	f := newFixture()

	id, found, err := f.resolver.Resolve(context.Background(), "   ")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, id)
	assert.Equal(t, 0, f.officers.lookups)
}

func TestResolveIgnoresInactiveOfficers(t *testing.T) {
	f := newFixture()
	f.officers.add(models.Officer{ID: "retired", Pincodes: []string{"534101"}, IsActive: false})

	_, found, err := f.resolver.Resolve(context.Background(), "534101")
	require.NoError(t, err)
	assert.False(t, found)

	f.officers.add(models.Officer{ID: "o1", Pincodes: []string{"534101"}, IsActive: true})
	id, found, err := f.resolver.Resolve(context.Background(), "534101")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "o1", id)
}

func TestSubmitRoutesByPincode(t *testing.T) {
	f := newFixture()
	f.officers.add(models.Officer{ID: "o1", Username: "ravi", Pincodes: []string{"534101"}, IsActive: true})
	ctx := context.Background()

	covered, err := f.complaint.Submit(ctx, citizen, newComplaint("534101"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, covered.Status)
	require.NotNil(t, covered.AssignedTo)
	assert.Equal(t, "o1", *covered.AssignedTo)

	uncovered, err := f.complaint.Submit(ctx, citizen, newComplaint("999999"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusNoOfficer, uncovered.Status)
	assert.Nil(t, uncovered.AssignedTo)

	noPincode, err := f.complaint.Submit(ctx, citizen, newComplaint(""))
	require.NoError(t, err)
	assert.Equal(t, models.StatusNoOfficer, noPincode.Status)

	assert.Equal(t, "u1", covered.UserID)
	assert.Equal(t, "asha@example.com", covered.UserEmail)
	assert.Equal(t, models.PriorityMedium, covered.Priority)
	assert.Equal(t,
		[]broadcast.EventType{broadcast.EventNewComplaint, broadcast.EventNewComplaint, broadcast.EventNewComplaint},
		f.publisher.types())
}

func TestSubmitRejectsNonCitizens(t *testing.T) {
	f := newFixture()

	_, err := f.complaint.Submit(context.Background(), officerPrincipal("o1"), newComplaint("534101"))
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = f.complaint.Submit(context.Background(), admin, newComplaint("534101"))
	assert.ErrorIs(t, err, models.ErrForbidden)
	assert.Empty(t, f.publisher.types())
}

func TestSubmitValidatesRequiredFields(t *testing.T) {
	f := newFixture()
	req := newComplaint("534101")
	req.Title = "  "

	_, err := f.complaint.Submit(context.Background(), citizen, req)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestSubmitPublicIDsAreUnique(t *testing.T) {
	f := newFixture()
	format := regexp.MustCompile(`^CMP-\d{4}-\d{6}$`)

	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		c, err := f.complaint.Submit(context.Background(), citizen, newComplaint("999999"))
		require.NoError(t, err)
		require.False(t, seen[c.PublicID], "duplicate public id %s", c.PublicID)
		seen[c.PublicID] = true
		assert.Regexp(t, format, c.PublicID)
	}
}

func TestSubmitFallsBackAfterCollisions(t *testing.T) {
	f := newFixture()
	f.complaints.publicIDTaken = true

	c, err := f.complaint.Submit(context.Background(), citizen, newComplaint("999999"))
	require.NoError(t, err)
	assert.Regexp(t, `^CMP-\d{4}-[0-9A-F]{6}$`, c.PublicID)
}

func TestOfficerUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("not assigned is not found", func(t *testing.T) {
		f := newFixture()
		c := f.complaints.seed(models.Complaint{Status: models.StatusPending, AssignedTo: strPtr("o1")})

		_, err := f.complaint.OfficerUpdate(ctx, "o2", c.ID, models.OfficerUpdateRequest{Status: strPtr("IN_PROGRESS")})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("pending to in progress", func(t *testing.T) {
		f := newFixture()
		c := f.complaints.seed(models.Complaint{Status: models.StatusPending, AssignedTo: strPtr("o1")})

		got, err := f.complaint.OfficerUpdate(ctx, "o1", c.ID, models.OfficerUpdateRequest{Status: strPtr("in_progress")})
		require.NoError(t, err)
		assert.Equal(t, models.StatusInProgress, got.Status)
		assert.Empty(t, f.publisher.types())
	})

	t.Run("disallowed status is ignored", func(t *testing.T) {
		f := newFixture()
		c := f.complaints.seed(models.Complaint{Status: models.StatusInProgress, AssignedTo: strPtr("o1")})

		got, err := f.complaint.OfficerUpdate(ctx, "o1", c.ID, models.OfficerUpdateRequest{
			Status:        strPtr("NO_OFFICER"),
			AdminComments: strPtr("waiting on parts"),
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusInProgress, got.Status)
		require.NotNil(t, got.AdminComments)
		assert.Equal(t, "waiting on parts", *got.AdminComments)
	})

	t.Run("empty patch is invalid", func(t *testing.T) {
		f := newFixture()
		c := f.complaints.seed(models.Complaint{Status: models.StatusPending, AssignedTo: strPtr("o1")})

		_, err := f.complaint.OfficerUpdate(ctx, "o1", c.ID, models.OfficerUpdateRequest{Status: strPtr("bogus")})
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	})

	t.Run("resolved cannot reopen", func(t *testing.T) {
		f := newFixture()
		c := f.complaints.seed(models.Complaint{Status: models.StatusResolved, AssignedTo: strPtr("o1")})

		_, err := f.complaint.OfficerUpdate(ctx, "o1", c.ID, models.OfficerUpdateRequest{Status: strPtr("IN_PROGRESS")})
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
		assert.Equal(t, models.StatusResolved, f.complaints.get(c.ID).Status)
	})
}

func TestAdminUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("requires admin", func(t *testing.T) {
		f := newFixture()
		c := f.complaints.seed(models.Complaint{Status: models.StatusNoOfficer})

		_, err := f.complaint.AdminUpdate(ctx, citizen, c.ID, models.AdminUpdateRequest{Status: strPtr("RESOLVED")})
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("missing complaint", func(t *testing.T) {
		f := newFixture()
		_, err := f.complaint.AdminUpdate(ctx, admin, "nope", models.AdminUpdateRequest{Status: strPtr("RESOLVED")})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("assigning lifts no officer to pending", func(t *testing.T) {
		f := newFixture()
		f.officers.add(models.Officer{ID: "o1", IsActive: true})
		c := f.complaints.seed(models.Complaint{Status: models.StatusNoOfficer})

		got, err := f.complaint.AdminUpdate(ctx, admin, c.ID, models.AdminUpdateRequest{AssignedTo: strPtr("o1")})
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, got.Status)
		require.NotNil(t, got.AssignedTo)
		assert.Equal(t, "o1", *got.AssignedTo)
	})

	t.Run("no officer status clears assignment", func(t *testing.T) {
		f := newFixture()
		c := f.complaints.seed(models.Complaint{Status: models.StatusPending, AssignedTo: strPtr("o1")})

		got, err := f.complaint.AdminUpdate(ctx, admin, c.ID, models.AdminUpdateRequest{Status: strPtr("NO_OFFICER")})
		require.NoError(t, err)
		assert.Equal(t, models.StatusNoOfficer, got.Status)
		assert.Nil(t, got.AssignedTo)
	})

	t.Run("clearing assignment drops to no officer", func(t *testing.T) {
		f := newFixture()
		c := f.complaints.seed(models.Complaint{Status: models.StatusInProgress, AssignedTo: strPtr("o1")})

		got, err := f.complaint.AdminUpdate(ctx, admin, c.ID, models.AdminUpdateRequest{AssignedTo: strPtr("")})
		require.NoError(t, err)
		assert.Equal(t, models.StatusNoOfficer, got.Status)
		assert.Nil(t, got.AssignedTo)
	})

	t.Run("any transition for admin", func(t *testing.T) {
		f := newFixture()
		c := f.complaints.seed(models.Complaint{Status: models.StatusResolved, AssignedTo: strPtr("o1")})

		got, err := f.complaint.AdminUpdate(ctx, admin, c.ID, models.AdminUpdateRequest{Status: strPtr("PENDING")})
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, got.Status)
	})

	t.Run("unknown officer", func(t *testing.T) {
		f := newFixture()
		c := f.complaints.seed(models.Complaint{Status: models.StatusNoOfficer})

		_, err := f.complaint.AdminUpdate(ctx, admin, c.ID, models.AdminUpdateRequest{AssignedTo: strPtr("ghost")})
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	})

	t.Run("invalid status and empty patch", func(t *testing.T) {
		f := newFixture()
		c := f.complaints.seed(models.Complaint{Status: models.StatusNoOfficer})

		_, err := f.complaint.AdminUpdate(ctx, admin, c.ID, models.AdminUpdateRequest{Status: strPtr("archived")})
		assert.ErrorIs(t, err, models.ErrInvalidArgument)

		_, err = f.complaint.AdminUpdate(ctx, admin, c.ID, models.AdminUpdateRequest{})
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	})
}

func TestUpdatesAreNotBroadcast(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.officers.add(models.Officer{ID: "o1", IsActive: true})

	c, err := f.complaint.Submit(ctx, citizen, newComplaint("999999"))
	require.NoError(t, err)
	require.Equal(t, []broadcast.EventType{broadcast.EventNewComplaint}, f.publisher.types())

	_, err = f.complaint.AdminUpdate(ctx, admin, c.ID, models.AdminUpdateRequest{
		AssignedTo:    strPtr("o1"),
		AdminComments: strPtr("suspect fraud, internal only"),
	})
	require.NoError(t, err)
	_, err = f.complaint.OfficerUpdate(ctx, "o1", c.ID, models.OfficerUpdateRequest{
		Status:        strPtr("IN_PROGRESS"),
		AdminComments: strPtr("suspect fraud, internal only"),
	})
	require.NoError(t, err)

	assert.Equal(t, []broadcast.EventType{broadcast.EventNewComplaint}, f.publisher.types())
	f.publisher.mu.Lock()
	defer f.publisher.mu.Unlock()
	for _, ev := range f.publisher.events {
		assert.Nil(t, ev.Complaint.AdminComments)
	}
}

func TestInternalCommentsHiddenFromCitizens(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	c := f.complaints.seed(models.Complaint{Status: models.StatusPending, AssignedTo: strPtr("o1"), UserID: citizen.ID})

	_, err := f.complaint.AddComment(ctx, citizen, c.ID, models.CommentRequest{Message: "Any update?"})
	require.NoError(t, err)
	internal, err := f.complaint.AddComment(ctx, officerPrincipal("o1"), c.ID, models.CommentRequest{Message: "Needs a crane", Visibility: "internal"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleOfficer, internal.AuthorRole)

	forCitizen, err := f.complaint.ListComments(ctx, citizen, c.ID)
	require.NoError(t, err)
	require.Len(t, forCitizen, 1)
	assert.Equal(t, models.VisibilityPublic, forCitizen[0].Visibility)

	forOfficer, err := f.complaint.ListComments(ctx, officerPrincipal("o1"), c.ID)
	require.NoError(t, err)
	assert.Len(t, forOfficer, 2)

	forAdmin, err := f.complaint.ListComments(ctx, admin, c.ID)
	require.NoError(t, err)
	assert.Len(t, forAdmin, 2)
}

func TestAddCommentValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	c := f.complaints.seed(models.Complaint{Status: models.StatusNoOfficer})

	_, err := f.complaint.AddComment(ctx, citizen, c.ID, models.CommentRequest{Message: " "})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	_, err = f.complaint.AddComment(ctx, citizen, c.ID, models.CommentRequest{Message: "hi", Visibility: "secret"})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	_, err = f.complaint.AddComment(ctx, citizen, "missing", models.CommentRequest{Message: "hi"})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAddWorkNoteStoresPhotoHash(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	c := f.complaints.seed(models.Complaint{Status: models.StatusInProgress, AssignedTo: strPtr("o1")})

	photo := &storage.File{Name: "site.jpg", ContentType: "image/jpeg", Data: []byte("abc")}
	n, err := f.complaint.AddWorkNote(ctx, "o1", c.ID, "Replaced the bulb", photo)
	require.NoError(t, err)
	require.NotNil(t, n.PhotoURL)
	require.NotNil(t, n.PhotoSHA256)
	assert.Equal(t, utils.PhotoSHA256([]byte("abc")), *n.PhotoSHA256)
	assert.Equal(t, []byte("abc"), f.files.saved[*n.PhotoURL])

	_, err = f.complaint.AddWorkNote(ctx, "o2", c.ID, "not mine", nil)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.complaint.AddWorkNote(ctx, "o1", c.ID, "", nil)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	notes, err := f.complaint.ListWorkNotes(ctx, admin, c.ID)
	require.NoError(t, err)
	assert.Len(t, notes, 1)

	_, err = f.complaint.ListWorkNotes(ctx, citizen, c.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	got, err := f.complaint.Get(ctx, officerPrincipal("o1"), c.ID)
	require.NoError(t, err)
	assert.Len(t, got.WorkNotes, 1)
}

func TestAttachImageOwnerOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	c := f.complaints.seed(models.Complaint{Status: models.StatusNoOfficer, UserID: citizen.ID})

	stranger := models.Principal{ID: "u2", Role: models.RoleCitizen}
	_, err := f.complaint.AttachImage(ctx, stranger, c.ID, storage.File{Name: "a.jpg", Data: []byte("x")})
	assert.ErrorIs(t, err, models.ErrNotFound)

	got, err := f.complaint.AttachImage(ctx, citizen, c.ID, storage.File{Name: "a.jpg", Data: []byte("x")})
	require.NoError(t, err)
	require.NotNil(t, got.ImageURL)
	assert.Equal(t, *got.ImageURL, *f.complaints.get(c.ID).ImageURL)
}

func TestListMineByRole(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.complaints.seed(models.Complaint{Status: models.StatusPending, AssignedTo: strPtr("o1"), UserID: citizen.ID})
	f.complaints.seed(models.Complaint{Status: models.StatusInProgress, AssignedTo: strPtr("o1"), UserID: "u9"})
	f.complaints.seed(models.Complaint{Status: models.StatusNoOfficer, UserID: citizen.ID})

	mine, err := f.complaint.ListMine(ctx, citizen, nil)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	assert.True(t, mine[0].CreatedAt.After(mine[1].CreatedAt))

	assigned, err := f.complaint.ListMine(ctx, officerPrincipal("o1"), nil)
	require.NoError(t, err)
	assert.Len(t, assigned, 2)

	inProgress := models.StatusInProgress
	filtered, err := f.complaint.ListMine(ctx, officerPrincipal("o1"), &inProgress)
	require.NoError(t, err)
	assert.Len(t, filtered, 1)

	_, err = f.complaint.ListMine(ctx, admin, nil)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = f.complaint.ListAll(ctx, citizen, models.ComplaintFilter{})
	assert.ErrorIs(t, err, models.ErrForbidden)

	all, err := f.complaint.ListAll(ctx, admin, models.ComplaintFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestGetPublicWhitelistsFields(t *testing.T) {
	f := newFixture()
	f.complaints.seed(models.Complaint{
		PublicID:  "CMP-2024-123456",
		Status:    models.StatusPending,
		Category:  "Roads",
		Address:   "Ward 4",
		UserEmail: "asha@example.com",
	})

	pub, err := f.complaint.GetPublic(context.Background(), "CMP-2024-123456")
	require.NoError(t, err)
	assert.Equal(t, "Ward 4", pub.Location)
	assert.Equal(t, models.StatusPending, pub.Status)

	_, err = f.complaint.GetPublic(context.Background(), "CMP-2024-000000")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
