package service

import (
	"context"
	"strings"

	"cmrp/models"
)

// AssignmentService routes complaints to officers by pincode.
//
// When several active officers list the same pincode, whichever row the registry
// returns first wins. No ordering is imposed on purpose: coverage overlap carries
// no priority rule.
type AssignmentService struct {
	officers OfficerDirectory
}

// NewAssignmentService creates a new assignment service
func NewAssignmentService(officers OfficerDirectory) *AssignmentService {
	return &AssignmentService{officers: officers}
}

// Resolve returns an active officer covering pincode. A blank pincode is never routed.
func (s *AssignmentService) Resolve(ctx context.Context, pincode string) (string, bool, error) {
	pincode = strings.TrimSpace(pincode)
	if pincode == "" {
		return "", false, nil
	}
	return s.officers.FindActiveByPincode(ctx, pincode)
}

// InitialAssignment derives assigned_to and status for a complaint with pincode:
// PENDING with an officer, or NO_OFFICER with none.
func (s *AssignmentService) InitialAssignment(ctx context.Context, pincode string) (*string, models.ComplaintStatus, error) {
	officerID, found, err := s.Resolve(ctx, pincode)
	if err != nil {
		return nil, "", err
	}
	if !found {
		return nil, models.StatusNoOfficer, nil
	}
	return &officerID, models.StatusPending, nil
}
