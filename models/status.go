package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// ComplaintStatus is the lifecycle state of a complaint.
type ComplaintStatus string

const (
	StatusNoOfficer  ComplaintStatus = "NO_OFFICER"
	StatusPending    ComplaintStatus = "PENDING"
	StatusInProgress ComplaintStatus = "IN_PROGRESS"
	StatusResolved   ComplaintStatus = "RESOLVED"
)

// AllStatuses lists the canonical statuses in lifecycle order.
var AllStatuses = []ComplaintStatus{StatusNoOfficer, StatusPending, StatusInProgress, StatusResolved}

// legacyStatuses maps every spelling found in older rows to its canonical status.
var legacyStatuses = map[string]ComplaintStatus{
	"no_officer":  StatusNoOfficer,
	"open":        StatusPending,
	"pending":     StatusPending,
	"in_progress": StatusInProgress,
	"resolved":    StatusResolved,
	"closed":      StatusResolved,
}

// ParseStatus decodes a status case-insensitively, accepting legacy spellings.
func ParseStatus(raw string) (ComplaintStatus, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if s, ok := legacyStatuses[key]; ok {
		return s, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, raw)
}

// IsValid reports whether s is one of the canonical statuses.
func (s ComplaintStatus) IsValid() bool {
	switch s {
	case StatusNoOfficer, StatusPending, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// storedSpellings lists every value a row may hold per canonical status, canonical first.
var storedSpellings = map[ComplaintStatus][]string{
	StatusNoOfficer:  {"NO_OFFICER", "no_officer"},
	StatusPending:    {"PENDING", "pending", "open"},
	StatusInProgress: {"IN_PROGRESS", "in_progress"},
	StatusResolved:   {"RESOLVED", "resolved", "closed"},
}

// StoredSpellings returns every value a row may hold for s, canonical first.
// Queries selecting by status use this so legacy rows are not missed.
func (s ComplaintStatus) StoredSpellings() []string {
	return append([]string(nil), storedSpellings[s]...)
}

// SpellingsOf concatenates StoredSpellings for each status.
func SpellingsOf(statuses ...ComplaintStatus) []string {
	var out []string
	for _, s := range statuses {
		out = append(out, storedSpellings[s]...)
	}
	return out
}

// UnmarshalJSON accepts canonical and legacy spellings. An empty string decodes to the
// zero value so a record marshalled without a status still round-trips.
func (s *ComplaintStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*s = ""
		return nil
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Scan implements sql.Scanner so legacy rows decode to canonical values.
func (s *ComplaintStatus) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case nil:
		*s = StatusNoOfficer
		return nil
	default:
		return fmt.Errorf("unsupported status type %T", src)
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value implements driver.Valuer; writes are always canonical.
func (s ComplaintStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// CanTransition reports whether role may move a complaint from one status to another.
//
//	NO_OFFICER  -> PENDING      system
//	PENDING     -> IN_PROGRESS  officer, admin
//	IN_PROGRESS -> RESOLVED     officer, admin
//	any         -> any          admin
//
// Same-state writes are always allowed.
func CanTransition(from, to ComplaintStatus, role Role) bool {
	if !to.IsValid() {
		return false
	}
	if from == to {
		return true
	}
	switch role {
	case RoleAdmin:
		return true
	case RoleSystem:
		return from == StatusNoOfficer && to == StatusPending
	case RoleOfficer:
		return (from == StatusPending && to == StatusInProgress) ||
			(from == StatusInProgress && to == StatusResolved)
	}
	return false
}
