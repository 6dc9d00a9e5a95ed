package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role tags a principal. Only citizen, officer and admin can be parsed;
// RoleSystem is used internally by reconciliation.
type Role string

const (
	RoleCitizen Role = "citizen"
	RoleOfficer Role = "officer"
	RoleAdmin   Role = "admin"
	RoleSystem  Role = "system"
)

// ParseRole normalizes a role tag case-insensitively.
func ParseRole(raw string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(raw))); r {
	case RoleCitizen, RoleOfficer, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrInvalidArgument, raw)
}

// UnmarshalJSON normalizes on ingestion.
func (r *Role) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseRole(raw)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Scan implements sql.Scanner.
func (r *Role) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		return r.scanString(v)
	case []byte:
		return r.scanString(string(v))
	}
	return fmt.Errorf("unsupported role type %T", src)
}

func (r *Role) scanString(v string) error {
	parsed, err := ParseRole(v)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Principal is the authenticated caller of a request.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// SystemPrincipal acts for background reconciliation.
var SystemPrincipal = Principal{ID: "system", Name: "system", Role: RoleSystem}
