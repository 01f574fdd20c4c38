// Package access carries the caller's identity through every operation and
// holds the one predicate that decides what that caller may see or assign.
package access

import (
	"errors"
	"fmt"
	"strings"
)

type Role string

const (
	RoleRep     Role = "rep"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

var (
	ErrNoPrincipal      = errors.New("SESSION_EXPIRED")
	ErrPermissionDenied = errors.New("PERMISSION_DENIED")
)

// Principal is the resolved session of the user a job runs on behalf of.
// TeamIDs lists the reps reporting to a manager.
type Principal struct {
	UserID      string   `json:"userId"`
	Email       string   `json:"email,omitempty"`
	DisplayName string   `json:"displayName,omitempty"`
	Role        Role     `json:"role"`
	TeamIDs     []string `json:"teamIds,omitempty"`
}

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleRep, RoleManager, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Validate rejects an empty principal, which means the process did not run
// session-resolve first or the session was lost.
func (p Principal) Validate() error {
	if strings.TrimSpace(p.UserID) == "" {
		return fmt.Errorf("%w: principal missing", ErrNoPrincipal)
	}
	if _, err := ParseRole(string(p.Role)); err != nil {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	return nil
}

func (p Principal) IsAdmin() bool   { return p.Role == RoleAdmin }
func (p Principal) IsManager() bool { return p.Role == RoleManager }

// Supervises reports whether userID is on the principal's team.
func (p Principal) Supervises(userID string) bool {
	for _, id := range p.TeamIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// VisibleOwners is the owner set a non-admin principal can read.
func (p Principal) VisibleOwners() []string {
	owners := []string{p.UserID}
	if p.Role == RoleManager {
		for _, id := range p.TeamIDs {
			if id != p.UserID {
				owners = append(owners, id)
			}
		}
	}
	return owners
}
