package access

import (
	"fmt"

	"github.com/lib/pq"
)

// Policy is the authorization predicate. Admins see everything, managers see
// themselves and their team, reps see only their own rows.
type Policy struct{}

func (Policy) CanView(p Principal, ownerID string) bool {
	switch p.Role {
	case RoleAdmin:
		return true
	case RoleManager:
		return ownerID == p.UserID || p.Supervises(ownerID)
	case RoleRep:
		return ownerID == p.UserID
	}
	return false
}

// CanAssign applies the read rule to writes made on behalf of assigneeID.
func (pol Policy) CanAssign(p Principal, assigneeID string) bool {
	return pol.CanView(p, assigneeID)
}

// Require returns ErrPermissionDenied when ownerID is outside p's view.
func (pol Policy) Require(p Principal, ownerID string) error {
	if !pol.CanView(p, ownerID) {
		return fmt.Errorf("%w: %s may not access records of %s", ErrPermissionDenied, p.UserID, ownerID)
	}
	return nil
}

// Scope is the predicate rendered as a SQL condition on an owner column.
// Clause uses positional placeholders starting at the nextArg given to
// Policy.Scope; Args holds their values.
type Scope struct {
	Clause string
	Args   []interface{}
	All    bool
}

// Scope renders the predicate for column. Placeholders start at nextArg.
func (Policy) Scope(p Principal, column string, nextArg int) Scope {
	switch p.Role {
	case RoleAdmin:
		return Scope{Clause: "TRUE", All: true}
	case RoleManager:
		return Scope{
			Clause: fmt.Sprintf("%s = ANY($%d)", column, nextArg),
			Args:   []interface{}{pq.Array(p.VisibleOwners())},
		}
	case RoleRep:
		return Scope{
			Clause: fmt.Sprintf("%s = $%d", column, nextArg),
			Args:   []interface{}{p.UserID},
		}
	}
	return Scope{Clause: "FALSE"}
}

// Next is the first placeholder index after the scope's own arguments.
func (s Scope) Next(start int) int {
	return start + len(s.Args)
}

// Owners lists the owner ids the scope admits, or nil for an unrestricted scope.
func (Policy) Owners(p Principal) []string {
	if p.Role == RoleAdmin {
		return nil
	}
	return p.VisibleOwners()
}
