package access

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	rep     = Principal{UserID: "rep-1", Role: RoleRep}
	manager = Principal{UserID: "mgr-1", Role: RoleManager, TeamIDs: []string{"rep-1", "rep-2"}}
	admin   = Principal{UserID: "adm-1", Role: RoleAdmin}
)

// ==========================
// Principal
// ==========================

func TestPrincipal_Validate(t *testing.T) {
	assert.NoError(t, rep.Validate())
	assert.ErrorIs(t, Principal{}.Validate(), ErrNoPrincipal)
	assert.ErrorIs(t, Principal{UserID: "u", Role: "owner"}.Validate(), ErrPermissionDenied)
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Manager ")
	require.NoError(t, err)
	assert.Equal(t, RoleManager, r)

	_, err = ParseRole("")
	assert.Error(t, err)
}

func TestPrincipal_VisibleOwners(t *testing.T) {
	assert.Equal(t, []string{"rep-1"}, rep.VisibleOwners())
	assert.Equal(t, []string{"mgr-1", "rep-1", "rep-2"}, manager.VisibleOwners())
}

// ==========================
// Policy
// ==========================

func TestPolicy_CanView(t *testing.T) {
	var pol Policy
	tests := []struct {
		name  string
		p     Principal
		owner string
		want  bool
	}{
		{"rep own", rep, "rep-1", true},
		{"rep other", rep, "rep-2", false},
		{"manager self", manager, "mgr-1", true},
		{"manager team", manager, "rep-2", true},
		{"manager outside team", manager, "rep-9", false},
		{"admin anyone", admin, "rep-9", true},
		{"no role", Principal{UserID: "x"}, "x", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pol.CanView(tt.p, tt.owner))
			assert.Equal(t, tt.want, pol.CanAssign(tt.p, tt.owner))
		})
	}
}

func TestPolicy_Require(t *testing.T) {
	var pol Policy
	assert.NoError(t, pol.Require(manager, "rep-1"))
	assert.ErrorIs(t, pol.Require(rep, "rep-2"), ErrPermissionDenied)
}

func TestPolicy_Scope(t *testing.T) {
	var pol Policy

	s := pol.Scope(rep, "v.rep_id", 1)
	assert.Equal(t, "v.rep_id = $1", s.Clause)
	assert.Equal(t, []interface{}{"rep-1"}, s.Args)
	assert.Equal(t, 2, s.Next(1))

	s = pol.Scope(manager, "owner_id", 3)
	assert.Equal(t, "owner_id = ANY($3)", s.Clause)
	require.Len(t, s.Args, 1)
	assert.Equal(t, pq.Array([]string{"mgr-1", "rep-1", "rep-2"}), s.Args[0])

	s = pol.Scope(admin, "owner_id", 1)
	assert.True(t, s.All)
	assert.Equal(t, "TRUE", s.Clause)
	assert.Empty(t, s.Args)
	assert.Equal(t, 1, s.Next(1))

	assert.Equal(t, "FALSE", pol.Scope(Principal{UserID: "x"}, "owner_id", 1).Clause)
}

func TestPolicy_Owners(t *testing.T) {
	var pol Policy
	assert.Nil(t, pol.Owners(admin))
	assert.Equal(t, []string{"rep-1"}, pol.Owners(rep))
}
