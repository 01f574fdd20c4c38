package store

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/models"
)

var (
	rep     = access.Principal{UserID: "rep-1", Role: access.RoleRep}
	manager = access.Principal{UserID: "mgr-1", Role: access.RoleManager, TeamIDs: []string{"rep-1", "rep-2"}}
	admin   = access.Principal{UserID: "adm-1", Role: access.RoleAdmin}

	t0 = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func visitRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "client_id", "rep_id", "status", "scheduled_for", "check_in_at", "check_in_lat", "check_in_lng",
		"check_out_at", "check_out_lat", "check_out_lng", "geofence_override", "check_in_distance_m", "notes",
		"calendar_event_id", "created_at",
	})
}

// ==========================
// Visits
// ==========================

func TestInsertVisit_UniqueViolation(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec("INSERT INTO visits").
		WillReturnError(&pq.Error{Code: "23505", Constraint: OneInProgressIndex})

	err := s.InsertVisit(context.Background(), &models.Visit{ID: "v-1", RepID: "rep-1", ClientID: "c-1", Status: models.VisitStatusInProgress})
	assert.ErrorIs(t, err, ErrVisitInProgress)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertVisit_PassesNullableColumns(t *testing.T) {
	s, mock := newMock(t)
	lat, lng, dist := -33.4489, -70.6693, 12.5
	mock.ExpectExec("INSERT INTO visits").
		WithArgs("v-1", "c-1", "rep-1", "in-progress", nil, t0, lat, lng, nil, nil, nil, true, dist, "", "", t0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.InsertVisit(context.Background(), &models.Visit{
		ID: "v-1", ClientID: "c-1", RepID: "rep-1", Status: models.VisitStatusInProgress,
		CheckInAt: &t0, CheckInLat: &lat, CheckInLng: &lng, GeofenceOverride: true, CheckInDistanceM: &dist,
		CreatedAt: t0,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetVisit(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery("FROM visits WHERE id = \\$1").WithArgs("v-1").
		WillReturnRows(visitRow().AddRow("v-1", "c-1", "rep-1", "in-progress", nil, t0, -33.4, -70.6,
			nil, nil, nil, false, 3.2, "", "", t0))
	mock.ExpectQuery("FROM visits WHERE id = \\$1").WithArgs("missing").WillReturnRows(visitRow())

	v, err := s.GetVisit(context.Background(), "v-1")
	require.NoError(t, err)
	assert.Equal(t, "in-progress", v.Status)
	require.NotNil(t, v.CheckInAt)
	assert.Equal(t, t0, *v.CheckInAt)
	assert.Nil(t, v.CheckOutAt)
	assert.InDelta(t, 3.2, *v.CheckInDistanceM, 1e-9)

	_, err = s.GetVisit(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStartScheduledVisit(t *testing.T) {
	s, mock := newMock(t)
	in := CheckIn{At: t0, Latitude: 1, Longitude: 2, Override: true, DistanceMeters: 2500}

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status = 'scheduled'")).
		WithArgs("v-1", t0, 1.0, 2.0, true, 2500.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE visits").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE visits").WillReturnError(&pq.Error{Code: "23505", Constraint: OneInProgressIndex})

	require.NoError(t, s.StartScheduledVisit(context.Background(), "v-1", in))
	assert.ErrorIs(t, s.StartScheduledVisit(context.Background(), "v-2", in), ErrConflict)
	assert.ErrorIs(t, s.StartScheduledVisit(context.Background(), "v-3", in), ErrVisitInProgress)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteAndCancelVisit(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("status = 'completed'")).
		WithArgs("v-1", t0, 1.0, 2.0, "left samples").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'cancelled'")).
		WithArgs("v-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.CompleteVisit(context.Background(), "v-1", CheckOut{At: t0, Latitude: 1, Longitude: 2, Notes: "left samples"}))
	assert.ErrorIs(t, s.CancelVisit(context.Background(), "v-2"), ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListVisits_AppliesScopeBeforeWindow(t *testing.T) {
	s, mock := newMock(t)
	w := Window{From: t0, To: t0.Add(24 * time.Hour)}

	mock.ExpectQuery(regexp.QuoteMeta("WHERE rep_id = $1 AND COALESCE(check_in_at, scheduled_for, created_at) >= $2 AND COALESCE(check_in_at, scheduled_for, created_at) < $3")).
		WithArgs("rep-1", w.From, w.To).
		WillReturnRows(visitRow())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE rep_id = ANY($1)")).
		WithArgs(pq.Array([]string{"mgr-1", "rep-1", "rep-2"}), w.From, w.To).
		WillReturnRows(visitRow())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE TRUE AND COALESCE(check_in_at, scheduled_for, created_at) >= $1")).
		WithArgs(w.From, w.To).
		WillReturnRows(visitRow())

	for _, p := range []access.Principal{rep, manager, admin} {
		_, err := s.ListVisits(context.Background(), p, w)
		require.NoError(t, err)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLastCompletedVisits(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.owner_id = $1 AND v.status = 'completed'")).
		WithArgs("rep-1").
		WillReturnRows(sqlmock.NewRows([]string{"client_id", "max"}).AddRow("c-1", t0))

	got, err := s.LastCompletedVisits(context.Background(), rep)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c-1", got[0].ClientID)
	assert.Equal(t, models.VisitStatusCompleted, got[0].Status)
	assert.Equal(t, t0, *got[0].CheckOutAt)
}

// ==========================
// Clients
// ==========================

func TestClients(t *testing.T) {
	s, mock := newMock(t)
	cols := []string{"id", "name", "address", "zone", "latitude", "longitude", "phone", "email",
		"contact_name", "owner_id", "status", "created_at", "updated_at"}

	mock.ExpectQuery(regexp.QuoteMeta("FROM clients WHERE owner_id = ANY($1) ORDER BY name")).
		WithArgs(pq.Array([]string{"mgr-1", "rep-1", "rep-2"})).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("c-1", "Clinica Dental Sur", "Av. Matta 100", "Centro", -33.45, -70.65, "+56221234567", "", "Dra. Rojas", "rep-1", "active", t0, t0))
	mock.ExpectQuery("FROM clients WHERE id = \\$1").WithArgs("nope").WillReturnRows(sqlmock.NewRows(cols))

	got, err := s.ListClients(context.Background(), manager)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Clinica Dental Sur", got[0].Name)

	_, err = s.GetClient(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Orders
// ==========================

func TestOrders(t *testing.T) {
	s, mock := newMock(t)
	items := []models.OrderItem{{SKU: "GLV-100", Quantity: 2, UnitPrice: 9.5}}
	raw, _ := json.Marshal(items)

	mock.ExpectExec("INSERT INTO orders").
		WithArgs("o-1", "c-1", nil, "rep-1", raw, 19.0, 0.0, 19.0, "approved", nil, nil, t0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM orders WHERE id = \\$1").WithArgs("o-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "client_id", "visit_id", "rep_id", "items", "subtotal",
			"discount_pct", "total", "approval_status", "approved_by", "approved_at", "created_at"}).
			AddRow("o-1", "c-1", "v-1", "rep-1", raw, 19.0, 0.0, 19.0, "pending", nil, nil, t0))
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND approval_status = 'pending'")).
		WithArgs("o-1", "approved", "mgr-1", t0).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.InsertOrder(context.Background(), &models.Order{
		ID: "o-1", ClientID: "c-1", RepID: "rep-1", Items: items, Subtotal: 19, Total: 19,
		ApprovalStatus: models.ApprovalApproved, CreatedAt: t0,
	}))

	o, err := s.GetOrder(context.Background(), "o-1")
	require.NoError(t, err)
	assert.Equal(t, items, o.Items)
	assert.True(t, o.HasVisit())

	assert.ErrorIs(t, s.DecideOrder(context.Background(), "o-1", models.ApprovalApproved, "mgr-1", t0), ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Activity
// ==========================

func TestLoadActivity(t *testing.T) {
	s, mock := newMock(t)
	mock.MatchExpectationsInOrder(false)
	w := Window{From: t0}

	mock.ExpectQuery("FROM visits").WithArgs("rep-1", t0).
		WillReturnRows(visitRow().AddRow("v-1", "c-1", "rep-1", "completed", nil, t0, nil, nil, t0.Add(time.Hour), nil, nil, false, nil, "", "", t0))
	mock.ExpectQuery("FROM orders").WithArgs("rep-1", t0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("FROM call_logs").WithArgs("rep-1", t0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "client_id", "rep_id", "phone", "outcome", "duration_seconds", "notes", "created_at"}).
			AddRow("k-1", "c-2", "rep-1", "+56221234567", "connected", 120, "", t0))
	mock.ExpectQuery("FROM quotations").WithArgs("rep-1", t0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "client_id", "rep_id", "amount", "status", "interaction_type", "notes", "created_at"}))

	a, err := s.LoadActivity(context.Background(), rep, w)
	require.NoError(t, err)
	assert.Len(t, a.Visits, 1)
	assert.Empty(t, a.Orders)
	assert.Len(t, a.Calls, 1)
	assert.Empty(t, a.Quotations)
}

func TestLoadActivity_FirstErrorWins(t *testing.T) {
	s, mock := newMock(t)
	mock.MatchExpectationsInOrder(false)
	boom := errors.New("connection reset")

	mock.ExpectQuery("FROM visits").WillReturnError(boom)
	mock.ExpectQuery("FROM orders").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("FROM call_logs").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("FROM quotations").WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.LoadActivity(context.Background(), rep, Window{From: t0})
	assert.ErrorIs(t, err, boom)
}

// ==========================
// Users
// ==========================

func TestUsers(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery("FROM users WHERE id = \\$1").WithArgs("rep-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "full_name", "role", "manager_id", "phone", "created_at"}).
			AddRow("rep-1", "rep@dentalsupply.cl", "Ana Rep", "rep", "mgr-1", "", t0))
	mock.ExpectQuery("FROM users WHERE manager_id = \\$1").WithArgs("mgr-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("rep-1").AddRow("rep-2"))
	mock.ExpectExec("ON CONFLICT \\(id\\) DO NOTHING").WillReturnResult(sqlmock.NewResult(0, 0))

	u, err := s.GetUser(context.Background(), "rep-1")
	require.NoError(t, err)
	assert.Equal(t, "mgr-1", *u.ManagerID)

	team, err := s.TeamMemberIDs(context.Background(), "mgr-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"rep-1", "rep-2"}, team)

	require.NoError(t, s.EnsureUser(context.Background(), &models.User{ID: "rep-3", Role: "rep", CreatedAt: t0}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Migrations
// ==========================

func TestMigrations_Embedded(t *testing.T) {
	ms, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, ms)
	assert.Equal(t, "001_init", ms[0].Version)
	assert.Contains(t, ms[0].SQL, "CREATE UNIQUE INDEX IF NOT EXISTS visits_one_in_progress")
	assert.Contains(t, ms[0].SQL, "WHERE status = 'in-progress'")
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").WithArgs("001_init").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO schema_migrations").WithArgs("001_init").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	applied, err := Migrate(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_init"}, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}
