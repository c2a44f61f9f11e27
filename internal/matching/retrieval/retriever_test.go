// internal/matching/retrieval/retriever_test.go
package retrieval

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	apperrors "competition-matcher/internal/common/errors"
	"competition-matcher/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	return db, mock
}

func newTestRetriever(db *sql.DB, t *testing.T) *Retriever {
	return NewRetriever(NewPostgresStore(db), 2*time.Second, logger.NewTestLogger(t))
}

var eventColumns = []string{"id", "name", "city", "department", "tier", "edition_id", "year", "start_date"}

func eventRows(n int) *sqlmock.Rows {
	rows := sqlmock.NewRows(eventColumns)
	for i := 1; i <= n; i++ {
		rows.AddRow(int64(i), fmt.Sprintf("Trail des Loups %d", i), "Redon", "35", "departmental",
			int64(100+i), 2025, time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC))
	}
	return rows
}

var testDate = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

// ==========================
// Pass Escalation
// ==========================

func TestFindCandidates_RestrictivePassSufficient(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery("SELECT e.id").
		WillReturnRows(eventRows(12))

	r := newTestRetriever(db, t)
	events, err := r.FindCandidates(context.Background(), "Trail des Loups", "Redon", "35", testDate)

	require.NoError(t, err)
	assert.Len(t, events, 12)
	// The widened pass must not have run.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindCandidates_WidenedPassExcludesSeenIDs(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery("SELECT e.id").
		WillReturnRows(eventRows(2))
	mock.ExpectQuery(`NOT \(e\.id = ANY`).
		WillReturnRows(sqlmock.NewRows(eventColumns).
			AddRow(int64(50), "Foulées de Redon", "Redon", "44", "regional",
				int64(150), 2025, time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)))

	r := newTestRetriever(db, t)
	events, err := r.FindCandidates(context.Background(), "Trail des Loups", "Redon", "35", testDate)

	require.NoError(t, err)
	assert.Len(t, events, 3)
	assert.Equal(t, int64(50), events[2].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindCandidates_EmptyDepartmentDegradesToNameOnly(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	// Without a department there is no equality arg: window bounds then the
	// two name words only.
	mock.ExpectQuery("SELECT e.id").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "%trail%", "%loups%").
		WillReturnRows(eventRows(10))

	r := newTestRetriever(db, t)
	events, err := r.FindCandidates(context.Background(), "Trail des Loups", "", "", testDate)

	require.NoError(t, err)
	assert.Len(t, events, 10)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Failure Taxonomy
// ==========================

func TestFindCandidates_StoreErrorIsTyped(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery("SELECT e.id").
		WillReturnError(fmt.Errorf("connection refused"))

	r := newTestRetriever(db, t)
	events, err := r.FindCandidates(context.Background(), "Trail des Loups", "Redon", "35", testDate)

	require.Error(t, err)
	assert.Nil(t, events)
	assert.True(t, apperrors.IsRetrievalFailure(err))
	stdErr := err.(*apperrors.StandardError)
	assert.Equal(t, apperrors.ErrCodeRetrievalFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

func TestFindCandidates_TimeoutIsTyped(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery("SELECT e.id").
		WillReturnError(context.DeadlineExceeded)

	r := newTestRetriever(db, t)
	_, err := r.FindCandidates(context.Background(), "Trail des Loups", "Redon", "35", testDate)

	require.Error(t, err)
	stdErr := err.(*apperrors.StandardError)
	assert.Equal(t, apperrors.ErrCodeRetrievalTimeout, stdErr.Code)
	assert.True(t, apperrors.IsRetrievalFailure(err))
}

// ==========================
// Postgres Store
// ==========================

func TestBuildQuery(t *testing.T) {
	q := Query{
		NameWords:  []string{"trail", "loups"},
		CityWords:  []string{"redon"},
		Department: "35",
		From:       testDate.AddDate(0, 0, -WindowDays),
		To:         testDate.AddDate(0, 0, WindowDays),
		ExcludeIDs: []int64{1, 2},
		Limit:      50,
	}

	sqlStr, args := buildQuery(q)

	assert.Contains(t, sqlStr, "e.department = $3")
	assert.Contains(t, sqlStr, "e.name ILIKE $4")
	assert.Contains(t, sqlStr, "e.name ILIKE $5")
	assert.Contains(t, sqlStr, "e.city ILIKE $6")
	assert.Contains(t, sqlStr, "NOT (e.id = ANY($7))")
	assert.Len(t, args, 7)
}

func TestPostgresStore_GroupsEditionsPerEvent(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	rows := sqlmock.NewRows(eventColumns).
		AddRow(int64(7), "Marathon de Vannes", "Vannes", "56", "regional",
			int64(70), 2024, time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC)).
		AddRow(int64(7), "Marathon de Vannes", "Vannes", "56", "regional",
			int64(71), 2025, time.Date(2025, 5, 11, 0, 0, 0, 0, time.UTC)).
		AddRow(int64(9), "Semi de Vannes", "Vannes", "56", nil,
			int64(90), 2025, nil)

	mock.ExpectQuery("SELECT e.id").WillReturnRows(rows)

	store := NewPostgresStore(db)
	events, err := store.FindEvents(context.Background(), Query{From: testDate, To: testDate, Limit: 10})

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Len(t, events[0].Editions, 2)
	assert.Equal(t, 2025, events[0].Editions[1].Year)
	assert.Empty(t, events[1].Tier)
	assert.Nil(t, events[1].Editions[0].StartDate)
}

func TestPostgresStore_EnforcesEventLimit(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery("SELECT e.id").WillReturnRows(eventRows(5))

	store := NewPostgresStore(db)
	events, err := store.FindEvents(context.Background(), Query{From: testDate, To: testDate, Limit: 3})

	require.NoError(t, err)
	assert.Len(t, events, 3)
}
