// internal/matching/retrieval/postgres.go
package retrieval

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"competition-matcher/internal/models"

	"github.com/lib/pq"
)

// PostgresStore implements CandidateStore over the reference schema
// (events + editions). Rows are validated and mapped to CandidateEvent at
// this boundary; nothing downstream touches raw rows.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindEvents(ctx context.Context, q Query) ([]models.CandidateEvent, error) {
	query, args := buildQuery(q)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows, q.Limit)
}

// buildQuery assembles the SQL for one retrieval pass. Filter order is
// stable: date window, department equality, text containment, exclusions.
func buildQuery(q Query) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString(`SELECT e.id, e.name, e.city, e.department, e.tier, ed.id, ed.year, ed.start_date
FROM events e
JOIN editions ed ON ed.event_id = e.id
WHERE ed.start_date >= $1 AND ed.start_date <= $2`)

	args := []interface{}{q.From, q.To}

	if q.Department != "" {
		args = append(args, q.Department)
		fmt.Fprintf(&sb, " AND e.department = $%d", len(args))
	}

	var text []string
	for _, w := range q.NameWords {
		args = append(args, "%"+w+"%")
		text = append(text, fmt.Sprintf("e.name ILIKE $%d", len(args)))
	}
	for _, w := range q.CityWords {
		args = append(args, "%"+w+"%")
		text = append(text, fmt.Sprintf("e.city ILIKE $%d", len(args)))
	}
	if len(text) > 0 {
		sb.WriteString(" AND (" + strings.Join(text, " OR ") + ")")
	}

	if len(q.ExcludeIDs) > 0 {
		args = append(args, pq.Array(q.ExcludeIDs))
		fmt.Fprintf(&sb, " AND NOT (e.id = ANY($%d))", len(args))
	}

	// Row guard only; the event cap is enforced while grouping.
	sb.WriteString(" ORDER BY e.id, ed.year LIMIT 1000")

	return sb.String(), args
}

// scanEvents groups edition rows under their event, preserving row order and
// stopping once limit distinct events were collected.
func scanEvents(rows *sql.Rows, limit int) ([]models.CandidateEvent, error) {
	var out []models.CandidateEvent
	index := make(map[int64]int)

	for rows.Next() {
		var (
			ev        models.CandidateEvent
			city      sql.NullString
			dept      sql.NullString
			tier      sql.NullString
			ed        models.Edition
			startDate sql.NullTime
		)
		if err := rows.Scan(&ev.ID, &ev.Name, &city, &dept, &tier, &ed.ID, &ed.Year, &startDate); err != nil {
			return nil, err
		}
		ev.City = city.String
		ev.Department = dept.String
		ev.Tier = tier.String
		if startDate.Valid {
			t := startDate.Time
			ed.StartDate = &t
		}

		if i, ok := index[ev.ID]; ok {
			out[i].Editions = append(out[i].Editions, ed)
			continue
		}
		if limit > 0 && len(out) >= limit {
			continue
		}
		ev.Editions = []models.Edition{ed}
		index[ev.ID] = len(out)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}
