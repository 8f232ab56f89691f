package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/gesin-frd/srat-assistant-go/internal/metrics"
)

// Affiliation is one teaching assignment tied to a legajo.
type Affiliation struct {
	Subject string
	Program string
}

// User is one row of the users table.
type User struct {
	Legajo string
	Name   string
	Email  string
}

// Repository provides read and seed access to the records store.
// Lookups for the same legajo are collapsed through singleflight so a
// burst of identical guard activations hits SQLite once.
type Repository struct {
	db      *DB
	group   singleflight.Group
	metrics *metrics.Metrics
}

// NewRepository creates a repository over an open database.
func NewRepository(db *DB, m *metrics.Metrics) *Repository {
	return &Repository{db: db, metrics: m}
}

// LookupAffiliations returns the subjects and programs assigned to a
// legajo, ordered by subject. An unknown legajo yields an empty slice,
// not an error.
func (r *Repository) LookupAffiliations(ctx context.Context, legajo string) ([]Affiliation, error) {
	v, err, shared := r.group.Do("aff:"+legajo, func() (any, error) {
		return r.queryAffiliations(ctx, legajo)
	})
	if shared && r.metrics != nil {
		r.metrics.RecordSingleflightDedup("affiliations")
	}
	if err != nil {
		r.recordLookup("affiliations", "error")
		return nil, err
	}

	affiliations := v.([]Affiliation)
	if len(affiliations) == 0 {
		r.recordLookup("affiliations", "miss")
	} else {
		r.recordLookup("affiliations", "hit")
	}
	return affiliations, nil
}

func (r *Repository) queryAffiliations(ctx context.Context, legajo string) ([]Affiliation, error) {
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT subject, program
		FROM assignments
		WHERE legajo = ?
		ORDER BY subject, program`, legajo)
	if err != nil {
		return nil, fmt.Errorf("querying assignments: %w", err)
	}
	defer rows.Close()

	affiliations := []Affiliation{}
	for rows.Next() {
		var a Affiliation
		if err := rows.Scan(&a.Subject, &a.Program); err != nil {
			return nil, fmt.Errorf("scanning assignment: %w", err)
		}
		affiliations = append(affiliations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assignments: %w", err)
	}
	return affiliations, nil
}

// LookupEmail returns the institutional email for a legajo, or empty
// if the legajo is unknown or has no address on file.
func (r *Repository) LookupEmail(ctx context.Context, legajo string) (string, error) {
	v, err, shared := r.group.Do("email:"+legajo, func() (any, error) {
		var email string
		err := r.db.conn.QueryRowContext(ctx,
			`SELECT email FROM users WHERE legajo = ?`, legajo).Scan(&email)
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		if err != nil {
			return "", fmt.Errorf("querying email: %w", err)
		}
		return email, nil
	})
	if shared && r.metrics != nil {
		r.metrics.RecordSingleflightDedup("email")
	}
	if err != nil {
		r.recordLookup("email", "error")
		return "", err
	}

	email := v.(string)
	if email == "" {
		r.recordLookup("email", "miss")
	} else {
		r.recordLookup("email", "hit")
	}
	return email, nil
}

// SaveUser inserts or replaces a user row. Used by cmd/seed and tests.
func (r *Repository) SaveUser(ctx context.Context, u User) error {
	_, err := r.db.conn.ExecContext(ctx, `
		INSERT INTO users (legajo, name, email) VALUES (?, ?, ?)
		ON CONFLICT(legajo) DO UPDATE SET name = excluded.name, email = excluded.email`,
		u.Legajo, u.Name, u.Email)
	if err != nil {
		return fmt.Errorf("saving user %s: %w", u.Legajo, err)
	}
	return nil
}

// SaveAssignmentsBatch replaces all assignments for a legajo in one
// transaction. Used by cmd/seed and tests.
func (r *Repository) SaveAssignmentsBatch(ctx context.Context, legajo string, affiliations []Affiliation) error {
	tx, err := r.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM assignments WHERE legajo = ?`, legajo); err != nil {
		return fmt.Errorf("clearing assignments for %s: %w", legajo, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO assignments (legajo, subject, program) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range affiliations {
		if _, err := stmt.ExecContext(ctx, legajo, a.Subject, a.Program); err != nil {
			return fmt.Errorf("inserting assignment for %s: %w", legajo, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing assignments for %s: %w", legajo, err)
	}
	return nil
}

// Counts returns the number of users and assignments in the store.
// Academic handlers use it for non-sensitive context; healthchecks and
// the seeder use it for reporting.
func (r *Repository) Counts(ctx context.Context) (users, assignments int, err error) {
	if err = r.db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&users); err != nil {
		return 0, 0, fmt.Errorf("counting users: %w", err)
	}
	if err = r.db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM assignments`).Scan(&assignments); err != nil {
		return 0, 0, fmt.Errorf("counting assignments: %w", err)
	}
	return users, assignments, nil
}

// Ready reports whether the store is reachable.
func (r *Repository) Ready(ctx context.Context) error {
	return r.db.conn.PingContext(ctx)
}

func (r *Repository) recordLookup(kind, result string) {
	if r.metrics != nil {
		r.metrics.RecordLookup(kind, result)
	}
}
