package records

import "database/sql"

// initSchema creates the tables if they do not exist.
//
// users holds one row per person: the legajo is the institutional
// identifier, email is the verified institutional address that record
// deliveries go to. assignments holds one row per (legajo, subject,
// program) teaching assignment.
func initSchema(conn *sql.DB) error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS users (
		legajo TEXT PRIMARY KEY,
		name   TEXT NOT NULL DEFAULT '',
		email  TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS assignments (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		legajo  TEXT NOT NULL,
		subject TEXT NOT NULL,
		program TEXT NOT NULL,
		FOREIGN KEY (legajo) REFERENCES users(legajo) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_assignments_legajo ON assignments(legajo);
	`

	_, err := conn.Exec(ddl)
	return err
}
