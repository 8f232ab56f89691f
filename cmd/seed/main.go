// Package main seeds the academic records store from a CSV file.
//
// The input format is one row per subject assignment:
//
//	legajo,name,email,subject,program
//
// Rows sharing a legajo are grouped; the user row is upserted once and
// the subject assignments replace whatever the store held for that
// legajo. Lines starting with '#' and blank lines are skipped.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gesin-frd/srat-assistant-go/internal/records"
)

type seedUser struct {
	user        records.User
	assignments []records.Affiliation
}

func main() {
	dbPath := flag.String("db", "data/records.db", "Path to the SQLite records database")
	file := flag.String("file", "", "CSV file with legajo,name,email,subject,program rows")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "Usage: seed -file <records.csv> [-db <records.db>]")
		os.Exit(2)
	}

	if err := run(*dbPath, *file); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
}

func run(dbPath, file string) error {
	users, err := readSeedFile(file)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return fmt.Errorf("no rows found in %s", file)
	}

	db, err := records.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening records database: %w", err)
	}
	defer func() { _ = db.Close() }()

	repo := records.NewRepository(db, nil)
	ctx := context.Background()

	assignmentTotal := 0
	for _, u := range users {
		if err := repo.SaveUser(ctx, u.user); err != nil {
			return fmt.Errorf("saving user %s: %w", u.user.Legajo, err)
		}
		if err := repo.SaveAssignmentsBatch(ctx, u.user.Legajo, u.assignments); err != nil {
			return fmt.Errorf("saving assignments for %s: %w", u.user.Legajo, err)
		}
		assignmentTotal += len(u.assignments)
	}

	fmt.Printf("Seeded %d users, %d assignments into %s\n", len(users), assignmentTotal, dbPath)
	return nil
}

// readSeedFile parses the CSV and groups rows by legajo, preserving
// first-seen order.
func readSeedFile(path string) ([]*seedUser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening seed file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 5
	reader.Comment = '#'
	reader.TrimLeadingSpace = true

	byLegajo := make(map[string]*seedUser)
	var order []*seedUser

	line := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("reading seed file line %d: %w", line, err)
		}

		legajo := strings.TrimSpace(row[0])
		if legajo == "" {
			return nil, fmt.Errorf("seed file line %d: empty legajo", line)
		}

		u, ok := byLegajo[legajo]
		if !ok {
			u = &seedUser{user: records.User{
				Legajo: legajo,
				Name:   strings.TrimSpace(row[1]),
				Email:  strings.TrimSpace(row[2]),
			}}
			byLegajo[legajo] = u
			order = append(order, u)
		}

		subject := strings.TrimSpace(row[3])
		program := strings.TrimSpace(row[4])
		if subject != "" && program != "" {
			u.assignments = append(u.assignments, records.Affiliation{
				Subject: subject,
				Program: program,
			})
		}
	}

	return order, nil
}
