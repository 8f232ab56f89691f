package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gesin-frd/srat-assistant-go/internal/records"
)

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadSeedFileGroupsByLegajo(t *testing.T) {
	path := writeSeedFile(t, `# legajo,name,email,subject,program
50443,Ana Pérez,ana.perez@frd.utn.edu.ar,Análisis Matemático I,Ingeniería Química
50443,Ana Pérez,ana.perez@frd.utn.edu.ar,Física I,Ingeniería Eléctrica
61001,Juan Gómez,juan.gomez@frd.utn.edu.ar,Química General,Ingeniería Química
`)

	users, err := readSeedFile(path)
	require.NoError(t, err)
	require.Len(t, users, 2)

	assert.Equal(t, "50443", users[0].user.Legajo)
	assert.Equal(t, "Ana Pérez", users[0].user.Name)
	assert.Equal(t, "ana.perez@frd.utn.edu.ar", users[0].user.Email)
	require.Len(t, users[0].assignments, 2)
	assert.Equal(t, records.Affiliation{Subject: "Análisis Matemático I", Program: "Ingeniería Química"}, users[0].assignments[0])

	assert.Equal(t, "61001", users[1].user.Legajo)
	require.Len(t, users[1].assignments, 1)
}

func TestReadSeedFileUserWithoutAssignments(t *testing.T) {
	path := writeSeedFile(t, "70002,Sin Materias,sin.materias@frd.utn.edu.ar,,\n")

	users, err := readSeedFile(path)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Empty(t, users[0].assignments)
}

func TestReadSeedFileRejectsEmptyLegajo(t *testing.T) {
	path := writeSeedFile(t, ",Nombre,mail@frd.utn.edu.ar,Materia,Carrera\n")

	_, err := readSeedFile(path)
	assert.Error(t, err)
}

func TestReadSeedFileRejectsShortRows(t *testing.T) {
	path := writeSeedFile(t, "50443,Ana\n")

	_, err := readSeedFile(path)
	assert.Error(t, err)
}

func TestRunSeedsDatabase(t *testing.T) {
	seedPath := writeSeedFile(t, `50443,Ana Pérez,ana.perez@frd.utn.edu.ar,Análisis Matemático I,Ingeniería Química
50443,Ana Pérez,ana.perez@frd.utn.edu.ar,Física I,Ingeniería Eléctrica
`)
	dbPath := filepath.Join(t.TempDir(), "records.db")

	require.NoError(t, run(dbPath, seedPath))

	db, err := records.Open(dbPath)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := records.NewRepository(db, nil)
	affs, err := repo.LookupAffiliations(t.Context(), "50443")
	require.NoError(t, err)
	assert.Len(t, affs, 2)

	email, err := repo.LookupEmail(t.Context(), "50443")
	require.NoError(t, err)
	assert.Equal(t, "ana.perez@frd.utn.edu.ar", email)
}
