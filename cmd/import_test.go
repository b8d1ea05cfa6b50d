package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLeads(t *testing.T) {
	header := []string{"Nome", "E-mail", "WhatsApp", "Faturamento", "utm_source"}
	rows := [][]string{
		{"Ana Souza", "ana@example.com", "11988887777", "R$ 120.000", "instagram"},
		{"Bruno", "", "", "", ""},
	}

	leads := buildLeads(header, rows)
	require.Len(t, leads, 2)

	assert.Equal(t, "Ana Souza", leads[0].Name)
	assert.Equal(t, "ana@example.com", leads[0].Email)
	assert.Equal(t, "11988887777", leads[0].Phone)
	assert.Equal(t, "R$ 120.000", leads[0].Attributes["Faturamento"])
	assert.Equal(t, 0, leads[0].OrderIndex)

	assert.Equal(t, "Bruno", leads[1].Name)
	assert.Empty(t, leads[1].Email)
	assert.Equal(t, 1, leads[1].OrderIndex)
	// Blank cells never enter the attribute bag.
	_, ok := leads[1].Attributes["E-mail"]
	assert.False(t, ok)
}

func TestBuildLeads_ShortRow(t *testing.T) {
	header := []string{"Nome", "E-mail"}
	rows := [][]string{{"Carla"}}

	leads := buildLeads(header, rows)
	require.Len(t, leads, 1)
	assert.Equal(t, "Carla", leads[0].Name)
	assert.Empty(t, leads[0].Email)
}

func TestReadImportRows_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads.csv")
	content := "Nome,E-mail\nAna,ana@example.com\nBruno,bruno@example.com\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rows, err := readImportRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Nome", "E-mail"}, rows[0])
	assert.Equal(t, "Ana", rows[1][0])
}

func TestReadImportRows_MissingFile(t *testing.T) {
	_, err := readImportRows(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}
