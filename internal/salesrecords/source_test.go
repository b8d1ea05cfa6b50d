package salesrecords

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lead-pipeline/internal/model"
	sfpkg "github.com/sells-group/lead-pipeline/pkg/salesforce"
)

func TestMapHeader_PortugueseAliases(t *testing.T) {
	idx := mapHeader([]string{"Nome do Produto", "E-mail", "Telefone", "Plataforma"})
	assert.Equal(t, 0, idx.product)
	assert.Equal(t, 1, idx.email)
	assert.Equal(t, 2, idx.phone)
	assert.Equal(t, 3, idx.platform)
}

func TestMapHeader_MissingColumns(t *testing.T) {
	idx := mapHeader([]string{"email"})
	assert.Equal(t, 0, idx.email)
	assert.Equal(t, -1, idx.phone)
	assert.Equal(t, -1, idx.product)

	rec := idx.record([]string{"ana@example.com"})
	assert.Equal(t, "ana@example.com", rec.Email)
	assert.Empty(t, rec.ProductName)
}

func TestCSVSource_Fetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.csv")
	content := "Email,WhatsApp,Produto,Plataforma\n" +
		"ana@example.com,5511988887777,Mentoria,hotmart\n" +
		",,Sem Identidade,hotmart\n" +
		",11977776666,Curso,eduzz\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	src := &CSVSource{Path: path}
	records, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, model.ExternalRecord{
		Email:       "ana@example.com",
		Phone:       "5511988887777",
		ProductName: "Mentoria",
		Platform:    "hotmart",
	}, records[0])
	assert.Equal(t, "Curso", records[1].ProductName)
}

func TestCSVSource_MissingFile(t *testing.T) {
	src := &CSVSource{Path: filepath.Join(t.TempDir(), "nope.csv")}
	_, err := src.Fetch(context.Background())
	require.Error(t, err)
}

func TestXLSXSource_Fetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.xlsx")

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Vendas")
	require.NoError(t, err)
	for _, rowVals := range [][]string{
		{"E-mail", "Telefone", "Produto", "Plataforma"},
		{"bruno@example.com", "", "Imersão", "kiwify"},
		{"", "", "Sem Identidade", ""},
	} {
		row := sheet.AddRow()
		for _, v := range rowVals {
			row.AddCell().Value = v
		}
	}
	require.NoError(t, f.Save(path))

	src := &XLSXSource{Path: path, SheetName: "Vendas"}
	records, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "bruno@example.com", records[0].Email)
	assert.Equal(t, "Imersão", records[0].ProductName)
	assert.Equal(t, "kiwify", records[0].Platform)
}

func TestXLSXSource_SheetNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.xlsx")
	f := xlsx.NewFile()
	_, err := f.AddSheet("Outra")
	require.NoError(t, err)
	require.NoError(t, f.Save(path))

	src := &XLSXSource{Path: path, SheetName: "Vendas"}
	_, err = src.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

// fakeSFClient returns canned sale records for the source test.
type fakeSFClient struct {
	soql  string
	sales []sfpkg.SaleRecord
}

func (f *fakeSFClient) Query(_ context.Context, soql string, out any) error {
	f.soql = soql
	*(out.(*[]sfpkg.SaleRecord)) = f.sales
	return nil
}

func (f *fakeSFClient) UpdateOne(context.Context, string, string, map[string]any) error {
	return nil
}

func TestSalesforceSource_Fetch(t *testing.T) {
	client := &fakeSFClient{sales: []sfpkg.SaleRecord{
		{ID: "a1", Email: "ana@example.com", ProductName: "Mentoria", Platform: "hotmart"},
		{ID: "a2", ProductName: "Sem Identidade"},
	}}

	src := &SalesforceSource{Client: client, Platform: "hotmart"}
	records, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ana@example.com", records[0].Email)
	assert.Contains(t, client.soql, "Platform__c = 'hotmart'")
}
