package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFixture(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestReadTable_UTF8KeepsHeadersVerbatim(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Branch Name,Service No. ,wan_ip\nHawassa Branch,S-1,10.0.0.1\n")...)
	path := writeFixture(t, "branches.csv", data)

	table, err := ReadTable(path, ReadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "utf-8", table.Encoding)
	assert.Equal(t, []string{"Branch Name", "Service No. ", "wan_ip"}, table.Headers)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, []string{"Hawassa Branch", "S-1", "10.0.0.1"}, table.Rows[0].Values)
	assert.Equal(t, "branches.csv", table.Name())
}

func TestReadTable_Latin1Fallback(t *testing.T) {
	path := writeFixture(t, "contacts.csv", []byte("Branch Name,Contact Person\nHawassa,Ren\xe9\nDilla,Abebe\n"))

	table, err := ReadTable(path, ReadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "latin-1", table.Encoding)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "René", table.Rows[0].Values[1])
}

func TestReadTable_CP1252WhenConfigured(t *testing.T) {
	path := writeFixture(t, "quotes.csv", []byte("Site Name,Note\nDilla,\x93new\x94\n"))

	table, err := ReadTable(path, ReadOptions{Encodings: []string{"utf-8", "cp1252"}})
	require.NoError(t, err)

	assert.Equal(t, "cp1252", table.Encoding)
	assert.Equal(t, "“new”", table.Rows[0].Values[1])
}

func TestReadTable_RaggedRowsKeepEncoding(t *testing.T) {
	path := writeFixture(t, "branches.csv", []byte("Branch Name,Note\nCaf\xe9 Branch,x\nDilla\n"))

	table, err := ReadTable(path, ReadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "latin-1", table.Encoding)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"Café Branch", "x"}, table.Rows[0].Values)
	assert.Equal(t, []string{"Dilla", ""}, table.Rows[1].Values)
}

func TestReadTable_OverflowCellsKept(t *testing.T) {
	path := writeFixture(t, "ragged.csv", []byte("TID,Name\n100,A\n200,B,extra\n300\n"))

	table, err := ReadTable(path, ReadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "utf-8", table.Encoding)
	assert.Equal(t, []string{"TID", "Name", "Unnamed: 2"}, table.Headers)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, []string{"100", "A", ""}, table.Rows[0].Values)
	assert.Equal(t, []string{"200", "B", "extra"}, table.Rows[1].Values)
	assert.Equal(t, []string{"300", "", ""}, table.Rows[2].Values)
	assert.Equal(t, "extra", table.Rows[1].Map()["Unnamed: 2"])
}

func TestReadTable_LossyRetryOnBareQuotes(t *testing.T) {
	path := writeFixture(t, "quotes.csv", []byte("TID,Name\n100,Hawassa \"main\" ATM\n"))

	table, err := ReadTable(path, ReadOptions{})
	require.NoError(t, err)

	assert.Equal(t, LossyEncoding, table.Encoding)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, `Hawassa "main" ATM`, table.Rows[0].Values[1])
}

func TestReadTable_UnknownEncodingIsSkipped(t *testing.T) {
	path := writeFixture(t, "plain.csv", []byte("a,b\n1,2\n"))

	table, err := ReadTable(path, ReadOptions{Encodings: []string{"ebcdic", "utf-8"}})
	require.NoError(t, err)
	assert.Equal(t, "utf-8", table.Encoding)
}

func TestReadTable_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := ReadTable(filepath.Join(t.TempDir(), "nope.csv"), ReadOptions{})

		var readErr *ReadError
		require.True(t, errors.As(err, &readErr))
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("empty file", func(t *testing.T) {
		path := writeFixture(t, "empty.csv", nil)
		_, err := ReadTable(path, ReadOptions{})

		var readErr *ReadError
		require.True(t, errors.As(err, &readErr))
		assert.Contains(t, readErr.Tried, LossyEncoding)
		assert.Contains(t, err.Error(), "encoding error")
	})
}

func TestReadTable_DuplicateAndBlankHeaders(t *testing.T) {
	path := writeFixture(t, "dups.csv", []byte("TID,TID,,Name,TID.1\n1,2,3,4,5\n"))

	table, err := ReadTable(path, ReadOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"TID", "TID.1", "Unnamed: 2", "Name", "TID.1.1"}, table.Headers)
}

func TestReadTable_SkipsBlankRows(t *testing.T) {
	path := writeFixture(t, "blank.csv", []byte("a,b\n , \n1,2\n"))

	table, err := ReadTable(path, ReadOptions{})
	require.NoError(t, err)

	require.Len(t, table.Rows, 1)
	assert.Equal(t, 3, table.Rows[0].Line)
}

func TestReadTable_Workbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "atms.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"TID", "ATM Name", "IP"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"10023", "Piassa"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	table, err := ReadTable(path, ReadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "xlsx", table.Encoding)
	assert.Equal(t, []string{"TID", "ATM Name", "IP"}, table.Headers)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, []string{"10023", "Piassa", ""}, table.Rows[0].Values)
}

func TestSupportedEncoding(t *testing.T) {
	for _, enc := range []string{"utf-8", "UTF8", "latin-1", "ISO-8859-1", "cp1252", "windows-1252", "latin9"} {
		assert.True(t, SupportedEncoding(enc), enc)
	}
	for _, enc := range []string{"shift-jis", "utf-16", ""} {
		assert.False(t, SupportedEncoding(enc), enc)
	}
}
