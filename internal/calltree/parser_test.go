package calltree_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calltree2dot/internal/calltree"
)

const header = `Level,Function Name,Inclusive Samples,Exclusive Samples,Inclusive Samples %,Exclusive Samples %,Module Name`

func TestReaderParsesRows(t *testing.T) {
	input := header + "\n" +
		`0,"chrome.exe",1,0,100.00%,0.00%,chrome.exe` + "\n" +
		`1,"blink::Node::insertBefore(Node*, Node*)","1,234",56,50.5%,2.25%,webcore_shared.dll` + "\n"

	entries, err := calltree.ReadAll(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, &calltree.Entry{
		ID:               1,
		Level:            0,
		Name:             "chrome.exe",
		InclusiveCount:   1,
		ExclusiveCount:   0,
		InclusivePercent: 100,
		ExclusivePercent: 0,
		Module:           "chrome.exe",
	}, entries[0])
	assert.Equal(t, &calltree.Entry{
		ID:               2,
		Level:            1,
		Name:             "blink::Node::insertBefore(Node*, Node*)",
		InclusiveCount:   1234,
		ExclusiveCount:   56,
		InclusivePercent: 50.5,
		ExclusivePercent: 2.25,
		Module:           "webcore_shared.dll",
	}, entries[1])
}

func TestReaderColumnOrderAndBOM(t *testing.T) {
	input := "\ufeffModule Name,Level,Function Name,Inclusive Samples,Exclusive Samples,Inclusive Samples %,Exclusive Samples %,Extra\n" +
		"app.dll,3,foo,10,5,50%,25%,ignored\n"

	entries, err := calltree.ReadAll(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 3, entries[0].Level)
	assert.Equal(t, "foo", entries[0].Name)
	assert.Equal(t, "app.dll", entries[0].Module)
	assert.Equal(t, int64(10), entries[0].InclusiveCount)
}

func TestReaderRejectsMalformedRows(t *testing.T) {
	for _, test := range []struct {
		name   string
		row    string
		column string
	}{
		{"level", `x,foo,1,1,1%,1%,app.dll`, calltree.ColumnLevel},
		{"negative level", `-2,foo,1,1,1%,1%,app.dll`, calltree.ColumnLevel},
		{"inclusive", `1,foo,abc,1,1%,1%,app.dll`, calltree.ColumnInclusive},
		{"exclusive", `1,foo,1,1.5,1%,1%,app.dll`, calltree.ColumnExclusive},
		{"inclusive percent", `1,foo,1,1,one%,1%,app.dll`, calltree.ColumnInclusivePercent},
		{"exclusive percent", `1,foo,1,1,1%,,app.dll`, calltree.ColumnExclusivePercent},
		{"short row", `1,foo,1`, calltree.ColumnModule},
	} {
		t.Run(test.name, func(t *testing.T) {
			input := header + "\n" + `0,main,1,1,1%,1%,app.exe` + "\n" + test.row + "\n"
			_, err := calltree.ReadAll(strings.NewReader(input))
			require.Error(t, err)

			var rowErr *calltree.RowError
			require.True(t, errors.As(err, &rowErr))
			assert.Equal(t, 3, rowErr.Line)
			assert.Equal(t, test.column, rowErr.Column)
		})
	}
}

func TestReaderRequiresHeader(t *testing.T) {
	_, err := calltree.ReadAll(strings.NewReader(""))
	require.Error(t, err)

	_, err = calltree.ReadAll(strings.NewReader("Level,Function Name\n1,foo\n"))
	require.ErrorContains(t, err, "Inclusive Samples")
}

func TestReaderHeaderOnly(t *testing.T) {
	reader := calltree.NewReader(strings.NewReader(header + "\n"))
	_, err := reader.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestReadFileZstd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calltree.csv.zst")
	f, err := os.Create(path)
	require.NoError(t, err)
	enc, err := zstd.NewWriter(f)
	require.NoError(t, err)
	_, err = enc.Write([]byte(header + "\n1,foo,10,5,50%,25%,app.dll\n"))
	require.NoError(t, err)
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	entries, err := calltree.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "foo", entries[0].Name)
}
