package calltree

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

var requiredColumns = []string{
	ColumnLevel,
	ColumnFunctionName,
	ColumnInclusive,
	ColumnExclusive,
	ColumnInclusivePercent,
	ColumnExclusivePercent,
	ColumnModule,
}

// Reader reads entries from a call-tree CSV export in input order.
type Reader struct {
	csv     *csv.Reader
	columns map[string]int
	nextID  int
}

// NewReader creates a Reader. The header row is consumed on the first call to Next.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	return &Reader{
		csv:    cr,
		nextID: RootID + 1,
	}
}

func (r *Reader) readHeader() error {
	header, err := r.csv.Read()
	if err == io.EOF {
		return fmt.Errorf("empty call tree: missing header row")
	}
	if err != nil {
		return fmt.Errorf("failed to read header row: %w", err)
	}

	r.columns = make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		r.columns[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := r.columns[name]; !ok {
			return fmt.Errorf("header row is missing column %q", name)
		}
	}
	return nil
}

// Next returns the next entry, or io.EOF once the input is exhausted.
// Any malformed row is returned as a *RowError.
func (r *Reader) Next() (*Entry, error) {
	if r.columns == nil {
		if err := r.readHeader(); err != nil {
			return nil, err
		}
	}

	record, err := r.csv.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read call tree row: %w", err)
	}
	line, _ := r.csv.FieldPos(0)

	field := func(column string) (string, error) {
		idx := r.columns[column]
		if idx >= len(record) {
			return "", &RowError{Line: line, Column: column, Err: errors.New("missing field")}
		}
		return strings.TrimSpace(record[idx]), nil
	}

	entry := &Entry{}
	if entry.Level, err = parseLevel(field, line); err != nil {
		return nil, err
	}
	if entry.Name, err = field(ColumnFunctionName); err != nil {
		return nil, err
	}
	if entry.Module, err = field(ColumnModule); err != nil {
		return nil, err
	}
	if entry.InclusiveCount, err = parseCount(field, ColumnInclusive, line); err != nil {
		return nil, err
	}
	if entry.ExclusiveCount, err = parseCount(field, ColumnExclusive, line); err != nil {
		return nil, err
	}
	if entry.InclusivePercent, err = parsePercent(field, ColumnInclusivePercent, line); err != nil {
		return nil, err
	}
	if entry.ExclusivePercent, err = parsePercent(field, ColumnExclusivePercent, line); err != nil {
		return nil, err
	}

	entry.ID = r.nextID
	r.nextID++
	return entry, nil
}

func parseLevel(field func(string) (string, error), line int) (int, error) {
	value, err := field(ColumnLevel)
	if err != nil {
		return 0, err
	}
	level, err := strconv.Atoi(value)
	if err != nil {
		return 0, &RowError{Line: line, Column: ColumnLevel, Value: value, Err: err}
	}
	if level < 0 {
		return 0, &RowError{Line: line, Column: ColumnLevel, Value: value, Err: errors.New("level must not be negative")}
	}
	return level, nil
}

func parseCount(field func(string) (string, error), column string, line int) (int64, error) {
	value, err := field(column)
	if err != nil {
		return 0, err
	}
	count, err := strconv.ParseInt(strings.ReplaceAll(value, ",", ""), 10, 64)
	if err != nil {
		return 0, &RowError{Line: line, Column: column, Value: value, Err: err}
	}
	if count < 0 {
		return 0, &RowError{Line: line, Column: column, Value: value, Err: errors.New("count must not be negative")}
	}
	return count, nil
}

func parsePercent(field func(string) (string, error), column string, line int) (float64, error) {
	value, err := field(column)
	if err != nil {
		return 0, err
	}
	pct, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(value, "%")), 64)
	if err != nil {
		return 0, &RowError{Line: line, Column: column, Value: value, Err: err}
	}
	return pct, nil
}

// ReadAll reads every entry from r.
func ReadAll(r io.Reader) ([]*Entry, error) {
	reader := NewReader(r)
	var entries []*Entry
	for {
		entry, err := reader.Next()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
}

// ReadFile reads every entry from the call-tree export at filePath.
func ReadFile(filePath string) ([]*Entry, error) {
	rc, err := Open(filePath)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	entries, err := ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}
	return entries, nil
}

// Open opens a call-tree export. Files ending in .zst are decompressed on the fly.
func Open(filePath string) (io.ReadCloser, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open call tree: %w", err)
	}
	if !strings.HasSuffix(filePath, ".zst") {
		return f, nil
	}

	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to open zstd stream %s: %w", filePath, err)
	}
	return &zstdFile{Decoder: dec, file: f}, nil
}

type zstdFile struct {
	*zstd.Decoder
	file *os.File
}

func (z *zstdFile) Close() error {
	z.Decoder.Close()
	return z.file.Close()
}
