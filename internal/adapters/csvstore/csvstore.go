// Package csvstore reads and writes the student dataset as CSV.
package csvstore

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/okian/edupredict/internal/domain/errs"
	"github.com/okian/edupredict/internal/domain/model"
	"github.com/okian/edupredict/internal/domain/schema"
)

// ErrHeader is returned when the first row does not match the dataset header.
var ErrHeader = errors.New("unexpected dataset header")

// Encode writes the header followed by one row per record.
func Encode(w io.Writer, records []model.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(schema.Header()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.ID,
			strconv.Itoa(r.Attendance),
			strconv.FormatFloat(r.StudyHours, 'f', -1, 64),
			strconv.Itoa(r.PreviousMarks),
			strconv.Itoa(r.AssignmentScore),
			string(r.Result),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Decode parses a dataset. Malformed rows are ValidationErrors naming the
// line and column.
func Decode(r io.Reader) ([]model.Record, error) {
	const op = "csvstore.decode"
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(schema.Header())
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errs.WrapKind(op, errs.ErrValidation, fmt.Errorf("%w: empty file", ErrHeader))
	}
	if err != nil {
		return nil, errs.WrapKind(op, errs.ErrValidation, err)
	}
	want := schema.Header()
	for i := range want {
		if header[i] != want[i] {
			return nil, errs.WrapKind(op, errs.ErrValidation,
				fmt.Errorf("%w: column %d is %q, want %q", ErrHeader, i+1, header[i], want[i]))
		}
	}

	var records []model.Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errs.WrapKind(op, errs.ErrValidation, err)
		}
		rec, err := parseRow(row)
		if err != nil {
			return nil, errs.WrapKind(op, errs.ErrValidation, fmt.Errorf("line %d: %w", line, err))
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRow(row []string) (model.Record, error) {
	cols := schema.Header()
	attendance, err := strconv.Atoi(row[1])
	if err != nil {
		return model.Record{}, errs.Invalid(cols[1], row[1], err)
	}
	hours, err := strconv.ParseFloat(row[2], 64)
	if err != nil {
		return model.Record{}, errs.Invalid(cols[2], row[2], err)
	}
	marks, err := strconv.Atoi(row[3])
	if err != nil {
		return model.Record{}, errs.Invalid(cols[3], row[3], err)
	}
	score, err := strconv.Atoi(row[4])
	if err != nil {
		return model.Record{}, errs.Invalid(cols[4], row[4], err)
	}
	result, err := model.ParseResult(row[5])
	if err != nil {
		return model.Record{}, errs.Invalid(cols[5], row[5], err)
	}
	return model.Record{
		ID:              row[0],
		Attendance:      attendance,
		StudyHours:      hours,
		PreviousMarks:   marks,
		AssignmentScore: score,
		Result:          result,
	}, nil
}

// Write stores records at path, creating parent directories.
func Write(path string, records []model.Record) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("csvstore.write: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csvstore.write: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("csvstore.write: %w", cerr)
		}
	}()
	if err := Encode(f, records); err != nil {
		return fmt.Errorf("csvstore.write %s: %w", path, err)
	}
	return nil
}

// Read loads the dataset at path. A missing file is NotFound.
func Read(path string) ([]model.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.WrapKind("csvstore.read", errs.ErrNotFound, err)
		}
		return nil, fmt.Errorf("csvstore.read: %w", err)
	}
	defer f.Close()
	records, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}
