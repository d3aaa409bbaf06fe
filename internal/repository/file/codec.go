package file

import (
	"alcyxob/exercise-curator/internal/domain"
	"alcyxob/exercise-curator/internal/repository"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

const (
	recordIndent = "  "
	fieldIndent  = "    "
)

// Decode parses the persisted dataset. Any structural problem is returned as
// a *repository.ParseError carrying the position of the failure.
func Decode(data []byte, source string) (*domain.Dataset, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	fail := func(err error) error {
		return newParseError(data, source, dec.InputOffset(), err)
	}

	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fail(errors.New("empty file, expected an array of exercises"))
		}
		return nil, fail(err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fail(fmt.Errorf("expected an array of exercises, found %v", tok))
	}

	ds := &domain.Dataset{}
	for dec.More() {
		ex, err := domain.DecodeExercise(dec)
		if err != nil {
			return nil, fail(fmt.Errorf("record %d: %w", ds.Len(), err))
		}
		ds.Append(ex)
	}
	// closing ']'
	if _, err := dec.Token(); err != nil {
		return nil, fail(err)
	}
	if tok, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = fmt.Errorf("unexpected %v after the closing bracket", tok)
		}
		return nil, fail(err)
	}
	return ds, nil
}

func newParseError(data []byte, source string, offset int64, err error) *repository.ParseError {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		offset = int64(len(data))
		err = fmt.Errorf("unexpected end of file: %w", err)
	}
	line, col := position(data, offset)
	return &repository.ParseError{Source: source, Offset: offset, Line: line, Column: col, Err: err}
}

// position converts a byte offset into a 1-based line and column.
func position(data []byte, offset int64) (int, int) {
	if offset < 0 {
		return 0, 0
	}
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	prefix := data[:offset]
	line := bytes.Count(prefix, []byte{'\n'}) + 1
	col := int(offset) - bytes.LastIndexByte(prefix, '\n')
	return line, col
}

// Encode renders the dataset with two-space indentation, records in dataset
// order and keys in record order. Encoding an unchanged dataset always yields
// the same bytes.
func Encode(ds *domain.Dataset) ([]byte, error) {
	if ds.Len() == 0 {
		return []byte("[]\n"), nil
	}

	var buf bytes.Buffer
	buf.WriteString("[\n")
	for i, ex := range ds.Exercises {
		if err := encodeExercise(&buf, ex); err != nil {
			return nil, fmt.Errorf("record %d (%q): %w", i, ex.ID(), err)
		}
		if i < ds.Len()-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("]\n")
	return buf.Bytes(), nil
}

func encodeExercise(buf *bytes.Buffer, ex *domain.Exercise) error {
	fields := ex.Fields()
	buf.WriteString(recordIndent)
	if len(fields) == 0 {
		buf.WriteString("{}")
		return nil
	}
	buf.WriteString("{\n")
	for j, f := range fields {
		key, err := domain.MarshalValue(f.Key)
		if err != nil {
			return err
		}
		buf.WriteString(fieldIndent)
		buf.Write(key)
		buf.WriteString(": ")

		var compact bytes.Buffer
		if err := json.Compact(&compact, f.Value); err != nil {
			return fmt.Errorf("field %s: %w", f.Key, err)
		}
		if err := json.Indent(buf, compact.Bytes(), fieldIndent, recordIndent); err != nil {
			return fmt.Errorf("field %s: %w", f.Key, err)
		}
		if j < len(fields)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString(recordIndent)
	buf.WriteByte('}')
	return nil
}
