package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ppiankov/reup/internal/model"
)

// Shape decodes a complete response body and checks it has the structure a source expects
type Shape interface {
	Decode(body []byte) (model.RecordSet, error)
}

// ArrayShape expects a top-level array of objects
type ArrayShape struct {
	Required []string // fields every record must carry
}

// Decode implements Shape
func (s ArrayShape) Decode(body []byte) (model.RecordSet, error) {
	rs, err := decodeRecords(body, false)
	if err != nil {
		return nil, err
	}
	for i, rec := range rs {
		for _, field := range s.Required {
			if _, ok := rec[field]; !ok {
				return nil, &ShapeError{
					Want:   "array of objects",
					Detail: fmt.Sprintf("record %d has no %q field", i, field),
				}
			}
		}
	}
	return rs, nil
}

// ColumnarShape expects an object whose Key holds equal-length arrays,
// one per field, and pivots them into one record per position
type ColumnarShape struct {
	Key string
}

// Decode implements Shape
func (s ColumnarShape) Decode(body []byte) (model.RecordSet, error) {
	want := fmt.Sprintf("object with %q column set", s.Key)

	var top any
	if err := decodeJSON(body, &top); err != nil {
		return nil, &ParseError{Err: err}
	}
	obj, ok := top.(map[string]any)
	if !ok {
		return nil, &ShapeError{Want: want, Detail: "top level is not an object"}
	}
	block, ok := obj[s.Key].(map[string]any)
	if !ok {
		return nil, &ShapeError{Want: want, Detail: fmt.Sprintf("missing or non-object %q", s.Key)}
	}

	rows := -1
	columns := make(map[string][]any, len(block))
	for field, v := range block {
		col, ok := v.([]any)
		if !ok {
			return nil, &ShapeError{Want: want, Detail: fmt.Sprintf("column %q is not an array", field)}
		}
		if rows >= 0 && len(col) != rows {
			return nil, &ShapeError{Want: want, Detail: fmt.Sprintf("column %q has %d values, want %d", field, len(col), rows)}
		}
		rows = len(col)
		columns[field] = col
	}

	rs := make(model.RecordSet, 0, max(rows, 0))
	for i := 0; i < rows; i++ {
		rec := make(model.Record, len(columns))
		for field, col := range columns {
			rec[field] = col[i]
		}
		rs = append(rs, rec)
	}
	return rs, nil
}

// decodeRecords parses a JSON array of objects. Numbers stay json.Number.
func decodeRecords(data []byte, repaired bool) (model.RecordSet, error) {
	var top any
	if err := decodeJSON(data, &top); err != nil {
		return nil, &ParseError{Repaired: repaired, Err: err}
	}
	items, ok := top.([]any)
	if !ok {
		return nil, &ShapeError{Want: "array of objects", Detail: "top level is not an array"}
	}

	rs := make(model.RecordSet, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, &ShapeError{Want: "array of objects", Detail: fmt.Sprintf("element %d is not an object", i)}
		}
		rs = append(rs, model.Record(obj))
	}
	return rs, nil
}

func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("trailing data after JSON value")
	}
	return nil
}
