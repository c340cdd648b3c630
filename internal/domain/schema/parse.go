package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/okian/edupredict/internal/domain/errs"
)

// ErrMalformedJSON marks a request body that is not a JSON object.
var ErrMalformedJSON = errors.New("malformed JSON request")

var errNotFinite = errors.New("value must be a finite number")

// FromPositional parses exactly Len() values in schema order.
func FromPositional(values []string) (Vector, error) {
	const op = "schema.from_positional"
	if len(values) != len(features) {
		return nil, errs.WrapKind(op, errs.ErrValidation,
			fmt.Errorf("expected %d values (%s), got %d", len(features), strings.Join(Keys(), ", "), len(values)))
	}
	v := make(Vector, len(features))
	for i, f := range features {
		n, err := parseNumber(f.Key, values[i])
		if err != nil {
			return nil, errs.WrapKind(op, errs.ErrValidation, err)
		}
		v[i] = n
	}
	return v, nil
}

// FromFields builds a vector from named request fields. Values may be JSON
// numbers or numeric strings. Unknown keys are ignored.
func FromFields(fields map[string]any) (Vector, error) {
	const op = "schema.from_fields"
	v := make(Vector, len(features))
	for i, f := range features {
		raw, ok := fields[f.Key]
		if !ok || raw == nil {
			return nil, errs.WrapKind(op, errs.ErrMissingField, errs.Missing(f.Key))
		}
		n, err := coerce(f.Key, raw)
		if err != nil {
			return nil, errs.WrapKind(op, errs.ErrValidation, err)
		}
		v[i] = n
	}
	return v, nil
}

// FromJSON decodes a JSON object and delegates to FromFields.
func FromJSON(data []byte) (Vector, error) {
	const op = "schema.from_json"
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, errs.WrapKind(op, errs.ErrValidation, fmt.Errorf("%w: %w", ErrMalformedJSON, err))
	}
	if fields == nil {
		return nil, errs.WrapKind(op, errs.ErrValidation, fmt.Errorf("%w: expected an object", ErrMalformedJSON))
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errs.WrapKind(op, errs.ErrValidation, fmt.Errorf("%w: trailing data after object", ErrMalformedJSON))
	}
	return FromFields(fields)
}

// LooksLikeJSON reports whether s is meant as a JSON object argument.
func LooksLikeJSON(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "{")
}

func coerce(key string, raw any) (float64, error) {
	switch val := raw.(type) {
	case json.Number:
		return parseNumber(key, val.String())
	case float64:
		return finite(key, strconv.FormatFloat(val, 'g', -1, 64), val)
	case float32:
		return finite(key, strconv.FormatFloat(float64(val), 'g', -1, 32), float64(val))
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case string:
		return parseNumber(key, val)
	default:
		return 0, errs.Invalid(key, fmt.Sprint(raw), fmt.Errorf("unsupported type %T", raw))
	}
}

func parseNumber(key, text string) (float64, error) {
	trimmed := strings.TrimSpace(text)
	n, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, errs.Invalid(key, text, errors.New("not a number"))
	}
	return finite(key, text, n)
}

func finite(key, text string, n float64) (float64, error) {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, errs.Invalid(key, text, errNotFinite)
	}
	return n, nil
}
