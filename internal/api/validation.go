package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

const locationBody = "body"

var (
	minPoints = decimal.NewFromInt(math.MinInt64)
	maxPoints = decimal.NewFromInt(math.MaxInt64)
)

// Bounds on the literal checked before any decimal arithmetic, which would
// otherwise scale huge exponents out to full size.
const (
	maxNumberLen   = 40
	maxNumberScale = 18
)

var errNotObject = errors.New("request body must be a JSON object")

// FieldError describes one failed rule for one request field.
type FieldError struct {
	Type     string          `json:"type"`
	Value    json.RawMessage `json:"value,omitempty"`
	Msg      string          `json:"msg"`
	Path     string          `json:"path"`
	Location string          `json:"location"`
}

// AddInput is a validated POST /add body.
type AddInput struct {
	Payer     string
	Points    int64
	Timestamp time.Time
}

// SpendInput is a validated POST /spend body.
type SpendInput struct {
	Points int64
}

type fields map[string]json.RawMessage

// decodeFields splits a JSON object body into its raw members. An empty body
// is treated as an empty object so every field reports as missing.
func decodeFields(body []byte) (fields, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return fields{}, nil
	}
	if body[0] != '{' {
		return nil, errNotObject
	}
	var out fields
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// value returns the raw member and whether it carries anything but null.
func (f fields) value(name string) (json.RawMessage, bool) {
	raw, ok := f[name]
	if !ok || string(raw) == "null" {
		return raw, false
	}
	return raw, true
}

// rawField returns one member of a body that has already passed validation.
func rawField(body []byte, name string) (json.RawMessage, bool) {
	f, err := decodeFields(body)
	if err != nil {
		return nil, false
	}
	return f.value(name)
}

func fieldError(path, msg string, raw json.RawMessage) FieldError {
	return FieldError{Type: "field", Value: raw, Msg: msg, Path: path, Location: locationBody}
}

// ValidateAdd checks a POST /add body. Every failing rule is reported.
func ValidateAdd(body []byte) (AddInput, []FieldError, error) {
	f, err := decodeFields(body)
	if err != nil {
		return AddInput{}, nil, err
	}

	var (
		input AddInput
		errs  []FieldError
	)

	payer, perrs := checkPayer(f)
	errs = append(errs, perrs...)
	input.Payer = payer

	points, ok, perrs := checkPoints(f)
	errs = append(errs, perrs...)
	if ok {
		input.Points = points
	}

	raw, present := f.value("timestamp")
	if !present || string(raw) == `""` {
		errs = append(errs, fieldError("timestamp", "Timestamp must not be empty", raw))
	}
	when, err := parseTimestamp(raw, present)
	if err != nil {
		errs = append(errs, fieldError("timestamp", "Timestamp must be a valid date", raw))
	}
	input.Timestamp = when

	return input, errs, nil
}

// ValidateSpend checks a POST /spend body.
func ValidateSpend(body []byte) (SpendInput, []FieldError, error) {
	f, err := decodeFields(body)
	if err != nil {
		return SpendInput{}, nil, err
	}

	points, ok, errs := checkPoints(f)
	if ok && points <= 0 {
		raw, _ := f.value("points")
		errs = append(errs, fieldError("points", "Points must be positive", raw))
	}
	return SpendInput{Points: points}, errs, nil
}

func checkPayer(f fields) (string, []FieldError) {
	var errs []FieldError
	raw, present := f.value("payer")

	var payer string
	isString := present && len(raw) > 0 && raw[0] == '"' && json.Unmarshal(raw, &payer) == nil
	if !present || (isString && payer == "") {
		errs = append(errs, fieldError("payer", "Payer must not be empty", raw))
	}
	if !isString {
		errs = append(errs, fieldError("payer", "Payer must be a string", raw))
	}
	return payer, errs
}

// checkPoints accepts any JSON number with an integral value that fits in an
// int64, so 300, 300.0 and 3e2 are all the same amount. Literals longer than
// maxNumberLen bytes or with an exponent beyond ±maxNumberScale are rejected
// as not an integer.
func checkPoints(f fields) (int64, bool, []FieldError) {
	var errs []FieldError
	raw, present := f.value("points")

	if !present || string(raw) == `""` {
		errs = append(errs, fieldError("points", "Points must not be empty", raw))
	}
	points, ok := parseInteger(raw, present)
	if !ok {
		errs = append(errs, fieldError("points", "Points must be an integer", raw))
	}
	return points, ok, errs
}

func parseInteger(raw json.RawMessage, present bool) (int64, bool) {
	if !present || len(raw) == 0 || raw[0] == '"' {
		return 0, false
	}
	if len(raw) > maxNumberLen {
		return 0, false
	}
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return 0, false
	}
	if exp := d.Exponent(); exp > maxNumberScale || exp < -maxNumberScale {
		return 0, false
	}
	if !d.IsInteger() {
		return 0, false
	}
	if d.LessThan(minPoints) || d.GreaterThan(maxPoints) {
		return 0, false
	}
	return d.IntPart(), true
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseTimestamp accepts ISO-8601 date-times. Values without a zone are UTC.
func parseTimestamp(raw json.RawMessage, present bool) (time.Time, error) {
	var text string
	if !present || json.Unmarshal(raw, &text) != nil || text == "" {
		return time.Time{}, errors.New("timestamp must be a string")
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, text)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
