package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
)

// TaskError is the structured error a task returns in place of a result when
// its parameters fail validation.
type TaskError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// NewTaskError builds a validation error payload with status "error".
func NewTaskError(message string) *TaskError {
	return &TaskError{Status: "error", Message: message}
}

func (e *TaskError) Error() string {
	return e.Message
}

// Outcome is what a task produced: a success payload or a validation error.
// It is immutable once written to the ledger.
type Outcome struct {
	Payload Payload
	Err     *TaskError
}

// Success wraps a computed payload.
func Success(p Payload) Outcome {
	return Outcome{Payload: p}
}

// Invalid wraps a validation failure.
func Invalid(message string) Outcome {
	return Outcome{Err: NewTaskError(message)}
}

// StatusCode is the HTTP-style hint paired with the outcome.
func (o Outcome) StatusCode() int {
	if o.Err != nil {
		return http.StatusBadRequest
	}
	return http.StatusOK
}

// MarshalJSON encodes the error object for validation failures and the
// payload otherwise.
func (o Outcome) MarshalJSON() ([]byte, error) {
	if o.Err != nil {
		return json.Marshal(o.Err)
	}
	return json.Marshal(o.Payload)
}

// UnmarshalJSON is the inverse of MarshalJSON. An object holding exactly
// {"status":"error","message":<string>} decodes as a validation error.
func (o *Outcome) UnmarshalJSON(b []byte) error {
	var p Payload
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	if len(p) == 2 {
		status, _ := p.Get("status")
		message, ok := p.Get("message")
		if msg, isString := message.(string); status == "error" && ok && isString {
			*o = Invalid(msg)
			return nil
		}
	}
	*o = Success(p)
	return nil
}

// Entry is one key/value pair of a Payload.
type Entry struct {
	Key   string
	Value any
}

// Payload is a JSON object that keeps its keys in insertion order. Values are
// float64, string, bool, nil, []any or nested Payloads. Non-finite floats
// encode as null.
type Payload []Entry

// Get returns the value stored under key.
func (p Payload) Get(key string) (any, bool) {
	for _, e := range p {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Keys returns the keys in order.
func (p Payload) Keys() []string {
	keys := make([]string, len(p))
	for i, e := range p {
		keys[i] = e.Key
	}
	return keys
}

// MarshalJSON writes the entries as an object in order.
func (p Payload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := marshalValue(e.Value)
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", e.Key, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalValue(v any) ([]byte, error) {
	if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// UnmarshalJSON decodes an object, preserving key order.
func (p *Payload) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("payload: expected object, got %v", tok)
	}
	out, err := decodeObject(dec)
	if err != nil {
		return err
	}
	*p = out
	return nil
}

func decodeObject(dec *json.Decoder) (Payload, error) {
	out := Payload{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("payload: expected key, got %v", tok)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{Key: key, Value: val})
	}
	// Closing brace.
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeArray(dec *json.Decoder) ([]any, error) {
	out := []any{}
	for dec.More() {
		val, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		out = append(out, val)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	d, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch d {
	case '{':
		return decodeObject(dec)
	case '[':
		return decodeArray(dec)
	default:
		return nil, fmt.Errorf("payload: unexpected delimiter %q", d)
	}
}
