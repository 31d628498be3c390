// Package protocol defines the request/response records exchanged with a
// browser worker over its unix socket.
//
// Each record is one JSON object terminated by a single '\n'. There is no
// length prefix; the newline is the only frame delimiter, and encoding/json
// escapes any newline inside string values.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Reserved request keys. Params may not use them.
const (
	keyID     = "id"
	keyAction = "action"
)

// Params holds the action-specific named parameters of a request. Values
// must be JSON-encodable: strings, bools, integers, floats, string slices or
// nested maps.
type Params map[string]any

// Request is one action for the worker: {"id":...,"action":..., <params>}.
type Request struct {
	ID     string
	Action string
	Params Params
}

// NewRequest builds a request with a fresh best-effort ID.
func NewRequest(action string, params Params) *Request {
	if params == nil {
		params = Params{}
	}
	return &Request{ID: NewID(), Action: action, Params: params}
}

// Param returns a single parameter value.
func (r *Request) Param(key string) (any, bool) {
	v, ok := r.Params[key]
	return v, ok
}

// MarshalJSON flattens Params next to id and action. id and action come
// first; params follow in key order so encodings are stable.
func (r Request) MarshalJSON() ([]byte, error) {
	if r.Action == "" {
		return nil, errors.New("request has no action")
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	writeField(&buf, keyID, r.ID, true)
	writeField(&buf, keyAction, r.Action, false)

	keys := make([]string, 0, len(r.Params))
	for k := range r.Params {
		if k == keyID || k == keyAction {
			return nil, fmt.Errorf("param %q is reserved", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v, err := marshalNoEscape(r.Params[k])
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", k, err)
		}
		kb, _ := marshalNoEscape(k)
		buf.WriteByte(',')
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON splits a flat record back into id, action and Params.
// Numbers are kept as json.Number so integers survive a round trip.
func (r *Request) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if raw == nil {
		return errors.New("request is not an object")
	}

	action, ok := raw[keyAction].(string)
	if !ok || action == "" {
		return errors.New("request has no action")
	}
	id, _ := raw[keyID].(string)
	delete(raw, keyID)
	delete(raw, keyAction)

	r.ID = id
	r.Action = action
	r.Params = Params(raw)
	return nil
}

func writeField(buf *bytes.Buffer, key, value string, first bool) {
	if !first {
		buf.WriteByte(',')
	}
	k, _ := marshalNoEscape(key)
	v, _ := marshalNoEscape(value)
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
}

// marshalNoEscape encodes v without HTML escaping so selectors such as
// "ul > li" stay readable on the wire.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Response is the worker's reply: {"success":bool,"data":...,"error":"..."}.
//
// Data is kept as raw JSON so JSON output mode can pass it through without
// reinterpreting numbers or key order.
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *string         `json:"error,omitempty"`
}

// Failure builds a success:false response carrying msg.
func Failure(msg string) *Response {
	return &Response{Success: false, Error: &msg}
}

// ErrorMessage returns the error text, or "" when absent.
func (r *Response) ErrorMessage() string {
	if r == nil || r.Error == nil {
		return ""
	}
	return *r.Error
}

// HasData reports whether the response carries a non-null payload.
func (r *Response) HasData() bool {
	if r == nil {
		return false
	}
	trimmed := bytes.TrimSpace(r.Data)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// DataValue decodes the payload into generic JSON values with numbers kept
// as json.Number. Returns nil when there is no payload.
func (r *Response) DataValue() (any, error) {
	if !r.HasData() {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(r.Data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// UnmarshalJSON requires the success field; data and error are optional and
// a JSON null for either is treated as absent.
func (r *Response) UnmarshalJSON(data []byte) error {
	var aux struct {
		Success *bool           `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *string         `json:"error"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Success == nil {
		return errors.New("missing field `success`")
	}

	r.Success = *aux.Success
	r.Data = nil
	if trimmed := bytes.TrimSpace(aux.Data); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		r.Data = aux.Data
	}
	r.Error = aux.Error
	return nil
}

// NewID returns a best-effort correlation token: "r" followed by the current
// Unix time in microseconds modulo 1,000,000. It is not unique; one request
// per connection means nothing depends on it.
func NewID() string {
	return idAt(time.Now())
}

func idAt(t time.Time) string {
	return "r" + strconv.FormatInt(t.UnixMicro()%1_000_000, 10)
}
