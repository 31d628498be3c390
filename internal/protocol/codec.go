package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// Delimiter terminates every record on the wire.
const Delimiter = '\n'

// Encode returns the wire form of v: one compact JSON record followed by the
// delimiter.
func Encode(v any) ([]byte, error) {
	b, err := marshalNoEscape(v)
	if err != nil {
		return nil, err
	}
	if bytes.IndexByte(b, Delimiter) >= 0 {
		return nil, errors.New("encoded record contains a raw newline")
	}
	return append(b, Delimiter), nil
}

// ReadRecord reads one delimiter-terminated record. A final record cut off
// by EOF is still returned; io.EOF is only reported when nothing was read.
func ReadRecord(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadBytes(Delimiter)
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return line, nil
		}
		return nil, err
	}
	return line, nil
}

// DecodeResponse parses one record into a Response.
func DecodeResponse(record []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(bytes.TrimSpace(record), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DecodeRequest parses one record into a Request.
func DecodeRequest(record []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(bytes.TrimSpace(record), &req); err != nil {
		return nil, err
	}
	return &req, nil
}
