package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrParse reports a request that could not be framed: a bad request line,
// a header without ": ", or a body that is not a JSON object.
var ErrParse = errors.New("malformed request")

// Request is one parsed request blob.
type Request struct {
	Method  string
	Target  string // path as sent, query string included
	Path    string // path without the query string
	Query   map[string]string
	Headers map[string]string
	Body    map[string]any // nil when the request carries no body
}

// ParseRequest frames a request that arrived in a single read.
//
// The first line holds method, target and protocol; header lines follow up
// to the first blank line. The body is the last line of the blob, when that
// line comes after the blank line, and must be a JSON object.
func ParseRequest(raw []byte) (*Request, error) {
	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("%w: request is not valid UTF-8", ErrParse)
	}
	lines := splitLines(string(raw))
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: empty request", ErrParse)
	}

	parts := strings.Fields(lines[0])
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: request line %q", ErrParse, lines[0])
	}

	req := &Request{
		Method:  parts[0],
		Target:  parts[1],
		Headers: make(map[string]string),
	}
	req.Path, req.Query = ParseQuery(parts[1])

	blank := -1
	for i, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			blank = i + 1
			break
		}
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			return nil, fmt.Errorf("%w: header line %q", ErrParse, line)
		}
		req.Headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	last := len(lines) - 1
	if blank < 0 || last <= blank {
		return req, nil
	}
	payload := lines[last]
	if strings.TrimSpace(payload) == "" {
		return req, nil
	}
	body, err := decodeBody(payload)
	if err != nil {
		return nil, err
	}
	req.Body = body
	return req, nil
}

// decodeBody parses a JSON object, keeping numbers as json.Number.
func decodeBody(payload string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()

	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: body: %v", ErrParse, err)
	}
	if body == nil {
		return nil, fmt.Errorf("%w: body is not a JSON object", ErrParse)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after body", ErrParse)
	}
	return body, nil
}

// ParseQuery splits "path?k1=v1&k2=v2" into the bare path and its
// parameters. Parameters without "=" are dropped; nothing is URL-decoded.
func ParseQuery(target string) (string, map[string]string) {
	params := make(map[string]string)
	path, query, ok := strings.Cut(target, "?")
	if !ok {
		return path, params
	}
	for _, param := range strings.Split(query, "&") {
		key, value, ok := strings.Cut(param, "=")
		if !ok {
			continue
		}
		params[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return path, params
}

// splitLines splits on line breaks the way text line readers do: "\r\n" and
// "\n" both end a line and a trailing break does not start a new one.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
