package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Content types produced by the router.
const (
	ContentJSON = "application/json"
	ContentHTML = "text/html"
	ContentJS   = "text/javascript"
)

// Response is one framed reply. Every reply closes the connection.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// JSONResponse renders v as the body.
func JSONResponse(status int, v any) (Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return Response{}, fmt.Errorf("failed to encode response: %w", err)
	}
	return Response{Status: status, ContentType: ContentJSON, Body: body}, nil
}

// TextResponse sends body verbatim.
func TextResponse(status int, contentType string, body []byte) Response {
	return Response{Status: status, ContentType: contentType, Body: body}
}

// ErrorResponse sends a short HTML message.
func ErrorResponse(status int, msg string) Response {
	return Response{Status: status, ContentType: ContentHTML, Body: []byte(msg)}
}

// Reason returns the reason phrase for the status line.
func (r Response) Reason() string {
	if text := http.StatusText(r.Status); text != "" {
		return text
	}
	return "Error"
}

// Bytes renders the status line, headers, blank line and body.
func (r Response) Bytes() []byte {
	var b strings.Builder
	b.Grow(128 + len(r.Body))
	b.WriteString("HTTP/1.1 ")
	b.WriteString(strconv.Itoa(r.Status))
	b.WriteByte(' ')
	b.WriteString(r.Reason())
	b.WriteString("\r\nContent-Type: ")
	b.WriteString(r.ContentType)
	b.WriteString("\r\nContent-Length: ")
	b.WriteString(strconv.Itoa(len(r.Body)))
	b.WriteString("\r\nConnection: close\r\n\r\n")
	b.Write(r.Body)
	return []byte(b.String())
}
