package server

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"log/slog"

	"github.com/aretw0/notesd/pkg/core"
)

var (
	// ErrBadRequest reports a request missing required fields or parameters.
	ErrBadRequest = errors.New("bad request")
	// ErrRouteNotFound reports a path with no handler for its method.
	ErrRouteNotFound = errors.New("route not found")
	// ErrMethodNotAllowed reports a method the router does not serve.
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// Handler serves one route.
type Handler func(ctx context.Context, req *Request) (Response, error)

// Router dispatches by method, then by exact path.
type Router struct {
	notes  *core.NoteRepository
	assets iofs.FS
	logger *slog.Logger
	routes map[string]map[string]Handler
}

// NewRouter binds the note endpoints to notes. assets provides index.html
// and api.js; nil serves 404 for both.
func NewRouter(notes *core.NoteRepository, assets iofs.FS, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{notes: notes, assets: assets, logger: logger}
	r.routes = map[string]map[string]Handler{
		"GET": {
			"/notes":  r.listNotes,
			"/":       r.asset("index.html", ContentHTML),
			"/api.js": r.asset("api.js", ContentJS),
			"/search": r.searchNotes,
		},
		"POST":   {"/notes": r.createNote},
		"PUT":    {"/notes": r.updateNote},
		"DELETE": {"/notes": r.deleteNote},
	}
	return r
}

// Dispatch runs the handler registered for req.
func (r *Router) Dispatch(ctx context.Context, req *Request) (Response, error) {
	paths, ok := r.routes[req.Method]
	if !ok {
		return Response{}, fmt.Errorf("%w: %s", ErrMethodNotAllowed, req.Method)
	}
	h, ok := paths[req.Path]
	if !ok {
		return Response{}, fmt.Errorf("%w: %s %s", ErrRouteNotFound, req.Method, req.Path)
	}
	return h(ctx, req)
}

// Serve parses raw and dispatches it, turning every error into a response.
// The parsed request is nil when raw could not be framed.
func (r *Router) Serve(ctx context.Context, raw []byte) (*Request, Response) {
	req, err := ParseRequest(raw)
	if err != nil {
		return nil, r.errorResponse(err)
	}
	resp, err := r.Dispatch(ctx, req)
	if err != nil {
		return req, r.errorResponse(err)
	}
	return req, resp
}

func (r *Router) errorResponse(err error) Response {
	status := StatusFor(err)
	if status >= 500 {
		r.logger.Error("request failed", "error", err)
	} else {
		r.logger.Debug("request rejected", "status", status, "error", err)
	}
	return ErrorResponse(status, errorMessage(status, err))
}

// StatusFor maps an error to its HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrParse):
		return 400
	case errors.Is(err, ErrRouteNotFound), errors.Is(err, core.ErrNotFound), errors.Is(err, iofs.ErrNotExist):
		return 404
	case errors.Is(err, ErrMethodNotAllowed):
		return 405
	default:
		return 500
	}
}

func errorMessage(status int, err error) string {
	switch status {
	case 400:
		return "Bad Request: " + err.Error()
	case 404:
		return "Not Found"
	case 405:
		return "Method Not Allowed"
	default:
		return "Internal Server Error"
	}
}

var statusOK = map[string]string{"status": "ok"}

func (r *Router) listNotes(ctx context.Context, _ *Request) (Response, error) {
	notes, err := r.notes.ListNotes(ctx)
	if err != nil {
		return Response{}, err
	}
	return JSONResponse(200, notes)
}

func (r *Router) searchNotes(ctx context.Context, req *Request) (Response, error) {
	q, ok := req.Query["q"]
	if !ok {
		return Response{}, fmt.Errorf("%w: missing query parameter q", ErrBadRequest)
	}
	notes, err := r.notes.SearchNotes(ctx, q)
	if err != nil {
		return Response{}, err
	}
	return JSONResponse(200, notes)
}

func (r *Router) asset(name, contentType string) Handler {
	return func(_ context.Context, _ *Request) (Response, error) {
		if r.assets == nil {
			return Response{}, fmt.Errorf("%w: %s", ErrRouteNotFound, name)
		}
		data, err := iofs.ReadFile(r.assets, name)
		if err != nil {
			return Response{}, fmt.Errorf("failed to read asset %s: %w", name, err)
		}
		return TextResponse(200, contentType, data), nil
	}
}

func (r *Router) createNote(ctx context.Context, req *Request) (Response, error) {
	title, err := stringField(req, "title")
	if err != nil {
		return Response{}, err
	}
	content, err := stringField(req, "content")
	if err != nil {
		return Response{}, err
	}
	id, err := r.notes.CreateNote(ctx, title, content)
	if err != nil {
		return Response{}, err
	}
	r.logger.Debug("note created", "id", id)
	return JSONResponse(200, statusOK)
}

func (r *Router) updateNote(ctx context.Context, req *Request) (Response, error) {
	id, err := idField(req)
	if err != nil {
		return Response{}, err
	}
	title, err := stringField(req, "title")
	if err != nil {
		return Response{}, err
	}
	content, err := stringField(req, "content")
	if err != nil {
		return Response{}, err
	}
	if err := r.notes.UpdateNote(ctx, id, title, content); err != nil {
		return Response{}, err
	}
	return JSONResponse(200, statusOK)
}

func (r *Router) deleteNote(ctx context.Context, req *Request) (Response, error) {
	id, err := idField(req)
	if err != nil {
		return Response{}, err
	}
	if err := r.notes.DeleteNote(ctx, id); err != nil {
		return Response{}, err
	}
	return JSONResponse(200, statusOK)
}

func stringField(req *Request, name string) (string, error) {
	v, ok := req.Body[name]
	if !ok {
		return "", fmt.Errorf("%w: missing field %q", ErrBadRequest, name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: field %q must be a string", ErrBadRequest, name)
	}
	return s, nil
}

func idField(req *Request) (int, error) {
	v, ok := req.Body[core.IDField]
	if !ok {
		return 0, fmt.Errorf("%w: missing field %q", ErrBadRequest, core.IDField)
	}
	id, err := core.CoerceID(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return id, nil
}
