package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vango-dev/vgraph/pkg/graph"
	"github.com/vango-dev/vgraph/pkg/snapshot"
)

// maxBodySize bounds PUT /nodes/{name} bodies.
const maxBodySize = 1 << 20

// NodeValue is the body of GET and PUT /nodes/{name} responses.
type NodeValue struct {
	Name  string `json:"name"`
	Time  uint64 `json:"time"`
	Value any    `json:"value,omitempty"`
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, snapshot.Take(s.graph))
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	id, ok := s.lookup(name)
	if !ok {
		writeError(w, http.StatusNotFound, "node "+name+" cannot be found")
		return
	}

	now := s.graph.Timestamp()
	v, err := s.graph.Get(r.Context(), id, now, nil)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NodeValue{Name: name, Time: now.Uint64(), Value: v})
}

func (s *Server) handleSetNode(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	id, ok := s.lookup(name)
	if !ok {
		writeError(w, http.StatusNotFound, "node "+name+" cannot be found")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	v, err := decodeValue(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON value: "+err.Error())
		return
	}

	commit, err := s.graph.Set(r.Context(), id, nil, v)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	t, err := commit.Wait(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NodeValue{Name: name, Time: t.Uint64(), Value: v})
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	var names []string
	if q := r.URL.Query().Get("root"); q != "" {
		names = strings.Split(q, ",")
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, snapshot.Take(s.graph).Tree(names...))
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, graph.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, graph.ErrMissingContext):
		return http.StatusBadRequest
	case errors.Is(err, graph.ErrNotInputNode):
		return http.StatusConflict
	case errors.Is(err, graph.ErrTypeMismatch):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// decodeValue parses a JSON value, keeping integral numbers as int64.
func decodeValue(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data")
	}
	return normalize(v), nil
}

func normalize(v any) any {
	switch v := v.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		f, _ := v.Float64()
		return f
	case []any:
		for i := range v {
			v[i] = normalize(v[i])
		}
		return v
	case map[string]any:
		for k := range v {
			v[k] = normalize(v[k])
		}
		return v
	default:
		return v
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
