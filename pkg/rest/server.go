package rest

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/edgeflare/tablegate/pkg/gateway"
	"github.com/edgeflare/tablegate/pkg/httputil"
	"go.uber.org/zap"
)

// MaxBodyBytes caps request bodies on POST and PUT.
const MaxBodyBytes = 1 << 20

type Options struct {
	// BaseURL prefixes every route, e.g. "/api".
	BaseURL string
	// StatusCodes maps error kinds to 4xx/5xx. When false every response is
	// sent with 200 and clients tell failures apart by the "error" key.
	StatusCodes bool
}

type Server struct {
	gw   *gateway.Gateway
	opts Options
}

func NewServer(gw *gateway.Gateway, opts Options) *Server {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Server{gw: gw, opts: opts}
}

// Register mounts the table routes and the health check on r.
func (s *Server) Register(r *httputil.Router) {
	g := r.Group(s.opts.BaseURL)
	g.HandleFunc("GET /tables", s.handleListTables)
	g.HandleFunc("GET /tables/{name}", s.handleReadTable)
	g.HandleFunc("POST /tables/{name}", s.handleCreate)
	g.HandleFunc("PUT /tables/{name}/{id}", s.handleUpdate)
	g.HandleFunc("DELETE /tables/{name}/{id}", s.handleDelete)
	g.HandleFunc("GET /healthz", s.handleHealth)
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.gw.ListTables(r.Context())
	if err != nil {
		s.error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string][]string{"tables": tables})
}

func (s *Server) handleReadTable(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	rows, err := s.gw.ReadTable(r.Context(), name)
	if err != nil {
		s.error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]any{name: rows})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	if err := s.gw.Create(r.Context(), r.PathValue("name"), body); err != nil {
		s.error(w, err)
		return
	}
	status := http.StatusOK
	if s.opts.StatusCodes {
		status = http.StatusCreated
	}
	httputil.Message(w, status, "Data inserted successfully")
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.recordID(w, r)
	if !ok {
		return
	}
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	if err := s.gw.Update(r.Context(), r.PathValue("name"), id, body); err != nil {
		s.error(w, err)
		return
	}
	httputil.Message(w, http.StatusOK, "Record updated successfully")
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := s.recordID(w, r)
	if !ok {
		return
	}
	if err := s.gw.Delete(r.Context(), r.PathValue("name"), id); err != nil {
		s.error(w, err)
		return
	}
	httputil.Message(w, http.StatusOK, "Record deleted successfully")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) recordID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.error(w, &gateway.Error{
			Kind:    gateway.KindInvalidInput,
			Message: fmt.Sprintf("Invalid record id '%s'", raw),
			Err:     err,
		})
		return 0, false
	}
	return id, true
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		httputil.Logger(r).Warn("reading request body", zap.Error(err))
		s.error(w, &gateway.Error{Kind: gateway.KindInvalidInput, Message: "Invalid request body", Err: err})
		return nil, false
	}
	return body, true
}

func (s *Server) error(w http.ResponseWriter, err error) {
	httputil.Error(w, s.status(gateway.KindOf(err)), err.Error())
}

func (s *Server) status(kind gateway.Kind) int {
	if !s.opts.StatusCodes {
		return http.StatusOK
	}
	switch kind {
	case gateway.KindNotFound:
		return http.StatusNotFound
	case gateway.KindInvalidInput:
		return http.StatusBadRequest
	case gateway.KindConnection:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
