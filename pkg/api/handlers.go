package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/topoedit/pkg/buildinfo"
	"github.com/matzehuels/topoedit/pkg/convert"
	"github.com/matzehuels/topoedit/pkg/errors"
	"github.com/matzehuels/topoedit/pkg/graph"
	"github.com/matzehuels/topoedit/pkg/render"
	"github.com/matzehuels/topoedit/pkg/schema"
	"github.com/matzehuels/topoedit/pkg/topology"
	"github.com/matzehuels/topoedit/pkg/validate"
)

// GraphPayload is a graph together with the metadata of the document it
// came from.
type GraphPayload struct {
	Meta  topology.Metadata `json:"meta"`
	Graph *graph.Graph      `json:"graph"`
}

// ValidateRequest is the body of POST /v1/validate. Exactly one of Graph
// and Topology is set. ServerErrors are appended to the findings as
// ServerError entries.
type ValidateRequest struct {
	Graph        *graph.Graph    `json:"graph,omitempty"`
	Topology     json.RawMessage `json:"topology,omitempty"`
	ServerErrors []string        `json:"serverErrors,omitempty"`
}

// ValidateResponse reports validation findings.
type ValidateResponse struct {
	Valid  bool             `json:"valid"`
	Errors []validate.Error `json:"errors"`
}

// SaveResponse answers a successful PUT.
type SaveResponse struct {
	Name   string           `json:"name"`
	Nodes  int              `json:"nodes"`
	Errors []validate.Error `json:"errors"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

// definitions lists the registry, optionally filtered with ?kind=source.
func (s *Server) definitions(w http.ResponseWriter, r *http.Request) {
	defs := s.reg.Definitions()
	if k := r.URL.Query().Get("kind"); k != "" {
		kind, err := topology.ParseNodeType(k)
		if err != nil {
			s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "kind"))
			return
		}
		filtered := make([]*schema.Definition, 0, len(defs))
		for _, d := range defs {
			if d.Kind == kind {
				filtered = append(filtered, d)
			}
		}
		defs = filtered
	}
	s.writeJSON(w, http.StatusOK, defs)
}

func (s *Server) flatten(w http.ResponseWriter, r *http.Request) {
	doc, err := s.readDocument(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	g, meta, err := s.flattenDoc(r, doc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, GraphPayload{Meta: meta, Graph: g})
}

func (s *Server) collect(w http.ResponseWriter, r *http.Request) {
	var p GraphPayload
	if err := s.decode(w, r, &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	if p.Graph == nil {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "graph is required"))
		return
	}
	s.writeJSON(w, http.StatusOK, convert.Collect(p.Graph, p.Meta, s.reg))
}

func (s *Server) validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	g := req.Graph
	switch {
	case g != nil && len(req.Topology) > 0:
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "set either graph or topology, not both"))
		return
	case len(req.Topology) > 0:
		doc, err := topology.Unmarshal(req.Topology)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if g, _, err = s.flattenDoc(r, doc); err != nil {
			s.writeError(w, r, err)
			return
		}
	case g == nil:
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "graph or topology is required"))
		return
	}

	errs := s.validator.Validate(g, validate.ServerErrors(req.ServerErrors...)...)
	s.writeJSON(w, http.StatusOK, ValidateResponse{Valid: len(errs) == 0, Errors: nonNil(errs)})
}

func (s *Server) listTopologies(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, nonNil(entries))
}

func (s *Server) getTopology(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

// putTopology stores the collected form of the body, so fields left over
// from type switches never reach the store.
func (s *Server) putTopology(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	force, err := boolQuery(r, "force")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	doc, err := s.readDocument(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	switch doc.Name {
	case "":
		doc.Name = name
	case name:
	default:
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "document name %q does not match %q", doc.Name, name))
		return
	}

	g, meta, err := s.flattenDoc(r, doc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	errs := s.validator.Validate(g)
	if len(errs) > 0 && !force {
		s.writeJSON(w, http.StatusUnprocessableEntity, ValidateResponse{Valid: false, Errors: errs})
		return
	}

	out := convert.Collect(g, meta, s.reg)
	if err := s.store.Put(r.Context(), out); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("topology saved", "name", name, "nodes", out.NodeCount(), "findings", len(errs))
	s.writeJSON(w, http.StatusOK, SaveResponse{Name: name, Nodes: out.NodeCount(), Errors: nonNil(errs)})
}

func (s *Server) deleteTopology(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// diagram renders a stored topology. ?highlight=errors outlines the nodes
// with validation findings.
func (s *Server) diagram(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := render.FormatSVG
	if f := q.Get("format"); f != "" {
		var err error
		if format, err = render.ParseFormat(f); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	detailed, err := boolQuery(r, "detailed")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	doc, err := s.store.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	g, _, err := s.flattenDoc(r, doc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	opts := render.Options{Detailed: detailed, Pinned: true}
	switch h := q.Get("highlight"); h {
	case "":
	case "errors":
		opts.Highlight = make(map[string]bool)
		for _, e := range s.validator.Validate(g) {
			if e.NodeID != "" {
				opts.Highlight[e.NodeID] = true
			}
		}
	default:
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "unknown highlight %q", h))
		return
	}

	data, err := s.renderer.Render(r.Context(), g, format, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) readDocument(w http.ResponseWriter, r *http.Request) (*topology.Document, error) {
	data, err := s.readBody(w, r)
	if err != nil {
		return nil, err
	}
	return topology.Unmarshal(data)
}

func (s *Server) flattenDoc(r *http.Request, doc *topology.Document) (*graph.Graph, topology.Metadata, error) {
	g, meta, err := convert.Flatten(r.Context(), doc, convert.Options{Engine: s.engine, Logger: s.logger})
	if err != nil {
		return nil, topology.Metadata{}, errors.Wrap(errors.ErrCodeInternal, err, "flatten %q", doc.Name)
	}
	return g, meta, nil
}

func boolQuery(r *http.Request, key string) (bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.New(errors.ErrCodeInvalidInput, "%s: not a boolean: %q", key, v)
	}
	return b, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
