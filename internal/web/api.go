package web

import (
	"net/http"
	"strconv"

	"github.com/zheng/ctb/internal/graph"
)

const (
	defaultTreeDepth   = 3
	defaultSearchLimit = 50
)

// TreeData is the response of /api/tree
type TreeData struct {
	Root      graph.MethodRef   `json:"root"`
	Direction graph.Direction   `json:"direction"`
	Depth     int               `json:"depth"`
	Children  []*graph.TreeNode `json:"children"`
}

// handleStats returns graph statistics
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.graph.Store().Stats())
}

func (s *Server) handleClasses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.graph.Store().ListClasses())
}

func (s *Server) handleClass(w http.ResponseWriter, r *http.Request) {
	cls, err := pathParam(r, "cls")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid class name")
		return
	}
	info, err := s.graph.Store().GetClass(cls)
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, info)
}

func (s *Server) handleEntrypoints(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.graph.Store().ListEntrypoints())
}

func (s *Server) handleMethod(w http.ResponseWriter, r *http.Request) {
	ref, err := methodParams(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid method reference")
		return
	}
	info, err := s.graph.Store().GetMethod(ref.Class, ref.Signature)
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, info)
}

// handleTree expands the callers or callees of a method.
// Query: direction=downstream|upstream, depth=N (0 for unlimited).
func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	ref, err := methodParams(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid method reference")
		return
	}
	dir, err := graph.ParseDirection(r.URL.Query().Get("direction"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	depth := defaultTreeDepth
	if d := r.URL.Query().Get("depth"); d != "" {
		parsed, err := strconv.Atoi(d)
		if err != nil || parsed < 0 {
			writeJSONError(w, http.StatusBadRequest, "depth must be a non-negative integer")
			return
		}
		depth = parsed
	}

	tree, err := s.graph.Store().CallTree(ref, dir, depth)
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, TreeData{Root: ref, Direction: dir, Depth: depth, Children: tree})
}

// handleSearch searches methods by substring
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSONError(w, http.StatusBadRequest, "missing q")
		return
	}
	limit := defaultSearchLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}
	results := s.graph.Store().Search(q, limit)
	if results == nil {
		results = []graph.MethodRef{}
	}
	writeJSON(w, results)
}
