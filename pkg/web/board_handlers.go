package web

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/vcanio/Terio-sub000/pkg/graph"
	"github.com/vcanio/Terio-sub000/pkg/interact"
	"github.com/vcanio/Terio-sub000/pkg/model"
	"github.com/vcanio/Terio-sub000/pkg/zone"
)

// mutationResponse answers every board mutation. Rejected input is not an
// error: Changed is false and the board is returned unchanged.
type mutationResponse struct {
	Changed bool        `json:"changed"`
	Version int         `json:"version"`
	Node    *model.Node `json:"node,omitempty"`
	Added   *bool       `json:"added,omitempty"`
	Board   model.Board `json:"board"`
}

type boardResponse struct {
	PatientID string      `json:"patientId"`
	Version   int         `json:"version"`
	Board     model.Board `json:"board"`
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	store, err := s.session.Store()
	if err != nil {
		writeError(w, err)
		return
	}
	p, _ := s.session.Patient()
	writeJSON(w, http.StatusOK, boardResponse{PatientID: p.ID, Version: store.Version(), Board: store.Snapshot()})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	store, err := s.session.Store()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, graph.Compute(store.Snapshot()))
}

func (s *Server) handleClearBoard(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Reset(); err != nil {
		writeError(w, err)
		return
	}
	s.respondMutation(w, true, nil, nil)
}

type addNodeRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Level    int    `json:"level"`
}

func (s *Server) handleAddNode(w http.ResponseWriter, r *http.Request) {
	var req addNodeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	store, err := s.session.Store()
	if err != nil {
		writeError(w, err)
		return
	}

	// Unknown categories and levels are rejected the same way as blank names
	cat, catErr := zone.ParseCategory(req.Category)
	lvl, lvlErr := zone.ParseLevel(req.Level)
	if catErr != nil || lvlErr != nil {
		s.respondMutation(w, false, nil, nil)
		return
	}
	n, ok := store.AddNode(req.Name, cat, lvl)
	if !ok {
		s.respondMutation(w, false, nil, nil)
		return
	}
	s.respondMutation(w, true, &n, nil)
}

type renameRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleRenameNode(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	store, err := s.session.Store()
	if err != nil {
		writeError(w, err)
		return
	}
	s.respondMutation(w, store.RenameNode(mux.Vars(r)["id"], req.Name), nil, nil)
}

func (s *Server) handleRenameCenter(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	store, err := s.session.Store()
	if err != nil {
		writeError(w, err)
		return
	}
	store.RenameCenter(req.Name)
	s.respondMutation(w, true, nil, nil)
}

type positionRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// handleMoveNode places a node at logical coordinates, for keyboard moves and
// clients that convert coordinates themselves
func (s *Server) handleMoveNode(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ctrl, err := s.session.Controller()
	if err != nil {
		writeError(w, err)
		return
	}
	n, o, _ := ctrl.MoveNode(mux.Vars(r)["id"], req.X, req.Y)
	if o != interact.OutcomeNodeMoved {
		s.respondMutation(w, false, nil, nil)
		return
	}
	s.respondMutation(w, true, &n, nil)
}

func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.session.Controller()
	if err != nil {
		writeError(w, err)
		return
	}
	// Through the controller so a pending connect source is cleared too
	o, _ := ctrl.DeleteNode(mux.Vars(r)["id"])
	s.respondMutation(w, o != interact.OutcomeNone, nil, nil)
}

type toggleEdgeRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (s *Server) handleToggleEdge(w http.ResponseWriter, r *http.Request) {
	var req toggleEdgeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	store, err := s.session.Store()
	if err != nil {
		writeError(w, err)
		return
	}
	added, changed := store.ToggleEdge(req.From, req.To)
	if !changed {
		s.respondMutation(w, false, nil, nil)
		return
	}
	s.respondMutation(w, true, nil, &added)
}

func (s *Server) handleDeleteEdge(w http.ResponseWriter, r *http.Request) {
	store, err := s.session.Store()
	if err != nil {
		writeError(w, err)
		return
	}
	s.respondMutation(w, store.DeleteEdge(mux.Vars(r)["id"]), nil, nil)
}

func (s *Server) respondMutation(w http.ResponseWriter, changed bool, n *model.Node, added *bool) {
	store, err := s.session.Store()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse{
		Changed: changed,
		Version: store.Version(),
		Node:    n,
		Added:   added,
		Board:   store.Snapshot(),
	})
}
