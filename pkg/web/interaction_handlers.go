package web

import (
	"net/http"

	"github.com/vcanio/Terio-sub000/pkg/interact"
	"github.com/vcanio/Terio-sub000/pkg/viewport"
)

type gestureResponse struct {
	Outcome interact.Outcome `json:"outcome"`
	State   interact.State   `json:"state"`
}

type idRequest struct {
	ID string `json:"id"`
}

type pointerMoveRequest struct {
	X        float64        `json:"x"`
	Y        float64        `json:"y"`
	Rendered *viewport.Rect `json:"rendered,omitempty"` // board bounding box as measured by the client
}

type keyRequest struct {
	Key string `json:"key"`
}

// gesture runs fn against the active controller and writes its outcome
func (s *Server) gesture(w http.ResponseWriter, fn func(*interact.Controller) (interact.Outcome, interact.State)) {
	ctrl, err := s.session.Controller()
	if err != nil {
		writeError(w, err)
		return
	}
	o, st := fn(ctrl)
	writeJSON(w, http.StatusOK, gestureResponse{Outcome: o, State: st})
}

func (s *Server) handleInteractionState(w http.ResponseWriter, r *http.Request) {
	ctrl, err := s.session.Controller()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ctrl.State())
}

func (s *Server) handleToggleConnect(w http.ResponseWriter, r *http.Request) {
	s.gesture(w, (*interact.Controller).ToggleConnect)
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.gesture(w, func(c *interact.Controller) (interact.Outcome, interact.State) {
		return c.Click(req.ID)
	})
}

func (s *Server) handlePointerDown(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.gesture(w, func(c *interact.Controller) (interact.Outcome, interact.State) {
		return c.PointerDown(req.ID)
	})
}

func (s *Server) handlePointerMove(w http.ResponseWriter, r *http.Request) {
	var req pointerMoveRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.gesture(w, func(c *interact.Controller) (interact.Outcome, interact.State) {
		return c.PointerMove(viewport.Point{X: req.X, Y: req.Y}, req.Rendered)
	})
}

func (s *Server) handlePointerUp(w http.ResponseWriter, r *http.Request) {
	s.gesture(w, (*interact.Controller).PointerUp)
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.gesture(w, func(c *interact.Controller) (interact.Outcome, interact.State) {
		return c.Key(req.Key)
	})
}

type resizeRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type zoomRequest struct {
	Factor float64         `json:"factor,omitempty"` // relative zoom; ignored when Scale is set
	Scale  float64         `json:"scale,omitempty"`
	Focal  *viewport.Point `json:"focal,omitempty"`
}

type panRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

type nodeScaleRequest struct {
	Direction string `json:"direction"` // in or out
}

func (s *Server) handleViewportState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Viewport().State())
}

func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	var req resizeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Viewport().Resize(req.Width, req.Height))
}

func (s *Server) handleZoom(w http.ResponseWriter, r *http.Request) {
	var req zoomRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	v := s.session.Viewport()
	if req.Scale > 0 {
		writeJSON(w, http.StatusOK, v.ZoomTo(req.Scale, req.Focal))
		return
	}
	writeJSON(w, http.StatusOK, v.ZoomBy(req.Factor, req.Focal))
}

func (s *Server) handlePan(w http.ResponseWriter, r *http.Request) {
	var req panRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Viewport().Pan(req.DX, req.DY))
}

func (s *Server) handleViewportReset(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Viewport().Reset())
}

func (s *Server) handleNodeScale(w http.ResponseWriter, r *http.Request) {
	var req nodeScaleRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	v := s.session.Viewport()
	switch req.Direction {
	case "in":
		writeJSON(w, http.StatusOK, v.NodeScaleIn())
	case "out":
		writeJSON(w, http.StatusOK, v.NodeScaleOut())
	default:
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "direction must be in or out", Code: "bad_request"})
	}
}
