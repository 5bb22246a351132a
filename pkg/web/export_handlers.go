package web

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/vcanio/Terio-sub000/pkg/export"
)

type exportStatusResponse struct {
	InProgress []export.Kind `json:"inProgress"`
}

func (s *Server) handleExportStatus(w http.ResponseWriter, r *http.Request) {
	busy := s.session.Exporter().Busy()
	if busy == nil {
		busy = []export.Kind{}
	}
	writeJSON(w, http.StatusOK, exportStatusResponse{InProgress: busy})
}

// handleExport snapshots the board, rasterises off the request goroutine and
// delivers the artifact as a download once it settles.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	kind, err := export.ParseKind(mux.Vars(r)["kind"])
	if err != nil {
		writeError(w, err)
		return
	}
	done, err := s.session.StartExport(r.Context(), kind)
	if err != nil {
		writeError(w, err)
		return
	}

	var res export.Result
	select {
	case res = <-done:
	case <-r.Context().Done():
		// Client went away; the export settles on its own
		return
	}
	if res.Err != nil {
		writeError(w, res.Err)
		return
	}
	deliverAttachment(w, res.Artifact)
}

func deliverAttachment(w http.ResponseWriter, a export.Artifact) {
	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(a.Data)
}
