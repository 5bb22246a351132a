package web

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/vcanio/Terio-sub000/pkg/patient"
)

type patientsResponse struct {
	Patients []patient.Patient `json:"patients"`
	ActiveID string            `json:"activeId,omitempty"`
}

type createPatientRequest struct {
	Name     string `json:"name"`
	Activate bool   `json:"activate"`
}

func (s *Server) handleListPatients(w http.ResponseWriter, r *http.Request) {
	list, err := s.patients.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	resp := patientsResponse{Patients: list}
	if p, err := s.session.Patient(); err == nil {
		resp.ActiveID = p.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreatePatient(w http.ResponseWriter, r *http.Request) {
	var req createPatientRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	p, err := s.patients.Create(r.Context(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.Activate {
		if _, err := s.session.Open(r.Context(), p.ID); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleActivePatient(w http.ResponseWriter, r *http.Request) {
	p, err := s.session.Patient()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleSetActivePatient(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	p, err := s.session.Open(r.Context(), req.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePatient(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if active, err := s.session.Patient(); err == nil && active.ID == id {
		writeJSON(w, http.StatusConflict, errorBody{Error: "cannot delete the open patient", Code: "patient_open"})
		return
	}
	if err := s.patients.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
