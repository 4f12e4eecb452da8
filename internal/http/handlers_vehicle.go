package http

import (
	"net/http"

	"fleetbudget/internal/core"
)

func (s *Server) handleListVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := s.svc.Fleet.Vehicles(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]vehicleResponse, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, newVehicleResponse(v))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateVehicle(w http.ResponseWriter, r *http.Request) {
	var req createVehicleRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	v, err := s.svc.Fleet.AddVehicle(r.Context(), core.Vehicle{
		ID:           core.VehicleID(req.ID),
		Registration: req.Registration,
		Name:         req.Name,
		Branch:       req.Branch,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newVehicleResponse(v))
}
