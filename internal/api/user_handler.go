package api

import (
	"net/http"
)

type updateProfileRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toUserView(currentUser(r)))
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := s.users.UpdateProfile(r.Context(), currentUser(r).ID, req.Name, req.Phone, req.Address)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(u))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	us, err := s.users.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	views := make([]userView, len(us))
	for i := range us {
		views[i] = toUserView(&us[i])
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleToggleBlock(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	u, err := s.users.ToggleBlock(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(u))
}
