package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/snapmission/photo-services/models/common"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// writeMappedError translates pipeline errors into the response
// taxonomy: validation problems are the caller's fault, a missing
// record is 404, and anything else means storage failed under us.
func writeMappedError(w http.ResponseWriter, err error) {
	var validationErr *common.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, common.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "photo not found")
	default:
		writeError(w, http.StatusBadGateway, "storage unavailable, try again")
	}
}
