package helpers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const maxRouteIDs = 3

// ParseIDs reads the {id0}, {id1}, ... route parameters in order. It writes a 400 and
// returns false when one of them is not a positive integer.
func ParseIDs(w http.ResponseWriter, r *http.Request) ([]uint, bool) {
	var ids []uint
	for i := 0; i < maxRouteIDs; i++ {
		raw := chi.URLParam(r, fmt.Sprintf("id%d", i))
		if raw == "" {
			break
		}

		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			RespondWithError(w, http.StatusBadRequest, []string{"INVALID_ID"})
			return nil, false
		}
		ids = append(ids, uint(id))
	}
	return ids, true
}
