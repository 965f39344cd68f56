package handlers

import (
	"net/http"

	h "github.com/rentdesk/rentdesk/internal/helpers"
	m "github.com/rentdesk/rentdesk/internal/middlewares"
	"github.com/rentdesk/rentdesk/internal/models"

	"go.uber.org/zap"
)

// requestContext extracts what every service method receives. Claims are empty on
// public routes.
func requestContext(w http.ResponseWriter, r *http.Request) (*zap.Logger, models.UserClaims, []uint, bool) {
	ids, ok := h.ParseIDs(w, r)
	if !ok {
		return nil, models.UserClaims{}, nil, false
	}

	claims, _ := h.GetUserClaims(r.Context())
	return m.GetLogger(r), claims, ids, true
}

func CreateHandler[In any, Out any](create func(*zap.Logger, models.UserClaims, []uint, In) (Out, error)) http.HandlerFunc {
	return respondWithBody(http.StatusCreated, create)
}

// UpdateHandler is CreateHandler answering 200 with the updated resource.
func UpdateHandler[In any, Out any](update func(*zap.Logger, models.UserClaims, []uint, In) (Out, error)) http.HandlerFunc {
	return respondWithBody(http.StatusOK, update)
}

func respondWithBody[In any, Out any](status int, fn func(*zap.Logger, models.UserClaims, []uint, In) (Out, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger, claims, ids, ok := requestContext(w, r)
		if !ok {
			return
		}

		body, ok := r.Context().Value(m.BodyKey{}).(In)
		if !ok {
			h.RespondWithError(w, http.StatusBadRequest, []string{"BAD_REQUEST"})
			return
		}

		resp, err := fn(logger, claims, ids, body)
		if err != nil {
			h.RespondWithErr(w, err)
			return
		}
		h.RespondWithJSON(w, status, resp)
	}
}

func GetOneHandler[Out any](getOne func(*zap.Logger, models.UserClaims, []uint) (Out, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger, claims, ids, ok := requestContext(w, r)
		if !ok {
			return
		}

		resp, err := getOne(logger, claims, ids)
		if err != nil {
			h.RespondWithErr(w, err)
			return
		}
		h.RespondWithJSON(w, http.StatusOK, resp)
	}
}

func GetListHandler[Out any](getList func(*zap.Logger, models.UserClaims, []uint) []Out) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger, claims, ids, ok := requestContext(w, r)
		if !ok {
			return
		}

		h.RespondWithJSON(w, http.StatusOK, models.Page[Out]{Data: nonNil(getList(logger, claims, ids))})
	}
}

func GetOneWithQueryHandler[Q any, Out any](getOne func(*zap.Logger, models.UserClaims, []uint, Q) (Out, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger, claims, ids, ok := requestContext(w, r)
		if !ok {
			return
		}

		query, _ := r.Context().Value(m.QueryKey{}).(Q)
		resp, err := getOne(logger, claims, ids, query)
		if err != nil {
			h.RespondWithErr(w, err)
			return
		}
		h.RespondWithJSON(w, http.StatusOK, resp)
	}
}

func GetListWithQueryHandler[Q any, Out any](getList func(*zap.Logger, models.UserClaims, []uint, Q) ([]Out, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger, claims, ids, ok := requestContext(w, r)
		if !ok {
			return
		}

		query, _ := r.Context().Value(m.QueryKey{}).(Q)
		list, err := getList(logger, claims, ids, query)
		if err != nil {
			h.RespondWithErr(w, err)
			return
		}
		h.RespondWithJSON(w, http.StatusOK, models.Page[Out]{Data: nonNil(list)})
	}
}

// BodyHandler runs an update or delete that carries a body and answers 204.
func BodyHandler[In any](fn func(*zap.Logger, models.UserClaims, []uint, In) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger, claims, ids, ok := requestContext(w, r)
		if !ok {
			return
		}

		body, ok := r.Context().Value(m.BodyKey{}).(In)
		if !ok {
			h.RespondWithError(w, http.StatusBadRequest, []string{"BAD_REQUEST"})
			return
		}

		if err := fn(logger, claims, ids, body); err != nil {
			h.RespondWithErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteHandler(del func(*zap.Logger, models.UserClaims, []uint) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger, claims, ids, ok := requestContext(w, r)
		if !ok {
			return
		}

		if err := del(logger, claims, ids); err != nil {
			h.RespondWithErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
