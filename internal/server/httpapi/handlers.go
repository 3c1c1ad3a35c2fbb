package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/geocapsule/internal/api"
	"github.com/dmitrijs2005/geocapsule/internal/common"
	"github.com/dmitrijs2005/geocapsule/internal/server/models"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// UserService is the authentication surface the handlers depend on.
type UserService interface {
	Register(ctx context.Context, login string, password string) (*models.User, error)
	Login(ctx context.Context, login string, password string) (string, error)
}

// CapsuleService is the collection surface the handlers depend on.
type CapsuleService interface {
	GetCtag(ctx context.Context, userID string, collection string) (string, error)
	List(ctx context.Context, userID string, collection string) ([]*models.OwnedCapsule, error)
	CreateOrUpdate(ctx context.Context, userID string, req *api.UpsertCapsuleRequest) (*api.CapsuleRecord, error)
	Delete(ctx context.Context, userID string, syncID int64) (bool, error)
}

// Handler holds the route implementations for the JSON API.
type Handler struct {
	users    UserService
	capsules CapsuleService
	validate *validator.Validate
}

func NewHandler(users UserService, capsules CapsuleService) *Handler {
	return &Handler{
		users:    users,
		capsules: capsules,
		validate: validator.New(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, messages ...string) {
	writeJSON(w, status, api.ErrorResponse{Error: msg, Messages: messages})
}

func (h *Handler) validationMessages(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Field()+" failed on "+fe.Tag())
	}
	return msgs
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation failed", h.validationMessages(err)...)
		return
	}

	if _, err := h.users.Register(r.Context(), req.Login, req.Password); err != nil {
		if errors.Is(err, common.ErrLoginAlreadyExists) {
			writeError(w, http.StatusConflict, "login already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation failed", h.validationMessages(err)...)
		return
	}

	token, err := h.users.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidLoginOrPassword) {
			writeError(w, http.StatusUnauthorized, "invalid login or password")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, api.LoginResponse{AccessToken: token})
}

func (h *Handler) GetCtag(w http.ResponseWriter, r *http.Request) {
	collection := mux.Vars(r)["collection"]

	ctag, err := h.capsules.GetCtag(r.Context(), getUserID(r), collection)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown collection")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, api.CtagResponse{Ctag: ctag})
}

func (h *Handler) ListCollection(w http.ResponseWriter, r *http.Request) {
	collection := mux.Vars(r)["collection"]

	items, err := h.capsules.List(r.Context(), getUserID(r), collection)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown collection")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := api.ListCollectionResponse{Records: make([]api.CapsuleRecord, 0, len(items))}
	for _, item := range items {
		resp.Records = append(resp.Records, api.CapsuleRecord{
			SyncID: item.SyncID,
			Name:   item.Name,
			Lat:    item.Lat,
			Lng:    item.Lng,
			Etag:   item.Etag,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) UpsertCapsule(w http.ResponseWriter, r *http.Request) {
	var req api.UpsertCapsuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation failed", h.validationMessages(err)...)
		return
	}

	record, err := h.capsules.CreateOrUpdate(r.Context(), getUserID(r), &req)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrVersionConflict):
			writeError(w, http.StatusConflict, "version conflict")
		case errors.Is(err, common.ErrNotFound):
			writeError(w, http.StatusNotFound, "capsule not found")
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) DeleteCapsule(w http.ResponseWriter, r *http.Request) {
	syncID, err := strconv.ParseInt(mux.Vars(r)["syncID"], 10, 64)
	if err != nil || syncID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid sync id")
		return
	}

	existed, err := h.capsules.Delete(r.Context(), getUserID(r), syncID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !existed {
		writeError(w, http.StatusNotFound, "capsule not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
