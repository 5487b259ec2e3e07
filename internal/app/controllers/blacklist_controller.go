package controllers

import (
	"net/http"
	"strconv"

	"github.com/faeln1/go-onebot-guard/internal/app/services"
	"github.com/faeln1/go-onebot-guard/internal/domain/blacklist"
)

// APIActor is recorded as added_by for entries created over the admin API.
const APIActor = "api"

type BlacklistController struct {
	service services.BlacklistService
}

func NewBlacklistController(s services.BlacklistService) *BlacklistController {
	return &BlacklistController{service: s}
}

// List handles GET /api/blacklist?group_id=&global=&limit=&offset=.
func (c *BlacklistController) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := blacklist.ListOptions{GroupID: q.Get("group_id")}
	opts.Global, _ = strconv.ParseBool(q.Get("global"))
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, errInvalidQuery("limit"))
			return
		}
		opts.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, errInvalidQuery("offset"))
			return
		}
		opts.Offset = n
	}

	entries, err := c.service.List(r.Context(), opts)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
		"offset":  opts.Offset,
	})
}

func (c *BlacklistController) Create(w http.ResponseWriter, r *http.Request) {
	var in blacklist.AddInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	entry, err := c.service.Add(r.Context(), in, APIActor)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// Get returns the entry in the exact scope given by group_id (empty is global).
func (c *BlacklistController) Get(w http.ResponseWriter, r *http.Request) {
	entry, err := c.service.Get(r.Context(), r.PathValue("user_id"), r.URL.Query().Get("group_id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (c *BlacklistController) Delete(w http.ResponseWriter, r *http.Request) {
	if err := c.service.Remove(r.Context(), r.PathValue("user_id"), r.URL.Query().Get("group_id")); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type errInvalidQuery string

func (e errInvalidQuery) Error() string { return "invalid query parameter: " + string(e) }
