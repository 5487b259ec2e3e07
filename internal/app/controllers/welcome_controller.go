package controllers

import (
	"errors"
	"net/http"

	"github.com/faeln1/go-onebot-guard/internal/app/repositories"
	"github.com/faeln1/go-onebot-guard/internal/app/services"
	"github.com/faeln1/go-onebot-guard/internal/domain/welcome"
)

type WelcomeController struct {
	service services.WelcomeService
}

func NewWelcomeController(s services.WelcomeService) *WelcomeController {
	return &WelcomeController{service: s}
}

func (c *WelcomeController) Get(w http.ResponseWriter, r *http.Request) {
	tpl, err := c.service.Get(r.Context(), r.PathValue("group_id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (c *WelcomeController) Set(w http.ResponseWriter, r *http.Request) {
	var in welcome.SetInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tpl, err := c.service.Set(r.Context(), r.PathValue("group_id"), in.Message)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

// Delete is idempotent: removing a missing template still answers 204.
func (c *WelcomeController) Delete(w http.ResponseWriter, r *http.Request) {
	err := c.service.Delete(r.Context(), r.PathValue("group_id"))
	if err != nil && !errors.Is(err, repositories.ErrWelcomeNotFound) {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
