package server

import (
	"net/http"

	"github.com/joseph-ayodele/repair-jobsheets/internal/common"
	"github.com/joseph-ayodele/repair-jobsheets/internal/services/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.errs.write(w, r, err)
		return
	}
	sess, err := a.deps.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: sess, Message: "Login successful"})
}

func (a *API) verify(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]string{
		"email": common.AdminEmailFromContext(r.Context()),
		"role":  auth.RoleAdmin,
	})
}

func (a *API) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		a.errs.write(w, r, err)
		return
	}
	resp, err := a.deps.Auth.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		a.errs.write(w, r, err)
		return
	}
	body := envelope{Success: true, Message: resp.Message}
	if resp.Token != "" {
		body.Data = map[string]string{"resetToken": resp.Token}
	}
	writeJSON(w, http.StatusOK, body)
}

func (a *API) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		a.errs.write(w, r, err)
		return
	}
	if err := a.deps.Auth.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		a.errs.write(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, auth.ResetDoneMessage)
}
