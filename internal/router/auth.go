package router

import (
	"net/http"

	"github.com/mvolkov/biotap/internal/auth"
	"github.com/mvolkov/biotap/internal/models"
)

// PostRegister creates an account and returns its first access token.
func (r *Router) PostRegister(res http.ResponseWriter, req *http.Request) {
	request := &models.RegisterRequest{}
	if err := r.decodeAndValidate(req, request); err != nil {
		http.Error(res, err.Error(), http.StatusBadRequest)
		return
	}

	_, token, err := r.service.Register(req.Context(), request)
	if err != nil {
		writeError(res, err)
		return
	}

	writeJSON(res, http.StatusCreated, token)
}

// PostLogin exchanges username/password for an access token.
func (r *Router) PostLogin(res http.ResponseWriter, req *http.Request) {
	request := &models.LoginRequest{}
	if err := r.decodeAndValidate(req, request); err != nil {
		http.Error(res, err.Error(), http.StatusBadRequest)
		return
	}

	_, token, err := r.service.Login(req.Context(), request)
	if err != nil {
		writeError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, token)
}

type messageResponse struct {
	Message string `json:"message"`
}

// PostPasswordResetRequest always reports success so the endpoint does
// not reveal which email addresses have accounts.
func (r *Router) PostPasswordResetRequest(res http.ResponseWriter, req *http.Request) {
	request := &models.PasswordResetRequest{}
	if err := r.decodeAndValidate(req, request); err != nil {
		http.Error(res, err.Error(), http.StatusBadRequest)
		return
	}

	if err := r.service.RequestPasswordReset(req.Context(), request.Email); err != nil {
		writeError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, messageResponse{
		Message: "If the email exists, a password reset link has been sent",
	})
}

func (r *Router) PostPasswordResetConfirm(res http.ResponseWriter, req *http.Request) {
	request := &models.PasswordResetConfirm{}
	if err := r.decodeAndValidate(req, request); err != nil {
		http.Error(res, err.Error(), http.StatusBadRequest)
		return
	}

	if err := r.service.ConfirmPasswordReset(req.Context(), request.Token, request.NewPassword); err != nil {
		writeError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, messageResponse{Message: "Password has been reset successfully"})
}

// GetMe returns the authenticated user's profile.
func (r *Router) GetMe(res http.ResponseWriter, req *http.Request) {
	usr, ok := auth.UserFromContext(req.Context())
	if !ok {
		http.Error(res, "unauthorized", http.StatusUnauthorized)
		return
	}

	writeJSON(res, http.StatusOK, usr)
}

// PatchMe updates the authenticated user's profile fields.
func (r *Router) PatchMe(res http.ResponseWriter, req *http.Request) {
	usr, ok := auth.UserFromContext(req.Context())
	if !ok {
		http.Error(res, "unauthorized", http.StatusUnauthorized)
		return
	}

	request := &models.UserUpdateRequest{}
	if err := r.decodeAndValidate(req, request); err != nil {
		http.Error(res, err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := r.service.UpdateUser(req.Context(), usr, request)
	if err != nil {
		writeError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, updated)
}

// DeleteMe removes the authenticated user's account with its links and
// click history.
func (r *Router) DeleteMe(res http.ResponseWriter, req *http.Request) {
	usr, ok := auth.UserFromContext(req.Context())
	if !ok {
		http.Error(res, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.service.DeleteUser(req.Context(), usr.ID); err != nil {
		writeError(res, err)
		return
	}

	res.WriteHeader(http.StatusNoContent)
}

func (r *Router) PostChangePassword(res http.ResponseWriter, req *http.Request) {
	usr, ok := auth.UserFromContext(req.Context())
	if !ok {
		http.Error(res, "unauthorized", http.StatusUnauthorized)
		return
	}

	request := &models.PasswordChangeRequest{}
	if err := r.decodeAndValidate(req, request); err != nil {
		http.Error(res, err.Error(), http.StatusBadRequest)
		return
	}

	if err := r.service.ChangePassword(req.Context(), usr, request); err != nil {
		writeError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, messageResponse{Message: "Password changed successfully"})
}
