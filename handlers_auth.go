package main

import (
	"encoding/json"
	"errors"
	"net/http"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin verifies credentials and issues a token. Unknown email and
// wrong password produce the same response so callers cannot probe which
// accounts exist.
func (a *App) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFieldErrors(w, []fieldError{{Msg: "Invalid request body"}})
		return
	}

	var errs []fieldError
	if !validEmail(req.Email) {
		errs = append(errs, fieldError{Msg: "Please include a valid email"})
	}
	if req.Password == "" {
		errs = append(errs, fieldError{Msg: "Password is required"})
	}
	if len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	user, err := a.DB.GetUserByEmail(req.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeFieldErrors(w, []fieldError{{Msg: "Invalid credentials"}})
			return
		}
		writeServerError(w, err)
		return
	}
	if !comparePassword(user.Password, req.Password) {
		writeFieldErrors(w, []fieldError{{Msg: "Invalid credentials"}})
		return
	}

	token, err := a.Tokens.Issue(user.ID)
	if err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// HandleCurrentUser returns the authenticated account minus the password
// hash. The id comes from the verified token, not from client input.
func (a *App) HandleCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		writeMsg(w, http.StatusUnauthorized, "No token, authorization denied")
		return
	}
	user, err := a.DB.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeMsg(w, http.StatusNotFound, "User not found")
			return
		}
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
