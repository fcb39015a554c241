package main

import (
	"encoding/json"
	"errors"
	"net/http"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates an account and logs the user straight in by
// returning a signed token.
func (a *App) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFieldErrors(w, []fieldError{{Msg: "Invalid request body"}})
		return
	}

	var errs []fieldError
	if req.Name == "" {
		errs = append(errs, fieldError{Msg: "Name is required"})
	}
	if !validEmail(req.Email) {
		errs = append(errs, fieldError{Msg: "Please include a valid email"})
	}
	if len(req.Password) < 6 {
		errs = append(errs, fieldError{Msg: "Please enter a password with 6 or more characters"})
	}
	if len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	if _, err := a.DB.GetUserByEmail(req.Email); err == nil {
		writeFieldErrors(w, []fieldError{{Msg: "User already exists"}})
		return
	} else if !errors.Is(err, ErrNotFound) {
		writeServerError(w, err)
		return
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		writeServerError(w, err)
		return
	}
	user, err := a.DB.CreateUser(req.Name, req.Email, hashed, gravatarURL(req.Email))
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			writeFieldErrors(w, []fieldError{{Msg: "User already exists"}})
			return
		}
		writeServerError(w, err)
		return
	}

	token, err := a.Tokens.Issue(user.ID)
	if err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}
