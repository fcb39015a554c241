package main

import (
	"encoding/json"
	"log"
	"net/http"
)

// fieldError is one entry of a validation error list.
type fieldError struct {
	Msg string `json:"msg"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json: %v", err)
	}
}

// writeMsg writes a {"msg": ...} body, the shape used by auth rejections,
// ownership failures and missing resources.
func writeMsg(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"msg": msg})
}

// writeFieldErrors writes a 400 {"errors":[{"msg":...},...]} body, the shape
// used for validation and credential failures.
func writeFieldErrors(w http.ResponseWriter, errs []fieldError) {
	writeJSON(w, http.StatusBadRequest, map[string][]fieldError{"errors": errs})
}

// writeServerError logs the cause and replies with the plain-text 500 the
// original API used for unexpected failures.
func writeServerError(w http.ResponseWriter, err error) {
	if err != nil {
		log.Printf("server error: %v", err)
	}
	http.Error(w, "Server error", http.StatusInternalServerError)
}
