package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type profileRequest struct {
	Company        string `json:"company"`
	Website        string `json:"website"`
	Location       string `json:"location"`
	Status         string `json:"status"`
	Skills         string `json:"skills"`
	Bio            string `json:"bio"`
	GithubUsername string `json:"github_username"`
	Youtube        string `json:"youtube"`
	Twitter        string `json:"twitter"`
	Facebook       string `json:"facebook"`
	Linkedin       string `json:"linkedin"`
	Instagram      string `json:"instagram"`
}

// HandleGetMyProfile returns the authenticated user's profile.
func (a *App) HandleGetMyProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	profile, err := a.DB.GetProfileByUserID(userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeMsg(w, http.StatusBadRequest, "There is no profile for this user")
			return
		}
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleUpsertProfile creates or replaces the authenticated user's profile.
// Experience and education entries are managed by their own routes and
// survive the upsert; everything else is last writer wins.
func (a *App) HandleUpsertProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFieldErrors(w, []fieldError{{Msg: "Invalid request body"}})
		return
	}

	var errs []fieldError
	if req.Status == "" {
		errs = append(errs, fieldError{Msg: "Status is required"})
	}
	if req.Skills == "" {
		errs = append(errs, fieldError{Msg: "Skills is required"})
	}
	if len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	profile := &Profile{
		UserID:     userID,
		Experience: []Experience{},
		Education:  []Education{},
	}
	if existing, err := a.DB.GetProfileByUserID(userID); err == nil {
		profile.ID = existing.ID
		profile.CreatedAt = existing.CreatedAt
		profile.Experience = existing.Experience
		profile.Education = existing.Education
	} else if !errors.Is(err, ErrNotFound) {
		writeServerError(w, err)
		return
	}

	profile.Company = req.Company
	profile.Website = req.Website
	profile.Location = req.Location
	profile.Status = req.Status
	profile.Skills = splitSkills(req.Skills)
	profile.Bio = req.Bio
	profile.GithubUsername = req.GithubUsername
	profile.Social = Social{
		Youtube:   req.Youtube,
		Twitter:   req.Twitter,
		Facebook:  req.Facebook,
		Linkedin:  req.Linkedin,
		Instagram: req.Instagram,
	}

	saved, err := a.DB.UpsertProfile(profile)
	if err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// HandleListProfiles returns all profiles. Public.
func (a *App) HandleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := a.DB.ListProfiles()
	if err != nil {
		writeServerError(w, err)
		return
	}
	if profiles == nil {
		profiles = []*Profile{}
	}
	writeJSON(w, http.StatusOK, profiles)
}

// HandleGetProfileByUser returns one user's profile. Public. A malformed id
// is indistinguishable from a missing profile, as in the original API.
func (a *App) HandleGetProfileByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(mux.Vars(r)["user_id"], 10, 64)
	if err != nil {
		writeMsg(w, http.StatusBadRequest, "Profile not found")
		return
	}
	profile, err := a.DB.GetProfileByUserID(userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeMsg(w, http.StatusBadRequest, "Profile not found")
			return
		}
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type experienceRequest struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	From        string `json:"from"`
	To          string `json:"to"`
	Current     bool   `json:"current"`
	Description string `json:"description"`
}

// HandleAddExperience prepends a work history entry to the profile.
func (a *App) HandleAddExperience(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())

	var req experienceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFieldErrors(w, []fieldError{{Msg: "Invalid request body"}})
		return
	}

	var errs []fieldError
	if req.Title == "" {
		errs = append(errs, fieldError{Msg: "Title is required"})
	}
	if req.Company == "" {
		errs = append(errs, fieldError{Msg: "Company is required"})
	}
	if req.From == "" {
		errs = append(errs, fieldError{Msg: "From date is required"})
	}
	if len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	profile, err := a.DB.GetProfileByUserID(userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeMsg(w, http.StatusBadRequest, "There is no profile for this user")
			return
		}
		writeServerError(w, err)
		return
	}

	entry := Experience{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Company:     req.Company,
		Location:    req.Location,
		From:        req.From,
		To:          req.To,
		Current:     req.Current,
		Description: req.Description,
	}
	profile.Experience = append([]Experience{entry}, profile.Experience...)

	saved, err := a.DB.UpsertProfile(profile)
	if err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// HandleDeleteExperience removes one work history entry by id.
func (a *App) HandleDeleteExperience(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	expID := mux.Vars(r)["exp_id"]

	profile, err := a.DB.GetProfileByUserID(userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeMsg(w, http.StatusBadRequest, "There is no profile for this user")
			return
		}
		writeServerError(w, err)
		return
	}

	kept := make([]Experience, 0, len(profile.Experience))
	for _, e := range profile.Experience {
		if e.ID != expID {
			kept = append(kept, e)
		}
	}
	profile.Experience = kept

	saved, err := a.DB.UpsertProfile(profile)
	if err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

type educationRequest struct {
	School       string `json:"school"`
	Degree       string `json:"degree"`
	FieldOfStudy string `json:"field_of_study"`
	From         string `json:"from"`
	To           string `json:"to"`
	Current      bool   `json:"current"`
	Description  string `json:"description"`
}

// HandleAddEducation prepends a schooling entry to the profile.
func (a *App) HandleAddEducation(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())

	var req educationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFieldErrors(w, []fieldError{{Msg: "Invalid request body"}})
		return
	}

	var errs []fieldError
	if req.School == "" {
		errs = append(errs, fieldError{Msg: "School is required"})
	}
	if req.Degree == "" {
		errs = append(errs, fieldError{Msg: "Degree is required"})
	}
	if req.FieldOfStudy == "" {
		errs = append(errs, fieldError{Msg: "Field of study is required"})
	}
	if req.From == "" {
		errs = append(errs, fieldError{Msg: "From date is required"})
	}
	if len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	profile, err := a.DB.GetProfileByUserID(userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeMsg(w, http.StatusBadRequest, "There is no profile for this user")
			return
		}
		writeServerError(w, err)
		return
	}

	entry := Education{
		ID:           uuid.NewString(),
		School:       req.School,
		Degree:       req.Degree,
		FieldOfStudy: req.FieldOfStudy,
		From:         req.From,
		To:           req.To,
		Current:      req.Current,
		Description:  req.Description,
	}
	profile.Education = append([]Education{entry}, profile.Education...)

	saved, err := a.DB.UpsertProfile(profile)
	if err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// HandleDeleteEducation removes one schooling entry by id.
func (a *App) HandleDeleteEducation(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	eduID := mux.Vars(r)["edu_id"]

	profile, err := a.DB.GetProfileByUserID(userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeMsg(w, http.StatusBadRequest, "There is no profile for this user")
			return
		}
		writeServerError(w, err)
		return
	}

	kept := make([]Education, 0, len(profile.Education))
	for _, e := range profile.Education {
		if e.ID != eduID {
			kept = append(kept, e)
		}
	}
	profile.Education = kept

	saved, err := a.DB.UpsertProfile(profile)
	if err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// HandleDeleteAccount removes the user's posts, profile and account.
func (a *App) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())

	if err := a.DB.DeletePostsByUser(userID); err != nil {
		writeServerError(w, err)
		return
	}
	if err := a.DB.DeleteProfileByUserID(userID); err != nil && !errors.Is(err, ErrNotFound) {
		writeServerError(w, err)
		return
	}
	if err := a.DB.DeleteUser(userID); err != nil && !errors.Is(err, ErrNotFound) {
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"msg": "User deleted"})
}
