package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// postID parses the {id} route variable. A malformed id behaves like a
// missing post, matching how the original treated bad object ids.
func postID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil
}

type postRequest struct {
	Text string `json:"text"`
}

// HandleCreatePost creates a post owned by the authenticated user, with the
// byline denormalized from the account.
func (a *App) HandleCreatePost(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())

	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFieldErrors(w, []fieldError{{Msg: "Invalid request body"}})
		return
	}
	if req.Text == "" {
		writeFieldErrors(w, []fieldError{{Msg: "Text is required"}})
		return
	}

	user, err := a.DB.GetUserByID(userID)
	if err != nil {
		writeServerError(w, err)
		return
	}

	post, err := a.DB.CreatePost(&Post{
		UserID: userID,
		Name:   user.Name,
		Avatar: user.Avatar,
		Text:   req.Text,
	})
	if err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleListPosts returns all posts, newest first.
func (a *App) HandleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := a.DB.ListPosts()
	if err != nil {
		writeServerError(w, err)
		return
	}
	if posts == nil {
		posts = []*Post{}
	}
	writeJSON(w, http.StatusOK, posts)
}

// HandleGetPost returns one post with its likes and comments.
func (a *App) HandleGetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(r)
	if !ok {
		writeMsg(w, http.StatusNotFound, "Post not found")
		return
	}
	post, err := a.DB.GetPostByID(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeMsg(w, http.StatusNotFound, "Post not found")
			return
		}
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleDeletePost deletes a post. Only the owner may delete it; the check
// runs before any mutation.
func (a *App) HandleDeletePost(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	id, ok := postID(r)
	if !ok {
		writeMsg(w, http.StatusNotFound, "Post not found")
		return
	}

	post, err := a.DB.GetPostByID(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeMsg(w, http.StatusNotFound, "Post not found")
			return
		}
		writeServerError(w, err)
		return
	}
	if post.UserID != userID {
		writeMsg(w, http.StatusUnauthorized, "User not authorized")
		return
	}

	if err := a.DB.DeletePost(id); err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"msg": "Post has been removed"})
}

// HandleLikePost records a like. A user may like a post at most once.
func (a *App) HandleLikePost(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	id, ok := postID(r)
	if !ok {
		writeMsg(w, http.StatusNotFound, "Post not found")
		return
	}

	if _, err := a.DB.GetPostByID(id); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeMsg(w, http.StatusNotFound, "Post not found")
			return
		}
		writeServerError(w, err)
		return
	}

	if err := a.DB.AddLike(id, userID); err != nil {
		if errors.Is(err, ErrDuplicateLike) {
			writeMsg(w, http.StatusBadRequest, "Post has already been liked")
			return
		}
		writeServerError(w, err)
		return
	}

	post, err := a.DB.GetPostByID(id)
	if err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post.Likes)
}

// HandleUnlikePost removes the caller's like.
func (a *App) HandleUnlikePost(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	id, ok := postID(r)
	if !ok {
		writeMsg(w, http.StatusNotFound, "Post not found")
		return
	}

	if _, err := a.DB.GetPostByID(id); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeMsg(w, http.StatusNotFound, "Post not found")
			return
		}
		writeServerError(w, err)
		return
	}

	if err := a.DB.RemoveLike(id, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeMsg(w, http.StatusBadRequest, "Has not yet been liked")
			return
		}
		writeServerError(w, err)
		return
	}

	post, err := a.DB.GetPostByID(id)
	if err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post.Likes)
}

// HandleAddComment adds a comment to a post.
func (a *App) HandleAddComment(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	id, ok := postID(r)
	if !ok {
		writeMsg(w, http.StatusNotFound, "Post not found")
		return
	}

	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFieldErrors(w, []fieldError{{Msg: "Invalid request body"}})
		return
	}
	if req.Text == "" {
		writeFieldErrors(w, []fieldError{{Msg: "Text is required"}})
		return
	}

	user, err := a.DB.GetUserByID(userID)
	if err != nil {
		writeServerError(w, err)
		return
	}

	comment := &Comment{
		ID:     uuid.NewString(),
		UserID: userID,
		Name:   user.Name,
		Avatar: user.Avatar,
		Text:   req.Text,
	}
	if err := a.DB.AddComment(id, comment); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeMsg(w, http.StatusNotFound, "Post not found")
			return
		}
		writeServerError(w, err)
		return
	}

	post, err := a.DB.GetPostByID(id)
	if err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post.Comments)
}

// HandleDeleteComment removes the addressed comment. Only its author may
// delete it, and exactly the comment named by {comment_id} is removed even
// when the author has several comments on the post.
func (a *App) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	id, ok := postID(r)
	if !ok {
		writeMsg(w, http.StatusNotFound, "Post not found")
		return
	}
	commentID := mux.Vars(r)["comment_id"]

	post, err := a.DB.GetPostByID(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeMsg(w, http.StatusNotFound, "Post not found")
			return
		}
		writeServerError(w, err)
		return
	}

	var comment *Comment
	for i := range post.Comments {
		if post.Comments[i].ID == commentID {
			comment = &post.Comments[i]
			break
		}
	}
	if comment == nil {
		writeMsg(w, http.StatusNotFound, "Comment does not exists")
		return
	}
	if comment.UserID != userID {
		writeMsg(w, http.StatusUnauthorized, "User not authorized")
		return
	}

	if err := a.DB.RemoveComment(id, commentID); err != nil && !errors.Is(err, ErrNotFound) {
		writeServerError(w, err)
		return
	}

	post, err = a.DB.GetPostByID(id)
	if err != nil {
		writeServerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post.Comments)
}
