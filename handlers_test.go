package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestApp() *App {
	return NewApp(NewMemoryDB(), NewTokenCodec([]byte("test-secret")))
}

func doRequest(t *testing.T, h http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("x-auth-token", token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

// register creates an account and returns its token.
func register(t *testing.T, router http.Handler, name, email string) string {
	t.Helper()
	rec := doRequest(t, router, "POST", "/api/users", "", map[string]string{
		"name": name, "email": email, "password": "123456",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out map[string]string
	decodeJSON(t, rec, &out)
	require.NotEmpty(t, out["token"])
	return out["token"]
}

func TestRegister(t *testing.T) {
	app := newTestApp()
	router := app.routes()

	token := register(t, router, "A", "a@x.com")

	userID, err := app.Tokens.Verify(token)
	require.NoError(t, err)

	user, err := app.DB.GetUserByID(userID)
	require.NoError(t, err)
	require.Equal(t, "A", user.Name)
	require.Equal(t, "a@x.com", user.Email)
	require.True(t, strings.HasPrefix(user.Avatar, "https://www.gravatar.com/avatar/"))
	require.NotEqual(t, "123456", user.Password)
}

func TestRegisterValidation(t *testing.T) {
	app := newTestApp()
	router := app.routes()

	rec := doRequest(t, router, "POST", "/api/users", "", map[string]string{
		"name": "", "email": "nope", "password": "123",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var out struct {
		Errors []fieldError `json:"errors"`
	}
	decodeJSON(t, rec, &out)
	msgs := make([]string, len(out.Errors))
	for i, e := range out.Errors {
		msgs[i] = e.Msg
	}
	require.Contains(t, msgs, "Name is required")
	require.Contains(t, msgs, "Please include a valid email")
	require.Contains(t, msgs, "Please enter a password with 6 or more characters")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	app := newTestApp()
	router := app.routes()

	register(t, router, "A", "a@x.com")

	rec := doRequest(t, router, "POST", "/api/users", "", map[string]string{
		"name": "A", "email": "a@x.com", "password": "123456",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"errors":[{"msg":"User already exists"}]}`, rec.Body.String())
}

func TestLogin(t *testing.T) {
	app := newTestApp()
	router := app.routes()

	register(t, router, "A", "a@x.com")

	rec := doRequest(t, router, "POST", "/api/auth", "", map[string]string{
		"email": "a@x.com", "password": "123456",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var out map[string]string
	decodeJSON(t, rec, &out)
	_, err := app.Tokens.Verify(out["token"])
	require.NoError(t, err)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	app := newTestApp()
	router := app.routes()

	register(t, router, "A", "a@x.com")

	wrongPassword := doRequest(t, router, "POST", "/api/auth", "", map[string]string{
		"email": "a@x.com", "password": "wrong!",
	})
	unknownEmail := doRequest(t, router, "POST", "/api/auth", "", map[string]string{
		"email": "ghost@x.com", "password": "123456",
	})

	require.Equal(t, http.StatusBadRequest, wrongPassword.Code)
	require.Equal(t, http.StatusBadRequest, unknownEmail.Code)
	require.JSONEq(t, `{"errors":[{"msg":"Invalid credentials"}]}`, wrongPassword.Body.String())
	require.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestCurrentUser(t *testing.T) {
	app := newTestApp()
	router := app.routes()

	token := register(t, router, "A", "a@x.com")

	rec := doRequest(t, router, "GET", "/api/auth", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]interface{}
	decodeJSON(t, rec, &out)
	require.Equal(t, "a@x.com", out["email"])
	require.NotContains(t, out, "password")
}

func TestProtectedRouteWithoutToken(t *testing.T) {
	app := newTestApp()
	router := app.routes()

	rec := doRequest(t, router, "GET", "/api/auth", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"msg":"No token, authorization denied"}`, rec.Body.String())
}

func TestProfileLifecycle(t *testing.T) {
	app := newTestApp()
	router := app.routes()

	token := register(t, router, "A", "a@x.com")

	rec := doRequest(t, router, "GET", "/api/profile/me", token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"msg":"There is no profile for this user"}`, rec.Body.String())

	rec = doRequest(t, router, "POST", "/api/profile", token, map[string]string{
		"status": "Developer", "skills": "Go, SQL ,HTTP", "company": "Acme",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var profile Profile
	decodeJSON(t, rec, &profile)
	require.Equal(t, "Developer", profile.Status)
	require.Equal(t, []string{"Go", "SQL", "HTTP"}, profile.Skills)
	require.Equal(t, "Acme", profile.Company)
	require.Equal(t, "A", profile.Name)

	// upsert replaces fields, last writer wins
	rec = doRequest(t, router, "POST", "/api/profile", token, map[string]string{
		"status": "Senior Developer", "skills": "Go",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &profile)
	require.Equal(t, "Senior Developer", profile.Status)
	require.Empty(t, profile.Company)

	rec = doRequest(t, router, "GET", "/api/profile", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var profiles []Profile
	decodeJSON(t, rec, &profiles)
	require.Len(t, profiles, 1)

	rec = doRequest(t, router, "GET", fmt.Sprintf("/api/profile/user/%d", profile.UserID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, "GET", "/api/profile/user/9999", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"msg":"Profile not found"}`, rec.Body.String())
}

func TestProfileValidation(t *testing.T) {
	app := newTestApp()
	router := app.routes()

	token := register(t, router, "A", "a@x.com")

	rec := doRequest(t, router, "POST", "/api/profile", token, map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var out struct {
		Errors []fieldError `json:"errors"`
	}
	decodeJSON(t, rec, &out)
	require.Len(t, out.Errors, 2)
}

func TestExperienceAddRemove(t *testing.T) {
	app := newTestApp()
	router := app.routes()

	token := register(t, router, "A", "a@x.com")
	doRequest(t, router, "POST", "/api/profile", token, map[string]string{
		"status": "Developer", "skills": "Go",
	})

	rec := doRequest(t, router, "PUT", "/api/profile/experience", token, map[string]string{
		"title": "Engineer", "company": "Acme", "from": "2019-01-01",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, "PUT", "/api/profile/experience", token, map[string]string{
		"title": "Senior Engineer", "company": "Acme", "from": "2021-01-01",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var profile Profile
	decodeJSON(t, rec, &profile)
	require.Len(t, profile.Experience, 2)
	// newest first
	require.Equal(t, "Senior Engineer", profile.Experience[0].Title)

	rec = doRequest(t, router, "DELETE", "/api/profile/experience/"+profile.Experience[0].ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &profile)
	require.Len(t, profile.Experience, 1)
	require.Equal(t, "Engineer", profile.Experience[0].Title)

	// profile upsert keeps remaining experience
	rec = doRequest(t, router, "POST", "/api/profile", token, map[string]string{
		"status": "Developer", "skills": "Go",
	})
	decodeJSON(t, rec, &profile)
	require.Len(t, profile.Experience, 1)
}

func TestEducationAddRemove(t *testing.T) {
	app := newTestApp()
	router := app.routes()

	token := register(t, router, "A", "a@x.com")
	doRequest(t, router, "POST", "/api/profile", token, map[string]string{
		"status": "Developer", "skills": "Go",
	})

	rec := doRequest(t, router, "PUT", "/api/profile/education", token, map[string]string{
		"school": "State", "degree": "BSc", "field_of_study": "CS", "from": "2015-09-01",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var profile Profile
	decodeJSON(t, rec, &profile)
	require.Len(t, profile.Education, 1)

	rec = doRequest(t, router, "DELETE", "/api/profile/education/"+profile.Education[0].ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &profile)
	require.Empty(t, profile.Education)
}

func TestPostLifecycle(t *testing.T) {
	app := newTestApp()
	router := app.routes()

	token := register(t, router, "A", "a@x.com")

	rec := doRequest(t, router, "POST", "/api/posts", token, map[string]string{"text": "first"})
	require.Equal(t, http.StatusOK, rec.Code)
	var first Post
	decodeJSON(t, rec, &first)
	require.Equal(t, "first", first.Text)
	require.Equal(t, "A", first.Name)

	rec = doRequest(t, router, "POST", "/api/posts", token, map[string]string{"text": "second"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, "GET", "/api/posts", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var posts []Post
	decodeJSON(t, rec, &posts)
	require.Len(t, posts, 2)
	require.Equal(t, "second", posts[0].Text)

	rec = doRequest(t, router, "GET", fmt.Sprintf("/api/posts/%d", first.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, "GET", "/api/posts/9999", token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"msg":"Post not found"}`, rec.Body.String())

	rec = doRequest(t, router, "POST", "/api/posts", token, map[string]string{"text": ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"errors":[{"msg":"Text is required"}]}`, rec.Body.String())
}

func TestDeletePostOwnership(t *testing.T) {
	app := newTestApp()
	router := app.routes()

	tokenA := register(t, router, "A", "a@x.com")
	tokenB := register(t, router, "B", "b@x.com")

	rec := doRequest(t, router, "POST", "/api/posts", tokenA, map[string]string{"text": "mine"})
	var post Post
	decodeJSON(t, rec, &post)

	// user B may not delete A's post, and the post survives
	rec = doRequest(t, router, "DELETE", fmt.Sprintf("/api/posts/%d", post.ID), tokenB, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"msg":"User not authorized"}`, rec.Body.String())

	rec = doRequest(t, router, "GET", fmt.Sprintf("/api/posts/%d", post.ID), tokenB, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, "DELETE", fmt.Sprintf("/api/posts/%d", post.ID), tokenA, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"msg":"Post has been removed"}`, rec.Body.String())

	rec = doRequest(t, router, "GET", fmt.Sprintf("/api/posts/%d", post.ID), tokenA, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLikeUnlike(t *testing.T) {
	app := newTestApp()
	router := app.routes()

	token := register(t, router, "A", "a@x.com")

	rec := doRequest(t, router, "POST", "/api/posts", token, map[string]string{"text": "likeable"})
	var post Post
	decodeJSON(t, rec, &post)
	path := fmt.Sprintf("/api/posts/like/%d", post.ID)

	rec = doRequest(t, router, "PUT", path, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var likes []Like
	decodeJSON(t, rec, &likes)
	require.Len(t, likes, 1)

	rec = doRequest(t, router, "PUT", path, token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"msg":"Post has already been liked"}`, rec.Body.String())

	unlike := fmt.Sprintf("/api/posts/unlike/%d", post.ID)
	rec = doRequest(t, router, "PUT", unlike, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &likes)
	require.Empty(t, likes)

	rec = doRequest(t, router, "PUT", unlike, token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"msg":"Has not yet been liked"}`, rec.Body.String())
}

func TestComments(t *testing.T) {
	app := newTestApp()
	router := app.routes()

	tokenA := register(t, router, "A", "a@x.com")
	tokenB := register(t, router, "B", "b@x.com")

	rec := doRequest(t, router, "POST", "/api/posts", tokenA, map[string]string{"text": "discuss"})
	var post Post
	decodeJSON(t, rec, &post)
	commentPath := fmt.Sprintf("/api/posts/comment/%d", post.ID)

	// two comments by the same user
	rec = doRequest(t, router, "POST", commentPath, tokenA, map[string]string{"text": "one"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(t, router, "POST", commentPath, tokenA, map[string]string{"text": "two"})
	require.Equal(t, http.StatusOK, rec.Code)

	var comments []Comment
	decodeJSON(t, rec, &comments)
	require.Len(t, comments, 2)
	require.Equal(t, "two", comments[0].Text)
	require.Equal(t, "one", comments[1].Text)

	// deleting addresses the specific comment, not the author's first match
	target := comments[1] // "one"
	rec = doRequest(t, router, "DELETE", commentPath+"/"+target.ID, tokenA, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &comments)
	require.Len(t, comments, 1)
	require.Equal(t, "two", comments[0].Text)

	// only the author may delete
	rec = doRequest(t, router, "DELETE", commentPath+"/"+comments[0].ID, tokenB, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"msg":"User not authorized"}`, rec.Body.String())

	rec = doRequest(t, router, "DELETE", commentPath+"/nonexistent", tokenA, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"msg":"Comment does not exists"}`, rec.Body.String())
}

func TestDeleteAccount(t *testing.T) {
	app := newTestApp()
	router := app.routes()

	token := register(t, router, "A", "a@x.com")
	other := register(t, router, "B", "b@x.com")

	doRequest(t, router, "POST", "/api/profile", token, map[string]string{
		"status": "Developer", "skills": "Go",
	})
	doRequest(t, router, "POST", "/api/posts", token, map[string]string{"text": "gone soon"})

	rec := doRequest(t, router, "DELETE", "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"msg":"User deleted"}`, rec.Body.String())

	rec = doRequest(t, router, "GET", "/api/posts", other, nil)
	var posts []Post
	decodeJSON(t, rec, &posts)
	require.Empty(t, posts)

	rec = doRequest(t, router, "POST", "/api/auth", "", map[string]string{
		"email": "a@x.com", "password": "123456",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"errors":[{"msg":"Invalid credentials"}]}`, rec.Body.String())
}
