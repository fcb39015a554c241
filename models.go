package main

import "time"

// User is an account record. Password holds the bcrypt hash and is never
// serialized.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile is a developer profile, one per user. Name and Avatar are
// populated from the owning user on reads.
type Profile struct {
	ID             int64        `json:"id"`
	UserID         int64        `json:"user"`
	Name           string       `json:"name"`
	Avatar         string       `json:"avatar"`
	Company        string       `json:"company,omitempty"`
	Website        string       `json:"website,omitempty"`
	Location       string       `json:"location,omitempty"`
	Status         string       `json:"status"`
	Skills         []string     `json:"skills"`
	Bio            string       `json:"bio,omitempty"`
	GithubUsername string       `json:"github_username,omitempty"`
	Experience     []Experience `json:"experience"`
	Education      []Education  `json:"education"`
	Social         Social       `json:"social"`
	CreatedAt      time.Time    `json:"created_at"`
}

// Experience is a work history entry embedded in a profile.
type Experience struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location,omitempty"`
	From        string `json:"from"`
	To          string `json:"to,omitempty"`
	Current     bool   `json:"current"`
	Description string `json:"description,omitempty"`
}

// Education is a schooling entry embedded in a profile.
type Education struct {
	ID           string `json:"id"`
	School       string `json:"school"`
	Degree       string `json:"degree"`
	FieldOfStudy string `json:"field_of_study"`
	From         string `json:"from"`
	To           string `json:"to,omitempty"`
	Current      bool   `json:"current"`
	Description  string `json:"description,omitempty"`
}

// Social holds a profile's social network links.
type Social struct {
	Youtube   string `json:"youtube,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
	Linkedin  string `json:"linkedin,omitempty"`
	Instagram string `json:"instagram,omitempty"`
}

// Post is a feed post. UserID is the owner, set at creation and immutable.
// Name and Avatar are denormalized from the user at creation time so posts
// keep their byline if the account later changes.
type Post struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar"`
	Text      string    `json:"text"`
	Likes     []Like    `json:"likes"`
	Comments  []Comment `json:"comments"`
	CreatedAt time.Time `json:"created_at"`
}

// Like records that a user liked a post. At most one per user per post.
type Like struct {
	UserID int64 `json:"user"`
}

// nowUTC is the single creation-timestamp source. Truncated to millisecond
// so values survive a round trip through the sqlite text encoding.
func nowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Comment is a comment on a post. UserID is the author.
type Comment struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
