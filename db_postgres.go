package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/lib/pq"
)

// PostgresDB relies on migrations (cmd/migrate) for its schema.
type PostgresDB struct {
	db  *sql.DB
	dsn string
}

func NewPostgresDB(dsn string) (*PostgresDB, error) {
	d, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	p := &PostgresDB{db: d, dsn: dsn}
	if err := p.Init(); err != nil {
		d.Close()
		return nil, err
	}
	return p, nil
}

func (p *PostgresDB) Init() error {
	return p.db.Ping()
}

func pgIsUnique(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (p *PostgresDB) CreateUser(name, email, passwordHash, avatar string) (*User, error) {
	created := nowUTC()
	var id int64
	err := p.db.QueryRow(`INSERT INTO users(name,email,password,avatar,created_at) VALUES($1,$2,$3,$4,$5) RETURNING id`,
		name, email, passwordHash, avatar, created).Scan(&id)
	if err != nil {
		if pgIsUnique(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return &User{ID: id, Name: name, Email: email, Password: passwordHash, Avatar: avatar, CreatedAt: created}, nil
}

func (p *PostgresDB) scanUser(row *sql.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Avatar, &u.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (p *PostgresDB) GetUserByEmail(email string) (*User, error) {
	return p.scanUser(p.db.QueryRow(`SELECT id,name,email,password,avatar,created_at FROM users WHERE email = $1`, email))
}

func (p *PostgresDB) GetUserByID(id int64) (*User, error) {
	return p.scanUser(p.db.QueryRow(`SELECT id,name,email,password,avatar,created_at FROM users WHERE id = $1`, id))
}

func (p *PostgresDB) DeleteUser(id int64) error {
	res, err := p.db.Exec(`DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresDB) UpsertProfile(prof *Profile) (*Profile, error) {
	exp, err := json.Marshal(prof.Experience)
	if err != nil {
		return nil, err
	}
	edu, err := json.Marshal(prof.Education)
	if err != nil {
		return nil, err
	}
	if prof.CreatedAt.IsZero() {
		prof.CreatedAt = nowUTC()
	}
	_, err = p.db.Exec(`INSERT INTO profiles
		(user_id,company,website,location,status,skills,bio,github_username,
		 youtube,twitter,facebook,linkedin,instagram,experience,education,created_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT(user_id) DO UPDATE SET
		 company=excluded.company, website=excluded.website, location=excluded.location,
		 status=excluded.status, skills=excluded.skills, bio=excluded.bio,
		 github_username=excluded.github_username, youtube=excluded.youtube,
		 twitter=excluded.twitter, facebook=excluded.facebook, linkedin=excluded.linkedin,
		 instagram=excluded.instagram, experience=excluded.experience, education=excluded.education`,
		prof.UserID, prof.Company, prof.Website, prof.Location, prof.Status, strings.Join(prof.Skills, ","),
		prof.Bio, prof.GithubUsername, prof.Social.Youtube, prof.Social.Twitter, prof.Social.Facebook,
		prof.Social.Linkedin, prof.Social.Instagram, string(exp), string(edu), prof.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p.GetProfileByUserID(prof.UserID)
}

const pgProfileCols = `p.id,p.user_id,u.name,u.avatar,p.company,p.website,p.location,p.status,
	p.skills,p.bio,p.github_username,p.youtube,p.twitter,p.facebook,p.linkedin,p.instagram,
	p.experience,p.education,p.created_at`

func scanPgProfile(scan func(dest ...interface{}) error) (*Profile, error) {
	var prof Profile
	var skills string
	var exp, edu []byte
	err := scan(&prof.ID, &prof.UserID, &prof.Name, &prof.Avatar, &prof.Company, &prof.Website,
		&prof.Location, &prof.Status, &skills, &prof.Bio, &prof.GithubUsername,
		&prof.Social.Youtube, &prof.Social.Twitter, &prof.Social.Facebook,
		&prof.Social.Linkedin, &prof.Social.Instagram, &exp, &edu, &prof.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	prof.Skills = splitSkills(skills)
	if err := json.Unmarshal(exp, &prof.Experience); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(edu, &prof.Education); err != nil {
		return nil, err
	}
	return &prof, nil
}

func (p *PostgresDB) GetProfileByUserID(userID int64) (*Profile, error) {
	row := p.db.QueryRow(`SELECT `+pgProfileCols+` FROM profiles p JOIN users u ON u.id = p.user_id WHERE p.user_id = $1`, userID)
	return scanPgProfile(row.Scan)
}

func (p *PostgresDB) ListProfiles() ([]*Profile, error) {
	rows, err := p.db.Query(`SELECT ` + pgProfileCols + ` FROM profiles p JOIN users u ON u.id = p.user_id ORDER BY p.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Profile
	for rows.Next() {
		prof, err := scanPgProfile(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, prof)
	}
	return out, rows.Err()
}

func (p *PostgresDB) DeleteProfileByUserID(userID int64) error {
	res, err := p.db.Exec(`DELETE FROM profiles WHERE user_id = $1`, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresDB) CreatePost(post *Post) (*Post, error) {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = nowUTC()
	}
	err := p.db.QueryRow(`INSERT INTO posts(user_id,name,avatar,body,created_at) VALUES($1,$2,$3,$4,$5) RETURNING id`,
		post.UserID, post.Name, post.Avatar, post.Text, post.CreatedAt).Scan(&post.ID)
	if err != nil {
		return nil, err
	}
	if post.Likes == nil {
		post.Likes = []Like{}
	}
	if post.Comments == nil {
		post.Comments = []Comment{}
	}
	return post, nil
}

func (p *PostgresDB) loadPostRelations(post *Post) error {
	post.Likes = []Like{}
	rows, err := p.db.Query(`SELECT user_id FROM post_likes WHERE post_id = $1 ORDER BY created_at DESC`, post.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var l Like
		if err := rows.Scan(&l.UserID); err != nil {
			return err
		}
		post.Likes = append(post.Likes, l)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	post.Comments = []Comment{}
	crows, err := p.db.Query(`SELECT id,user_id,name,avatar,body,created_at FROM comments WHERE post_id = $1 ORDER BY created_at DESC`, post.ID)
	if err != nil {
		return err
	}
	defer crows.Close()
	for crows.Next() {
		var c Comment
		if err := crows.Scan(&c.ID, &c.UserID, &c.Name, &c.Avatar, &c.Text, &c.CreatedAt); err != nil {
			return err
		}
		post.Comments = append(post.Comments, c)
	}
	return crows.Err()
}

func (p *PostgresDB) GetPostByID(id int64) (*Post, error) {
	row := p.db.QueryRow(`SELECT id,user_id,name,avatar,body,created_at FROM posts WHERE id = $1`, id)
	var post Post
	if err := row.Scan(&post.ID, &post.UserID, &post.Name, &post.Avatar, &post.Text, &post.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := p.loadPostRelations(&post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (p *PostgresDB) ListPosts() ([]*Post, error) {
	rows, err := p.db.Query(`SELECT id,user_id,name,avatar,body,created_at FROM posts ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Post
	for rows.Next() {
		var post Post
		if err := rows.Scan(&post.ID, &post.UserID, &post.Name, &post.Avatar, &post.Text, &post.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, post := range out {
		if err := p.loadPostRelations(post); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (p *PostgresDB) DeletePost(id int64) error {
	res, err := p.db.Exec(`DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresDB) DeletePostsByUser(userID int64) error {
	_, err := p.db.Exec(`DELETE FROM posts WHERE user_id = $1`, userID)
	return err
}

func (p *PostgresDB) AddLike(postID, userID int64) error {
	_, err := p.db.Exec(`INSERT INTO post_likes(post_id,user_id,created_at) VALUES($1,$2,$3)`,
		postID, userID, nowUTC())
	if pgIsUnique(err) {
		return ErrDuplicateLike
	}
	return err
}

func (p *PostgresDB) RemoveLike(postID, userID int64) error {
	res, err := p.db.Exec(`DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`, postID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresDB) AddComment(postID int64, c *Comment) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = nowUTC()
	}
	_, err := p.db.Exec(`INSERT INTO comments(id,post_id,user_id,name,avatar,body,created_at) VALUES($1,$2,$3,$4,$5,$6,$7)`,
		c.ID, postID, c.UserID, c.Name, c.Avatar, c.Text, c.CreatedAt)
	return err
}

func (p *PostgresDB) RemoveComment(postID int64, commentID string) error {
	res, err := p.db.Exec(`DELETE FROM comments WHERE post_id = $1 AND id = $2`, postID, commentID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// lifecycle helpers
func (p *PostgresDB) close() error { return p.db.Close() }
func (p *PostgresDB) ping() bool   { return p.db.Ping() == nil }
