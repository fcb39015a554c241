package main

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// sqlite stores timestamps as RFC3339 text.
const sqliteTimeFormat = time.RFC3339Nano

// SQLite DB
type SQLiteDB struct {
	db   *sql.DB
	path string
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &SQLiteDB{db: d, path: path}
	if err := s.Init(); err != nil {
		d.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteDB) Init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			avatar TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL);`,
		`CREATE TABLE IF NOT EXISTS profiles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL UNIQUE,
			company TEXT NOT NULL DEFAULT '',
			website TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			skills TEXT NOT NULL DEFAULT '',
			bio TEXT NOT NULL DEFAULT '',
			github_username TEXT NOT NULL DEFAULT '',
			youtube TEXT NOT NULL DEFAULT '',
			twitter TEXT NOT NULL DEFAULT '',
			facebook TEXT NOT NULL DEFAULT '',
			linkedin TEXT NOT NULL DEFAULT '',
			instagram TEXT NOT NULL DEFAULT '',
			experience TEXT NOT NULL DEFAULT '[]',
			education TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL);`,
		`CREATE TABLE IF NOT EXISTS posts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			avatar TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL,
			created_at TEXT NOT NULL);`,
		`CREATE TABLE IF NOT EXISTS post_likes (
			post_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (post_id, user_id));`,
		`CREATE TABLE IF NOT EXISTS comments (
			id TEXT PRIMARY KEY,
			post_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			avatar TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL,
			created_at TEXT NOT NULL);`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func sqliteIsUnique(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *SQLiteDB) CreateUser(name, email, passwordHash, avatar string) (*User, error) {
	created := nowUTC()
	res, err := s.db.Exec(`INSERT INTO users(name,email,password,avatar,created_at) VALUES(?,?,?,?,?)`,
		name, email, passwordHash, avatar, created.Format(sqliteTimeFormat))
	if err != nil {
		if sqliteIsUnique(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &User{ID: id, Name: name, Email: email, Password: passwordHash, Avatar: avatar, CreatedAt: created}, nil
}

func (s *SQLiteDB) scanUser(row *sql.Row) (*User, error) {
	var u User
	var created string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Avatar, &created); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.CreatedAt, _ = time.Parse(sqliteTimeFormat, created)
	return &u, nil
}

func (s *SQLiteDB) GetUserByEmail(email string) (*User, error) {
	return s.scanUser(s.db.QueryRow(`SELECT id,name,email,password,avatar,created_at FROM users WHERE email = ?`, email))
}

func (s *SQLiteDB) GetUserByID(id int64) (*User, error) {
	return s.scanUser(s.db.QueryRow(`SELECT id,name,email,password,avatar,created_at FROM users WHERE id = ?`, id))
}

func (s *SQLiteDB) DeleteUser(id int64) error {
	res, err := s.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteDB) UpsertProfile(p *Profile) (*Profile, error) {
	exp, err := json.Marshal(p.Experience)
	if err != nil {
		return nil, err
	}
	edu, err := json.Marshal(p.Education)
	if err != nil {
		return nil, err
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = nowUTC()
	}
	_, err = s.db.Exec(`INSERT INTO profiles
		(user_id,company,website,location,status,skills,bio,github_username,
		 youtube,twitter,facebook,linkedin,instagram,experience,education,created_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(user_id) DO UPDATE SET
		 company=excluded.company, website=excluded.website, location=excluded.location,
		 status=excluded.status, skills=excluded.skills, bio=excluded.bio,
		 github_username=excluded.github_username, youtube=excluded.youtube,
		 twitter=excluded.twitter, facebook=excluded.facebook, linkedin=excluded.linkedin,
		 instagram=excluded.instagram, experience=excluded.experience, education=excluded.education`,
		p.UserID, p.Company, p.Website, p.Location, p.Status, strings.Join(p.Skills, ","),
		p.Bio, p.GithubUsername, p.Social.Youtube, p.Social.Twitter, p.Social.Facebook,
		p.Social.Linkedin, p.Social.Instagram, string(exp), string(edu), p.CreatedAt.Format(sqliteTimeFormat))
	if err != nil {
		return nil, err
	}
	return s.GetProfileByUserID(p.UserID)
}

const sqliteProfileCols = `p.id,p.user_id,u.name,u.avatar,p.company,p.website,p.location,p.status,
	p.skills,p.bio,p.github_username,p.youtube,p.twitter,p.facebook,p.linkedin,p.instagram,
	p.experience,p.education,p.created_at`

func scanSQLiteProfile(scan func(dest ...interface{}) error) (*Profile, error) {
	var p Profile
	var skills, exp, edu, created string
	err := scan(&p.ID, &p.UserID, &p.Name, &p.Avatar, &p.Company, &p.Website, &p.Location,
		&p.Status, &skills, &p.Bio, &p.GithubUsername, &p.Social.Youtube, &p.Social.Twitter,
		&p.Social.Facebook, &p.Social.Linkedin, &p.Social.Instagram, &exp, &edu, &created)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.Skills = splitSkills(skills)
	if err := json.Unmarshal([]byte(exp), &p.Experience); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(edu), &p.Education); err != nil {
		return nil, err
	}
	p.CreatedAt, _ = time.Parse(sqliteTimeFormat, created)
	return &p, nil
}

func (s *SQLiteDB) GetProfileByUserID(userID int64) (*Profile, error) {
	row := s.db.QueryRow(`SELECT `+sqliteProfileCols+` FROM profiles p JOIN users u ON u.id = p.user_id WHERE p.user_id = ?`, userID)
	return scanSQLiteProfile(row.Scan)
}

func (s *SQLiteDB) ListProfiles() ([]*Profile, error) {
	rows, err := s.db.Query(`SELECT ` + sqliteProfileCols + ` FROM profiles p JOIN users u ON u.id = p.user_id ORDER BY p.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Profile
	for rows.Next() {
		p, err := scanSQLiteProfile(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteDB) DeleteProfileByUserID(userID int64) error {
	res, err := s.db.Exec(`DELETE FROM profiles WHERE user_id = ?`, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteDB) CreatePost(p *Post) (*Post, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = nowUTC()
	}
	res, err := s.db.Exec(`INSERT INTO posts(user_id,name,avatar,body,created_at) VALUES(?,?,?,?,?)`,
		p.UserID, p.Name, p.Avatar, p.Text, p.CreatedAt.Format(sqliteTimeFormat))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	p.ID = id
	if p.Likes == nil {
		p.Likes = []Like{}
	}
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
	return p, nil
}

func (s *SQLiteDB) loadPostRelations(p *Post) error {
	p.Likes = []Like{}
	rows, err := s.db.Query(`SELECT user_id FROM post_likes WHERE post_id = ? ORDER BY created_at DESC`, p.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var l Like
		if err := rows.Scan(&l.UserID); err != nil {
			return err
		}
		p.Likes = append(p.Likes, l)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	p.Comments = []Comment{}
	crows, err := s.db.Query(`SELECT id,user_id,name,avatar,body,created_at FROM comments WHERE post_id = ? ORDER BY created_at DESC`, p.ID)
	if err != nil {
		return err
	}
	defer crows.Close()
	for crows.Next() {
		var c Comment
		var created string
		if err := crows.Scan(&c.ID, &c.UserID, &c.Name, &c.Avatar, &c.Text, &created); err != nil {
			return err
		}
		c.CreatedAt, _ = time.Parse(sqliteTimeFormat, created)
		p.Comments = append(p.Comments, c)
	}
	return crows.Err()
}

func (s *SQLiteDB) GetPostByID(id int64) (*Post, error) {
	row := s.db.QueryRow(`SELECT id,user_id,name,avatar,body,created_at FROM posts WHERE id = ?`, id)
	var p Post
	var created string
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Avatar, &p.Text, &created); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.CreatedAt, _ = time.Parse(sqliteTimeFormat, created)
	if err := s.loadPostRelations(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLiteDB) ListPosts() ([]*Post, error) {
	rows, err := s.db.Query(`SELECT id,user_id,name,avatar,body,created_at FROM posts ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Post
	for rows.Next() {
		var p Post
		var created string
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Avatar, &p.Text, &created); err != nil {
			return nil, err
		}
		p.CreatedAt, _ = time.Parse(sqliteTimeFormat, created)
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, p := range out {
		if err := s.loadPostRelations(p); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *SQLiteDB) DeletePost(id int64) error {
	res, err := s.db.Exec(`DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.db.Exec(`DELETE FROM post_likes WHERE post_id = ?`, id)
	s.db.Exec(`DELETE FROM comments WHERE post_id = ?`, id)
	return nil
}

func (s *SQLiteDB) DeletePostsByUser(userID int64) error {
	rows, err := s.db.Query(`SELECT id FROM posts WHERE user_id = ?`, userID)
	if err != nil {
		return err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.DeletePost(id); err != nil && err != ErrNotFound {
			return err
		}
	}
	return nil
}

func (s *SQLiteDB) AddLike(postID, userID int64) error {
	_, err := s.db.Exec(`INSERT INTO post_likes(post_id,user_id,created_at) VALUES(?,?,?)`,
		postID, userID, nowUTC().Format(sqliteTimeFormat))
	if sqliteIsUnique(err) {
		return ErrDuplicateLike
	}
	return err
}

func (s *SQLiteDB) RemoveLike(postID, userID int64) error {
	res, err := s.db.Exec(`DELETE FROM post_likes WHERE post_id = ? AND user_id = ?`, postID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteDB) AddComment(postID int64, c *Comment) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = nowUTC()
	}
	_, err := s.db.Exec(`INSERT INTO comments(id,post_id,user_id,name,avatar,body,created_at) VALUES(?,?,?,?,?,?,?)`,
		c.ID, postID, c.UserID, c.Name, c.Avatar, c.Text, c.CreatedAt.Format(sqliteTimeFormat))
	return err
}

func (s *SQLiteDB) RemoveComment(postID int64, commentID string) error {
	res, err := s.db.Exec(`DELETE FROM comments WHERE post_id = ? AND id = ?`, postID, commentID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// lifecycle helpers
func (s *SQLiteDB) close() error { return s.db.Close() }
func (s *SQLiteDB) ping() bool   { return s.db.Ping() == nil }
