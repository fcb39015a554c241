package main

import (
	"errors"
	"sort"
	"sync"
)

// Store errors
var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrDuplicateLike  = errors.New("already liked")
)

// DB is the storage interface. Adapters: memory (tests/dev), sqlite,
// postgres.
type DB interface {
	Init() error

	// User operations
	CreateUser(name, email, passwordHash, avatar string) (*User, error)
	GetUserByEmail(email string) (*User, error)
	GetUserByID(id int64) (*User, error)
	DeleteUser(id int64) error

	// Profile operations
	UpsertProfile(p *Profile) (*Profile, error)
	GetProfileByUserID(userID int64) (*Profile, error)
	ListProfiles() ([]*Profile, error)
	DeleteProfileByUserID(userID int64) error

	// Post operations
	CreatePost(p *Post) (*Post, error)
	GetPostByID(id int64) (*Post, error)
	ListPosts() ([]*Post, error)
	DeletePost(id int64) error
	DeletePostsByUser(userID int64) error
	AddLike(postID, userID int64) error
	RemoveLike(postID, userID int64) error
	AddComment(postID int64, c *Comment) error
	RemoveComment(postID int64, commentID string) error
}

// Memory DB
type MemDB struct {
	mu       sync.Mutex
	users    map[int64]*User
	profiles map[int64]*Profile // keyed by user id
	posts    map[int64]*Post
	userSeq  int64
	postSeq  int64
	profSeq  int64
}

func NewMemoryDB() *MemDB {
	return &MemDB{
		users:    map[int64]*User{},
		profiles: map[int64]*Profile{},
		posts:    map[int64]*Post{},
	}
}

func (m *MemDB) Init() error { return nil }

func (m *MemDB) CreateUser(name, email, passwordHash, avatar string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return nil, ErrDuplicateEmail
		}
	}
	m.userSeq++
	u := &User{ID: m.userSeq, Name: name, Email: email, Password: passwordHash, Avatar: avatar, CreatedAt: nowUTC()}
	m.users[u.ID] = u
	return u, nil
}

func (m *MemDB) GetUserByEmail(email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemDB) GetUserByID(id int64) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

func (m *MemDB) DeleteUser(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *MemDB) UpsertProfile(p *Profile) (*Profile, error) {
	m.mu.Lock()
	existing, ok := m.profiles[p.UserID]
	if ok {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
	} else {
		m.profSeq++
		p.ID = m.profSeq
		if p.CreatedAt.IsZero() {
			p.CreatedAt = nowUTC()
		}
	}
	stored := *p
	stored.Experience = append([]Experience(nil), p.Experience...)
	stored.Education = append([]Education(nil), p.Education...)
	m.profiles[p.UserID] = &stored
	m.mu.Unlock()
	return m.GetProfileByUserID(p.UserID)
}

func (m *MemDB) GetProfileByUserID(userID int64) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	out := *p
	out.Experience = append([]Experience(nil), p.Experience...)
	out.Education = append([]Education(nil), p.Education...)
	if u, ok := m.users[userID]; ok {
		out.Name = u.Name
		out.Avatar = u.Avatar
	}
	return &out, nil
}

func (m *MemDB) ListProfiles() ([]*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Profile, 0, len(m.profiles))
	for uid, p := range m.profiles {
		cp := *p
		if u, ok := m.users[uid]; ok {
			cp.Name = u.Name
			cp.Avatar = u.Avatar
		}
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemDB) DeleteProfileByUserID(userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[userID]; !ok {
		return ErrNotFound
	}
	delete(m.profiles, userID)
	return nil
}

func (m *MemDB) CreatePost(p *Post) (*Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.postSeq++
	p.ID = m.postSeq
	if p.CreatedAt.IsZero() {
		p.CreatedAt = nowUTC()
	}
	if p.Likes == nil {
		p.Likes = []Like{}
	}
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
	stored := *p
	m.posts[p.ID] = &stored
	return p, nil
}

func (m *MemDB) GetPostByID(id int64) (*Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *p
	out.Likes = append([]Like(nil), p.Likes...)
	out.Comments = append([]Comment(nil), p.Comments...)
	return &out, nil
}

func (m *MemDB) ListPosts() ([]*Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Post, 0, len(m.posts))
	for _, p := range m.posts {
		cp := *p
		cp.Likes = append([]Like(nil), p.Likes...)
		cp.Comments = append([]Comment(nil), p.Comments...)
		out = append(out, &cp)
	}
	// newest first
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *MemDB) DeletePost(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

func (m *MemDB) DeletePostsByUser(userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.posts {
		if p.UserID == userID {
			delete(m.posts, id)
		}
	}
	return nil
}

func (m *MemDB) AddLike(postID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[postID]
	if !ok {
		return ErrNotFound
	}
	for _, l := range p.Likes {
		if l.UserID == userID {
			return ErrDuplicateLike
		}
	}
	p.Likes = append([]Like{{UserID: userID}}, p.Likes...)
	return nil
}

func (m *MemDB) RemoveLike(postID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[postID]
	if !ok {
		return ErrNotFound
	}
	for i, l := range p.Likes {
		if l.UserID == userID {
			p.Likes = append(p.Likes[:i], p.Likes[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemDB) AddComment(postID int64, c *Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[postID]
	if !ok {
		return ErrNotFound
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = nowUTC()
	}
	p.Comments = append([]Comment{*c}, p.Comments...)
	return nil
}

func (m *MemDB) RemoveComment(postID int64, commentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[postID]
	if !ok {
		return ErrNotFound
	}
	for i, c := range p.Comments {
		if c.ID == commentID {
			p.Comments = append(p.Comments[:i], p.Comments[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// lifecycle helpers
func (m *MemDB) close() error { return nil }
func (m *MemDB) ping() bool   { return true }
