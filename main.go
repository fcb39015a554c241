package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cfg "github.com/example/devconnector/internal/config"
	"github.com/gorilla/mux"
)

// rateLimitPerMinute is the per-host request budget on /api routes.
const rateLimitPerMinute = 300

type App struct {
	DB          DB
	Tokens      *TokenCodec
	rateLimiter *RateLimiter
}

func NewApp(db DB, tokens *TokenCodec) *App {
	return &App{DB: db, Tokens: tokens, rateLimiter: NewRateLimiter(rateLimitPerMinute)}
}

// routes mounts every endpoint. Protected routes sit behind the token gate;
// registration, login and the public profile reads do not.
func (a *App) routes() *mux.Router {
	r := mux.NewRouter()

	r.Use(SecurityHeaders)
	r.Use(a.Logging)
	r.Use(a.CORS)
	r.Use(a.RateLimit)

	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("API Running"))
	}).Methods("GET")
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(200)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	r.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if p, ok := a.DB.(interface{ ping() bool }); ok {
			if !p.ping() {
				w.WriteHeader(503)
				w.Write([]byte(`{"ready":false}`))
				return
			}
		}
		w.WriteHeader(200)
		w.Write([]byte(`{"ready":true}`))
	}).Methods("GET")

	// Users and auth
	r.HandleFunc("/api/users", a.HandleRegister).Methods("POST")
	r.HandleFunc("/api/auth", a.HandleLogin).Methods("POST")
	r.Handle("/api/auth", a.protected(a.HandleCurrentUser)).Methods("GET")

	// Profiles
	r.Handle("/api/profile/me", a.protected(a.HandleGetMyProfile)).Methods("GET")
	r.Handle("/api/profile", a.protected(a.HandleUpsertProfile)).Methods("POST")
	r.HandleFunc("/api/profile", a.HandleListProfiles).Methods("GET")
	r.HandleFunc("/api/profile/user/{user_id}", a.HandleGetProfileByUser).Methods("GET")
	r.Handle("/api/profile", a.protected(a.HandleDeleteAccount)).Methods("DELETE")
	r.Handle("/api/profile/experience", a.protected(a.HandleAddExperience)).Methods("PUT")
	r.Handle("/api/profile/experience/{exp_id}", a.protected(a.HandleDeleteExperience)).Methods("DELETE")
	r.Handle("/api/profile/education", a.protected(a.HandleAddEducation)).Methods("PUT")
	r.Handle("/api/profile/education/{edu_id}", a.protected(a.HandleDeleteEducation)).Methods("DELETE")

	// Posts
	r.Handle("/api/posts", a.protected(a.HandleCreatePost)).Methods("POST")
	r.Handle("/api/posts", a.protected(a.HandleListPosts)).Methods("GET")
	r.Handle("/api/posts/{id}", a.protected(a.HandleGetPost)).Methods("GET")
	r.Handle("/api/posts/{id}", a.protected(a.HandleDeletePost)).Methods("DELETE")
	r.Handle("/api/posts/like/{id}", a.protected(a.HandleLikePost)).Methods("PUT")
	r.Handle("/api/posts/unlike/{id}", a.protected(a.HandleUnlikePost)).Methods("PUT")
	r.Handle("/api/posts/comment/{id}", a.protected(a.HandleAddComment)).Methods("POST")
	r.Handle("/api/posts/comment/{id}/{comment_id}", a.protected(a.HandleDeleteComment)).Methods("DELETE")

	return r
}

func main() {
	c, err := cfg.New()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var db DB
	switch c.DBAdapter {
	case "sqlite":
		s, err := NewSQLiteDB(c.SQLiteFile)
		if err != nil {
			log.Fatalf("sqlite init: %v", err)
		}
		db = s
	case "postgres":
		dsn, err := c.BuildPostgresDSN()
		if err != nil {
			log.Fatalf("postgres config error: %v", err)
		}
		if err := ApplyMigrations("./migrations", dsn); err != nil {
			log.Fatalf("migrations: %v", err)
		}
		p, err := NewPostgresDB(dsn)
		if err != nil {
			log.Fatalf("postgres init: %v", err)
		}
		db = p
		log.Println("Connected to PostgreSQL database")
	case "memory":
		log.Println("Using in-memory database (not recommended for production)")
		db = NewMemoryDB()
	default:
		log.Fatalf("unsupported DB_ADAPTER: %s (supported: postgres, sqlite, memory)", c.DBAdapter)
	}

	app := NewApp(db, NewTokenCodec([]byte(c.JwtSecret)))

	srv := &http.Server{
		Handler:      app.routes(),
		Addr:         ":" + c.Port,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		fmt.Println("Server started on port", c.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if closer, ok := app.DB.(interface{ close() error }); ok {
		_ = closer.close()
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown failed:%+v", err)
	}
	fmt.Println("Server exited properly")
}
