package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"yampd/config"
	"yampd/logger"
	"yampd/player"
	"yampd/repository"
	"yampd/storage"

	"github.com/gorilla/mux"
)

// Player is the playback control surface the API drives. *player.Engine
// implements it.
type Player interface {
	Play()
	Push(item player.QueueItem)
	Next()
	Prev()
	SetIndex(i int)
	Delete(i int)
	SetPause(paused bool)
	SetPosition(pos time.Duration)
	Seek(delta time.Duration)
	Queue() player.Queue
	Status() player.Status
}

// Deps are the collaborators of the HTTP API. Scans and Covers may be nil.
type Deps struct {
	Player Player
	Songs  repository.SongRepository
	Albums repository.AlbumRepository
	Scans  repository.ScanRepository
	Covers storage.CoverStore
}

// Server serves the player and library API.
type Server struct {
	cfg    *config.Config
	player Player
	songs  repository.SongRepository
	albums repository.AlbumRepository
	scans  repository.ScanRepository
	covers storage.CoverStore

	nowInterval time.Duration
	closing     chan struct{}
	closeOnce   sync.Once
}

// New builds a Server. cfg supplies the listen address and the API secret.
func New(cfg *config.Config, deps Deps) *Server {
	return &Server{
		cfg:         cfg,
		player:      deps.Player,
		songs:       deps.Songs,
		albums:      deps.Albums,
		scans:       deps.Scans,
		covers:      deps.Covers,
		nowInterval: time.Second,
		closing:     make(chan struct{}),
	}
}

// Router returns the API handler with all middleware applied.
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()
	router.Use(requestIDMiddleware, accessLogMiddleware)

	router.HandleFunc("/healthz", s.healthzHandler).Methods(http.MethodGet)

	ply := router.PathPrefix("/ply").Subrouter()
	ply.Use(s.authMiddleware)
	ply.HandleFunc("/play", s.control(func() { s.player.Play() })).Methods(http.MethodPost)
	ply.HandleFunc("/pause", s.control(func() { s.player.SetPause(true) })).Methods(http.MethodPost)
	ply.HandleFunc("/unpause", s.control(func() { s.player.SetPause(false) })).Methods(http.MethodPost)
	ply.HandleFunc("/next", s.control(func() { s.player.Next() })).Methods(http.MethodPost)
	ply.HandleFunc("/prev", s.control(func() { s.player.Prev() })).Methods(http.MethodPost)
	ply.HandleFunc("/index/{idx:[0-9]+}", s.setIndexHandler).Methods(http.MethodPost)
	ply.HandleFunc("/index/{idx:[0-9]+}", s.deleteIndexHandler).Methods(http.MethodDelete)
	ply.HandleFunc("/pos/seek/forw/{ms:[0-9]+}", s.seekHandler(1)).Methods(http.MethodPost)
	ply.HandleFunc("/pos/seek/back/{ms:[0-9]+}", s.seekHandler(-1)).Methods(http.MethodPost)
	ply.HandleFunc("/pos/set/{ms:[0-9]+}", s.setPositionHandler).Methods(http.MethodPost)
	ply.HandleFunc("/queue", s.queueHandler).Methods(http.MethodGet)
	ply.HandleFunc("/queue/song/{id:[0-9]+}", s.queueSongHandler).Methods(http.MethodPost)
	ply.HandleFunc("/queue/album/{id:[0-9]+}", s.queueAlbumHandler).Methods(http.MethodPost)
	ply.HandleFunc("/now", s.nowHandler).Methods(http.MethodGet)
	ply.HandleFunc("/ws", s.nowSocketHandler).Methods(http.MethodGet)

	lib := router.PathPrefix("/lib").Subrouter()
	lib.Use(s.authMiddleware)
	lib.HandleFunc("/song", s.findSongsHandler).Methods(http.MethodPost)
	lib.HandleFunc("/song/{id:[0-9]+}", s.getSongHandler).Methods(http.MethodGet)
	lib.HandleFunc("/song/album/{id:[0-9]+}", s.albumSongsHandler).Methods(http.MethodGet)
	lib.HandleFunc("/album", s.findAlbumsHandler).Methods(http.MethodPost)
	lib.HandleFunc("/album/{id:[0-9]+}", s.getAlbumHandler).Methods(http.MethodGet)
	lib.HandleFunc("/cover/{id:[0-9]+}", s.coverHandler).Methods(http.MethodGet)
	lib.HandleFunc("/scans", s.scansHandler).Methods(http.MethodGet)

	// CORS wraps the router so preflight requests never reach method matching.
	return corsMiddleware(router)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:        s.cfg.Addr,
		Handler:     s.Router(),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", logger.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server")
	s.closeOnce.Do(func() { close(s.closing) })
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) healthzHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", logger.ErrorField(err))
	}
}
