package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"yampd/logger"
	"yampd/model"
)

const defaultScanLimit = 20

type likeRequest struct {
	Like string `json:"like"`
}

func decodeLike(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req likeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return "", false
	}
	return req.Like, true
}

func (s *Server) findSongsHandler(w http.ResponseWriter, r *http.Request) {
	like, ok := decodeLike(w, r)
	if !ok {
		return
	}
	songs, err := s.songs.FindSongsByTitle(r.Context(), like)
	if err != nil {
		logger.Error("Failed to search songs", logger.String("like", like), logger.ErrorField(err))
		http.Error(w, "Failed to search songs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, songs)
}

func (s *Server) getSongHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(r, "id")
	if !ok {
		http.Error(w, "Invalid song id", http.StatusBadRequest)
		return
	}
	song, err := s.songs.GetSongByID(r.Context(), id)
	if err != nil {
		logger.Error("Failed to load song", logger.Int64("song_id", id), logger.ErrorField(err))
		http.Error(w, "Failed to load song", http.StatusInternalServerError)
		return
	}
	if song == nil {
		http.Error(w, "Song not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

func (s *Server) albumSongsHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(r, "id")
	if !ok {
		http.Error(w, "Invalid album id", http.StatusBadRequest)
		return
	}
	songs, err := s.songs.GetSongsByAlbumID(r.Context(), id)
	if err != nil {
		logger.Error("Failed to load album songs", logger.Int64("album_id", id), logger.ErrorField(err))
		http.Error(w, "Failed to load album songs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, songs)
}

func (s *Server) findAlbumsHandler(w http.ResponseWriter, r *http.Request) {
	like, ok := decodeLike(w, r)
	if !ok {
		return
	}
	albums, err := s.albums.FindAlbumsByTitle(r.Context(), like)
	if err != nil {
		logger.Error("Failed to search albums", logger.String("like", like), logger.ErrorField(err))
		http.Error(w, "Failed to search albums", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, albums)
}

func (s *Server) getAlbumHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(r, "id")
	if !ok {
		http.Error(w, "Invalid album id", http.StatusBadRequest)
		return
	}
	album, err := s.albums.GetAlbumByID(r.Context(), id)
	if err != nil {
		logger.Error("Failed to load album", logger.Int64("album_id", id), logger.ErrorField(err))
		http.Error(w, "Failed to load album", http.StatusInternalServerError)
		return
	}
	if album == nil {
		http.Error(w, "Album not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, album)
}

// coverHandler serves the album cover. An album without one, or a daemon
// without a cover store, answers 200 with an empty body.
func (s *Server) coverHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(r, "id")
	if !ok {
		http.Error(w, "Invalid album id", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	if s.covers == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	key, err := s.albums.GetAlbumCoverKey(r.Context(), id)
	if err != nil {
		logger.Error("Failed to look up cover", logger.Int64("album_id", id), logger.ErrorField(err))
		http.Error(w, "Failed to load cover", http.StatusInternalServerError)
		return
	}
	if key == "" {
		w.WriteHeader(http.StatusOK)
		return
	}

	data, mime, err := s.covers.GetCover(r.Context(), key)
	if err != nil {
		logger.Error("Failed to fetch cover", logger.String("key", key), logger.ErrorField(err))
		http.Error(w, "Failed to load cover", http.StatusInternalServerError)
		return
	}
	if mime != "" {
		w.Header().Set("Content-Type", mime)
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.Warn("Failed to write cover", logger.ErrorField(err))
	}
}

func (s *Server) scansHandler(w http.ResponseWriter, r *http.Request) {
	if s.scans == nil {
		writeJSON(w, http.StatusOK, []*model.ScanRun{})
		return
	}
	limit := defaultScanLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	runs, err := s.scans.Recent(r.Context(), limit)
	if err != nil {
		logger.Error("Failed to list scans", logger.ErrorField(err))
		http.Error(w, "Failed to list scans", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}
