package server

import (
	"net/http"
	"strconv"
	"time"

	"yampd/logger"
	"yampd/model"
	"yampd/player"

	"github.com/gorilla/mux"
	"github.com/samber/lo"
)

// queueResponse is the queue with every entry resolved to its library song.
type queueResponse struct {
	Index int           `json:"index"`
	Songs []*model.Song `json:"songs"`
}

// nowResponse describes the current item. Times are in milliseconds.
type nowResponse struct {
	ID    int64 `json:"id"`
	Pos   int64 `json:"pos"`
	Dur   int64 `json:"dur"`
	Pause bool  `json:"pause"`
}

func nowFromStatus(st player.Status) (nowResponse, bool) {
	if !st.Playing {
		return nowResponse{}, false
	}
	return nowResponse{
		ID:    st.Item.SongID,
		Pos:   st.Position.Milliseconds(),
		Dur:   st.Duration.Milliseconds(),
		Pause: st.Paused,
	}, true
}

// control wraps a fire-and-forget player command. Commands answer 200 with
// an empty body whatever their effect.
func (s *Server) control(cmd func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cmd()
		w.WriteHeader(http.StatusOK)
	}
}

func pathInt(r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (s *Server) setIndexHandler(w http.ResponseWriter, r *http.Request) {
	idx, ok := pathInt(r, "idx")
	if !ok {
		http.Error(w, "Invalid index", http.StatusBadRequest)
		return
	}
	s.player.SetIndex(int(idx))
	s.player.Play()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) deleteIndexHandler(w http.ResponseWriter, r *http.Request) {
	idx, ok := pathInt(r, "idx")
	if !ok {
		http.Error(w, "Invalid index", http.StatusBadRequest)
		return
	}
	s.player.Delete(int(idx))
	w.WriteHeader(http.StatusOK)
}

func (s *Server) seekHandler(sign int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ms, ok := pathInt(r, "ms")
		if !ok {
			http.Error(w, "Invalid offset", http.StatusBadRequest)
			return
		}
		s.player.Seek(time.Duration(sign*ms) * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}
}

func (s *Server) setPositionHandler(w http.ResponseWriter, r *http.Request) {
	ms, ok := pathInt(r, "ms")
	if !ok {
		http.Error(w, "Invalid position", http.StatusBadRequest)
		return
	}
	s.player.SetPosition(time.Duration(ms) * time.Millisecond)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) queueHandler(w http.ResponseWriter, r *http.Request) {
	q := s.player.Queue()

	ids := lo.Uniq(lo.Map(q.Items, func(item player.QueueItem, _ int) int64 {
		return item.SongID
	}))
	byID := make(map[int64]*model.Song, len(ids))
	for _, id := range ids {
		song, err := s.songs.GetSongByID(r.Context(), id)
		if err != nil {
			logger.Error("Failed to resolve queued song", logger.Int64("song_id", id), logger.ErrorField(err))
			http.Error(w, "Failed to load queue", http.StatusInternalServerError)
			return
		}
		if song != nil {
			byID[id] = song
		}
	}

	// Songs removed from the library since they were queued are skipped.
	songs := lo.FilterMap(q.Items, func(item player.QueueItem, _ int) (*model.Song, bool) {
		song, ok := byID[item.SongID]
		return song, ok
	})
	writeJSON(w, http.StatusOK, queueResponse{Index: q.Index, Songs: songs})
}

func (s *Server) queueSongHandler(w http.ResponseWriter, r *http.Request) {
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
		logger.Warn("Queue request for unknown song", logger.Int64("song_id", id))
		w.WriteHeader(http.StatusOK)
		return
	}
	s.player.Push(player.QueueItem{SongID: song.ID, FilePath: song.FilePath})
	w.WriteHeader(http.StatusOK)
}

func (s *Server) queueAlbumHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(r, "id")
	if !ok {
		http.Error(w, "Invalid album id", http.StatusBadRequest)
		return
	}
	songs, err := s.songs.GetSongsByAlbumID(r.Context(), id)
	if err != nil {
		logger.Error("Failed to load album songs", logger.Int64("album_id", id), logger.ErrorField(err))
		http.Error(w, "Failed to load album", http.StatusInternalServerError)
		return
	}
	if len(songs) == 0 {
		logger.Warn("Queue request for empty or unknown album", logger.Int64("album_id", id))
	}
	for _, song := range songs {
		s.player.Push(player.QueueItem{SongID: song.ID, FilePath: song.FilePath})
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) nowHandler(w http.ResponseWriter, r *http.Request) {
	now, ok := nowFromStatus(s.player.Status())
	if !ok {
		http.Error(w, "Nothing playing", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, now)
}
