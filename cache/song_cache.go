package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"yampd/logger"
	"yampd/model"
	"yampd/repository"

	"github.com/go-redis/redis/v8"
)

// KV is the subset of the Redis client the cache needs. *redis.Client
// satisfies it.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// SongCache is a read-through cache in front of a SongRepository. Only
// lookups by ID are cached; Redis failures fall through to the repository.
type SongCache struct {
	repository.SongRepository
	kv  KV
	ttl time.Duration
}

// NewSongCache wraps repo with a Redis cache of the given TTL.
func NewSongCache(repo repository.SongRepository, kv KV, ttl time.Duration) *SongCache {
	return &SongCache{SongRepository: repo, kv: kv, ttl: ttl}
}

// SongKey is the Redis key of a cached song.
func SongKey(id int64) string {
	return fmt.Sprintf("song:%d", id)
}

// songEntry carries the file path, which Song hides from JSON.
type songEntry struct {
	model.Song
	FilePath string `json:"path"`
}

func (c *SongCache) GetSongByID(ctx context.Context, id int64) (*model.Song, error) {
	key := SongKey(id)
	data, err := c.kv.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var e songEntry
		if err := json.Unmarshal(data, &e); err == nil {
			song := e.Song
			song.FilePath = e.FilePath
			return &song, nil
		}
		logger.Warn("Discarding corrupt song cache entry", logger.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		logger.Warn("Song cache read failed", logger.String("key", key), logger.ErrorField(err))
	}

	song, err := c.SongRepository.GetSongByID(ctx, id)
	if err != nil || song == nil {
		return song, err
	}

	data, err = json.Marshal(songEntry{Song: *song, FilePath: song.FilePath})
	if err == nil {
		err = c.kv.Set(ctx, key, data, c.ttl).Err()
	}
	if err != nil {
		logger.Warn("Song cache write failed", logger.String("key", key), logger.ErrorField(err))
	}
	return song, nil
}

// UpsertSong writes through and drops the cached entry.
func (c *SongCache) UpsertSong(ctx context.Context, f *model.ImportedFile) (int64, int64, error) {
	songID, albumID, err := c.SongRepository.UpsertSong(ctx, f)
	if err != nil {
		return songID, albumID, err
	}
	if err := c.kv.Del(ctx, SongKey(songID)).Err(); err != nil {
		logger.Warn("Song cache invalidation failed", logger.Int64("song_id", songID), logger.ErrorField(err))
	}
	return songID, albumID, nil
}
