package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"yampd/model"
)

// AlbumRepository defines album lookups and cover bookkeeping.
type AlbumRepository interface {
	GetAlbumByID(ctx context.Context, id int64) (*model.Album, error)
	FindAlbumsByTitle(ctx context.Context, like string) ([]*model.Album, error)
	// GetAlbumCoverKey returns the cover object key, or "" with no error when
	// the album has no cover or does not exist.
	GetAlbumCoverKey(ctx context.Context, id int64) (string, error)
	SetAlbumCoverKey(ctx context.Context, id int64, key string) error
}

// MySQLAlbumRepository is the MySQL AlbumRepository.
type MySQLAlbumRepository struct {
	db *sql.DB
}

// NewMySQLAlbumRepository creates a new MySQL album repository.
func NewMySQLAlbumRepository(db *sql.DB) *MySQLAlbumRepository {
	return &MySQLAlbumRepository{db: db}
}

const albumColumns = `al.id, al.artist_id, al.title, ar.name, al.year, al.songs, al.cover_key
	FROM albums al
	JOIN artists ar ON al.artist_id = ar.id`

// GetAlbumByID returns nil, nil when the album does not exist.
func (r *MySQLAlbumRepository) GetAlbumByID(ctx context.Context, id int64) (*model.Album, error) {
	album := &model.Album{}
	err := r.db.QueryRowContext(ctx, `SELECT `+albumColumns+` WHERE al.id = ?`, id).Scan(
		&album.ID,
		&album.ArtistID,
		&album.Title,
		&album.Artist,
		&album.Year,
		&album.Songs,
		&album.CoverKey,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan album by ID %d: %w", id, err)
	}
	return album, nil
}

// FindAlbumsByTitle returns albums whose title contains like, ordered by title.
func (r *MySQLAlbumRepository) FindAlbumsByTitle(ctx context.Context, like string) ([]*model.Album, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+albumColumns+` WHERE al.title LIKE ? ORDER BY al.title`, likePattern(like))
	if err != nil {
		return nil, fmt.Errorf("failed to query albums: %w", err)
	}
	defer rows.Close()

	albums := make([]*model.Album, 0)
	for rows.Next() {
		album := &model.Album{}
		if err := rows.Scan(&album.ID, &album.ArtistID, &album.Title, &album.Artist, &album.Year, &album.Songs, &album.CoverKey); err != nil {
			return nil, fmt.Errorf("failed to scan album: %w", err)
		}
		albums = append(albums, album)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during album rows iteration: %w", err)
	}
	return albums, nil
}

func (r *MySQLAlbumRepository) GetAlbumCoverKey(ctx context.Context, id int64) (string, error) {
	var key string
	err := r.db.QueryRowContext(ctx, `SELECT cover_key FROM albums WHERE id = ?`, id).Scan(&key)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("failed to get cover key for album %d: %w", id, err)
	}
	return key, nil
}

func (r *MySQLAlbumRepository) SetAlbumCoverKey(ctx context.Context, id int64, key string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE albums SET cover_key = ? WHERE id = ?`, key, id); err != nil {
		return fmt.Errorf("failed to set cover key for album %d: %w", id, err)
	}
	return nil
}

// likePattern wraps s for a substring LIKE match, escaping wildcards.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
