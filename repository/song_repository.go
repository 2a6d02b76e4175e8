package repository

import (
	"context"
	"database/sql"
	"fmt"

	"yampd/model"
)

// SongRepository defines the song lookups used by the API and the importer.
type SongRepository interface {
	GetSongByID(ctx context.Context, id int64) (*model.Song, error)
	FindSongsByTitle(ctx context.Context, like string) ([]*model.Song, error)
	GetSongsByAlbumID(ctx context.Context, albumID int64) ([]*model.Song, error)
	// UpsertSong inserts the file's artists, album and song, or refreshes the
	// song row when the path is already known.
	UpsertSong(ctx context.Context, f *model.ImportedFile) (songID, albumID int64, err error)
}

// mysqlSongRepository implements SongRepository for MySQL.
type mysqlSongRepository struct {
	DB *sql.DB
}

// NewMySQLSongRepository creates a new instance of mysqlSongRepository.
func NewMySQLSongRepository(db *sql.DB) SongRepository {
	return &mysqlSongRepository{DB: db}
}

const songColumns = `s.id, s.artist_id, s.album_id, s.title, ar.name, al.title, s.track_index, s.duration_ms, s.file_path
	FROM songs s
	JOIN artists ar ON s.artist_id = ar.id
	JOIN albums al ON s.album_id = al.id`

func scanSong(row interface{ Scan(...any) error }) (*model.Song, error) {
	s := &model.Song{}
	err := row.Scan(&s.ID, &s.ArtistID, &s.AlbumID, &s.Title, &s.Artist, &s.Album, &s.TrackIndex, &s.DurationMs, &s.FilePath)
	return s, err
}

// GetSongByID retrieves a song by its ID. It returns nil, nil when absent.
func (r *mysqlSongRepository) GetSongByID(ctx context.Context, id int64) (*model.Song, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+songColumns+` WHERE s.id = ?`, id)
	s, err := scanSong(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan song by ID %d: %w", id, err)
	}
	return s, nil
}

// FindSongsByTitle returns songs whose title contains like, ordered by title.
func (r *mysqlSongRepository) FindSongsByTitle(ctx context.Context, like string) ([]*model.Song, error) {
	return r.query(ctx, `SELECT `+songColumns+` WHERE s.title LIKE ? ORDER BY s.title`, likePattern(like))
}

// GetSongsByAlbumID returns an album's songs in track order.
func (r *mysqlSongRepository) GetSongsByAlbumID(ctx context.Context, albumID int64) ([]*model.Song, error) {
	return r.query(ctx, `SELECT `+songColumns+` WHERE s.album_id = ? ORDER BY s.track_index, s.id`, albumID)
}

func (r *mysqlSongRepository) query(ctx context.Context, query string, args ...any) ([]*model.Song, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer rows.Close()

	songs := make([]*model.Song, 0)
	for rows.Next() {
		s, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan song: %w", err)
		}
		songs = append(songs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during song rows iteration: %w", err)
	}
	return songs, nil
}

// UpsertSong runs the whole import of one file in a transaction.
func (r *mysqlSongRepository) UpsertSong(ctx context.Context, f *model.ImportedFile) (int64, int64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	albumArtist := f.AlbumArtist
	if albumArtist == "" {
		albumArtist = f.Artist
	}
	if _, err := tx.ExecContext(ctx, `INSERT IGNORE INTO artists (name) VALUES (?), (?)`, f.Artist, albumArtist); err != nil {
		return 0, 0, fmt.Errorf("failed to insert artists: %w", err)
	}
	artistID, err := lookupArtistID(ctx, tx, f.Artist)
	if err != nil {
		return 0, 0, err
	}
	albumArtistID, err := lookupArtistID(ctx, tx, albumArtist)
	if err != nil {
		return 0, 0, err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT IGNORE INTO albums (title, year, artist_id, songs) VALUES (?, ?, ?, ?)`,
		f.Album, f.Year, albumArtistID, f.TrackTotal); err != nil {
		return 0, 0, fmt.Errorf("failed to insert album %q: %w", f.Album, err)
	}
	var albumID int64
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM albums WHERE title = ? AND year = ? AND artist_id = ?`,
		f.Album, f.Year, albumArtistID).Scan(&albumID); err != nil {
		return 0, 0, fmt.Errorf("failed to look up album %q: %w", f.Album, err)
	}

	// LAST_INSERT_ID(id) makes the existing row's id available on update.
	res, err := tx.ExecContext(ctx, `
		INSERT INTO songs (title, album_id, artist_id, track_index, duration_ms, file_path)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			id = LAST_INSERT_ID(id),
			title = VALUES(title),
			album_id = VALUES(album_id),
			artist_id = VALUES(artist_id),
			track_index = VALUES(track_index),
			duration_ms = VALUES(duration_ms)`,
		f.Title, albumID, artistID, f.TrackIndex, f.DurationMs, f.Path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to upsert song %q: %w", f.Path, err)
	}
	songID, err := res.LastInsertId()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get song ID for %q: %w", f.Path, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit import of %q: %w", f.Path, err)
	}
	return songID, albumID, nil
}

func lookupArtistID(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	var id int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM artists WHERE name = ?`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to look up artist %q: %w", name, err)
	}
	return id, nil
}
