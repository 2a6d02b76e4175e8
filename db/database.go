package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"yampd/config"
	"yampd/logger"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

var DB *sql.DB

// ConnectDB opens the MySQL pool and checks that the server answers.
func ConnectDB(cfg *config.Config) (*sql.DB, error) {
	conn, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	conn.SetMaxOpenConns(20)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	DB = conn
	logger.Info("Connected to MySQL", logger.String("host", cfg.DBHost), logger.String("db", cfg.DBName))
	return conn, nil
}

// CloseDB closes the global pool if it was opened.
func CloseDB() error {
	if DB == nil {
		return nil
	}
	return DB.Close()
}

// schema is applied in order. Every statement is idempotent.
var schema = []struct {
	name  string
	query string
}{
	{"artists", `
	CREATE TABLE IF NOT EXISTS artists (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT uq_artist_name UNIQUE (name)
	) DEFAULT CHARSET=utf8mb4`},
	{"albums", `
	CREATE TABLE IF NOT EXISTS albums (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		year INT NOT NULL DEFAULT 0,
		artist_id BIGINT NOT NULL,
		songs INT NOT NULL DEFAULT 0,
		cover_key VARCHAR(512) NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT fk_album_artist FOREIGN KEY (artist_id) REFERENCES artists(id) ON DELETE CASCADE,
		CONSTRAINT uq_album UNIQUE (title, year, artist_id)
	) DEFAULT CHARSET=utf8mb4`},
	{"songs", `
	CREATE TABLE IF NOT EXISTS songs (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		album_id BIGINT NOT NULL,
		artist_id BIGINT NOT NULL,
		track_index INT NOT NULL DEFAULT 0,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		file_path VARCHAR(767) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		CONSTRAINT fk_song_album FOREIGN KEY (album_id) REFERENCES albums(id) ON DELETE CASCADE,
		CONSTRAINT fk_song_artist FOREIGN KEY (artist_id) REFERENCES artists(id) ON DELETE CASCADE,
		CONSTRAINT uq_song_file UNIQUE (file_path),
		INDEX idx_song_album (album_id, track_index)
	) DEFAULT CHARSET=utf8mb4`},
}

// InitDB creates the library tables if they don't exist.
func InitDB(ctx context.Context, conn *sql.DB) error {
	for _, t := range schema {
		if _, err := conn.ExecContext(ctx, t.query); err != nil {
			return fmt.Errorf("failed to create %s table: %w", t.name, err)
		}
		logger.Debug("Table ready", logger.String("table", t.name))
	}
	logger.Info("Database schema initialized")
	return nil
}
