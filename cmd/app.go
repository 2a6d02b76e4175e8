package cmd

import (
	"context"
	"errors"

	"yampd/cache"
	"yampd/config"
	"yampd/db"
	"yampd/logger"
	"yampd/model"
	"yampd/player"
	"yampd/repository"
	"yampd/storage"
)

// store bundles the library backends shared by serve and scan.
type store struct {
	songs  repository.SongRepository
	albums repository.AlbumRepository
	scans  repository.ScanRepository
	covers storage.CoverStore
}

// openStore connects MySQL, applies the schema, and attaches Redis and MinIO
// when they are enabled. Redis and MinIO failures degrade to running without
// them. The returned close func releases every connection.
func openStore(ctx context.Context, cfg *config.Config) (*store, func(), error) {
	sqlDB, err := db.ConnectDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := db.InitDB(ctx, sqlDB); err != nil {
		db.CloseDB()
		return nil, nil, err
	}

	gormDB, err := db.ConnectGormDB(cfg)
	if err != nil {
		db.CloseDB()
		return nil, nil, err
	}
	if err := db.AutoMigrateModels(gormDB, &model.ScanRun{}); err != nil {
		db.CloseGormDB()
		db.CloseDB()
		return nil, nil, err
	}

	st := &store{
		songs:  repository.NewMySQLSongRepository(sqlDB),
		albums: repository.NewMySQLAlbumRepository(sqlDB),
		scans:  repository.NewGormScanRepository(gormDB),
	}

	if cfg.RedisEnabled {
		client, err := db.ConnectRedis(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, song cache disabled", logger.ErrorField(err))
		} else {
			st.songs = cache.NewSongCache(st.songs, client, cfg.SongCacheTTL)
			logger.Info("Song cache enabled", logger.String("addr", cfg.RedisAddr()))
		}
	}

	if cfg.MinioEnabled {
		covers, err := storage.NewMinioCoverStore(ctx, cfg)
		if err != nil {
			logger.Warn("MinIO unavailable, covers disabled", logger.ErrorField(err))
		} else {
			st.covers = covers
		}
	}

	closeAll := func() {
		if err := errors.Join(db.CloseRedis(), db.CloseGormDB(), db.CloseDB()); err != nil {
			logger.Warn("Error closing connections", logger.ErrorField(err))
		}
	}
	return st, closeAll, nil
}

// openDevice picks the configured output. The speaker falls back to the
// null device when no audio output can be opened.
func openDevice(cfg *config.Config) player.Device {
	if cfg.PlayerDevice == "null" {
		return player.NewNullDevice(cfg.PlayerBuffer)
	}
	dev, err := player.NewSpeakerDevice(cfg.PlayerSampleRate, cfg.PlayerBuffer)
	if err != nil {
		logger.Warn("Audio output unavailable, using the null device",
			logger.String("device", cfg.PlayerDevice),
			logger.Bool("audio_built", player.AudioAvailable),
			logger.ErrorField(err))
		return player.NewNullDevice(cfg.PlayerBuffer)
	}
	return dev
}
