package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"yampd/logger"
	"yampd/model"
	"yampd/player"
	"yampd/repository"
	"yampd/storage"

	"github.com/dhowden/tag"
)

const (
	UnknownArtist = "Unknown Artist"
	UnknownAlbum  = "Unknown Album"
)

var musicExts = map[string]bool{
	".ogg":  true,
	".mp3":  true,
	".m4a":  true,
	".wav":  true,
	".flac": true,
}

// IsMusicFile reports whether path has one of the library's audio extensions.
func IsMusicFile(path string) bool {
	return musicExts[strings.ToLower(filepath.Ext(path))]
}

// Walk returns every music file below root, in lexical order.
func Walk(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			logger.Warn("Skipping unreadable path", logger.String("path", path), logger.ErrorField(err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && IsMusicFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return paths, nil
}

// ReadFile reads the tags of one file. Missing tags fall back to the file
// name and the unknown artist/album placeholders.
func ReadFile(path string) (*model.ImportedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	out := &model.ImportedFile{Path: path}
	md, err := tag.ReadFrom(f)
	switch {
	case err == nil:
		out.Title = strings.TrimSpace(md.Title())
		out.Artist = strings.TrimSpace(md.Artist())
		out.AlbumArtist = strings.TrimSpace(md.AlbumArtist())
		out.Album = strings.TrimSpace(md.Album())
		out.Year = md.Year()
		out.TrackIndex, out.TrackTotal = md.Track()
		if pic := md.Picture(); pic != nil && len(pic.Data) > 0 {
			out.Cover = pic.Data
			out.CoverMIME = pic.MIMEType
		}
	case errors.Is(err, tag.ErrNoTagsFound):
	default:
		logger.Debug("Unreadable tags", logger.String("path", path), logger.ErrorField(err))
	}

	if out.Title == "" {
		base := filepath.Base(path)
		out.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if out.Artist == "" {
		out.Artist = UnknownArtist
	}
	if out.AlbumArtist == "" {
		out.AlbumArtist = out.Artist
	}
	if out.Album == "" {
		out.Album = UnknownAlbum
	}
	return out, nil
}

// MeasureDuration opens a decode session to learn the file's length. Formats
// the player cannot decode measure as zero.
func MeasureDuration(path string) time.Duration {
	s, err := player.OpenSession(path, player.EndOnDecodeError)
	if err != nil {
		logger.Debug("Cannot measure duration", logger.String("path", path), logger.ErrorField(err))
		return 0
	}
	defer s.Close()
	return s.Duration()
}

// Result counts what one root scan did.
type Result struct {
	Root     string
	Seen     int
	Imported int
	Failed   int
}

// Scanner imports audio files into the library store.
type Scanner struct {
	songs  repository.SongRepository
	albums repository.AlbumRepository
	scans  repository.ScanRepository
	covers storage.CoverStore

	// Measure defaults to MeasureDuration.
	Measure func(path string) time.Duration
}

// NewScanner builds a scanner. albums, scans and covers may be nil; without
// them covers are not stored and no scan history is kept.
func NewScanner(songs repository.SongRepository, albums repository.AlbumRepository, scans repository.ScanRepository, covers storage.CoverStore) *Scanner {
	return &Scanner{
		songs:   songs,
		albums:  albums,
		scans:   scans,
		covers:  covers,
		Measure: MeasureDuration,
	}
}

// ScanAll scans each root in turn. A failing root does not stop the others.
func (s *Scanner) ScanAll(ctx context.Context, roots []string) ([]Result, error) {
	var (
		results []Result
		errs    []error
	)
	for _, root := range roots {
		res, err := s.ScanRoot(ctx, root)
		results = append(results, res)
		if err != nil {
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
		}
	}
	return results, errors.Join(errs...)
}

// ScanRoot imports every music file below root and records a scan run.
func (s *Scanner) ScanRoot(ctx context.Context, root string) (Result, error) {
	res := Result{Root: root}
	run := &model.ScanRun{Root: root, Status: model.ScanStatusRunning, StartedAt: time.Now()}
	if s.scans != nil {
		if err := s.scans.Create(ctx, run); err != nil {
			logger.Warn("Failed to record scan start", logger.String("root", root), logger.ErrorField(err))
		}
	}

	start := time.Now()
	err := s.scanRoot(ctx, root, &res)

	run.FilesSeen, run.Imported, run.Failed = res.Seen, res.Imported, res.Failed
	run.Status = model.ScanStatusFinished
	if err != nil {
		run.Status = model.ScanStatusFailed
		run.Error = err.Error()
	}
	if s.scans != nil && run.ID != 0 {
		if ferr := s.scans.Finish(context.WithoutCancel(ctx), run); ferr != nil {
			logger.Warn("Failed to record scan end", logger.String("root", root), logger.ErrorField(ferr))
		}
	}

	logger.Info("Library scan finished",
		logger.String("root", root),
		logger.Int("seen", res.Seen),
		logger.Int("imported", res.Imported),
		logger.Int("failed", res.Failed),
		logger.Duration("took", time.Since(start)))
	return res, err
}

func (s *Scanner) scanRoot(ctx context.Context, root string, res *Result) error {
	paths, err := Walk(root)
	if err != nil {
		return err
	}
	res.Seen = len(paths)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.ImportFile(ctx, path); err != nil {
			res.Failed++
			logger.Warn("Failed to import file", logger.String("path", path), logger.ErrorField(err))
			continue
		}
		res.Imported++
	}
	return nil
}

// ImportFile reads, measures and stores one file.
func (s *Scanner) ImportFile(ctx context.Context, path string) error {
	f, err := ReadFile(path)
	if err != nil {
		return err
	}
	if s.Measure != nil {
		f.DurationMs = s.Measure(path).Milliseconds()
	}

	songID, albumID, err := s.songs.UpsertSong(ctx, f)
	if err != nil {
		return err
	}
	logger.Debug("Imported song",
		logger.Int64("song_id", songID),
		logger.Int64("album_id", albumID),
		logger.String("path", path))

	if len(f.Cover) > 0 {
		s.storeCover(ctx, albumID, f)
	}
	return nil
}

// storeCover uploads the first cover seen for an album. Failures only log.
func (s *Scanner) storeCover(ctx context.Context, albumID int64, f *model.ImportedFile) {
	if s.covers == nil || s.albums == nil {
		return
	}
	key, err := s.albums.GetAlbumCoverKey(ctx, albumID)
	if err != nil {
		logger.Warn("Failed to check album cover", logger.Int64("album_id", albumID), logger.ErrorField(err))
		return
	}
	if key != "" {
		return
	}
	key, err = s.covers.PutCover(ctx, albumID, f.Cover, f.CoverMIME)
	if err != nil {
		logger.Warn("Failed to store album cover", logger.Int64("album_id", albumID), logger.ErrorField(err))
		return
	}
	if err := s.albums.SetAlbumCoverKey(ctx, albumID, key); err != nil {
		logger.Warn("Failed to save cover key", logger.Int64("album_id", albumID), logger.ErrorField(err))
	}
}
