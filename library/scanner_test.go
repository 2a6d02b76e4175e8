package library

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"yampd/model"
)

type fakeSongs struct {
	mu       sync.Mutex
	imported []*model.ImportedFile
	failOn   string
}

func (f *fakeSongs) GetSongByID(ctx context.Context, id int64) (*model.Song, error) {
	return nil, nil
}

func (f *fakeSongs) FindSongsByTitle(ctx context.Context, like string) ([]*model.Song, error) {
	return nil, nil
}

func (f *fakeSongs) GetSongsByAlbumID(ctx context.Context, albumID int64) ([]*model.Song, error) {
	return nil, nil
}

func (f *fakeSongs) UpsertSong(ctx context.Context, file *model.ImportedFile) (int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != "" && filepath.Base(file.Path) == f.failOn {
		return 0, 0, errors.New("duplicate entry")
	}
	f.imported = append(f.imported, file)
	return int64(len(f.imported)), 7, nil
}

func (f *fakeSongs) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, file := range f.imported {
		out = append(out, file.Path)
	}
	return out
}

type fakeAlbums struct {
	keys map[int64]string
}

func (f *fakeAlbums) GetAlbumByID(ctx context.Context, id int64) (*model.Album, error) {
	return nil, nil
}

func (f *fakeAlbums) FindAlbumsByTitle(ctx context.Context, like string) ([]*model.Album, error) {
	return nil, nil
}

func (f *fakeAlbums) GetAlbumCoverKey(ctx context.Context, id int64) (string, error) {
	return f.keys[id], nil
}

func (f *fakeAlbums) SetAlbumCoverKey(ctx context.Context, id int64, key string) error {
	f.keys[id] = key
	return nil
}

type fakeCovers struct {
	puts int
}

func (f *fakeCovers) PutCover(ctx context.Context, albumID int64, data []byte, mime string) (string, error) {
	f.puts++
	return "covers/7.png", nil
}

func (f *fakeCovers) GetCover(ctx context.Context, key string) ([]byte, string, error) {
	return nil, "", nil
}

type fakeScans struct {
	created  int
	finished []*model.ScanRun
}

func (f *fakeScans) Create(ctx context.Context, run *model.ScanRun) error {
	f.created++
	run.ID = int64(f.created)
	return nil
}

func (f *fakeScans) Finish(ctx context.Context, run *model.ScanRun) error {
	cp := *run
	f.finished = append(f.finished, &cp)
	return nil
}

func (f *fakeScans) Recent(ctx context.Context, limit int) ([]*model.ScanRun, error) {
	return f.finished, nil
}

func writeWAV(t *testing.T, path string, rate, frames int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	le := binary.LittleEndian
	dataSize := frames * 2
	header := []any{
		[]byte("RIFF"), uint32(36 + dataSize), []byte("WAVE"),
		[]byte("fmt "), uint32(16), uint16(1), uint16(1), uint32(rate), uint32(rate * 2), uint16(2), uint16(16),
		[]byte("data"), uint32(dataSize),
		make([]int16, frames),
	}
	for _, v := range header {
		if err := binary.Write(f, le, v); err != nil {
			t.Fatal(err)
		}
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestIsMusicFile(t *testing.T) {
	for path, want := range map[string]bool{
		"a.mp3":            true,
		"a.MP3":            true,
		"dir/b.flac":       true,
		"c.ogg":            true,
		"d.m4a":            true,
		"e.wav":            true,
		"cover.jpg":        false,
		"notes.txt":        false,
		"mp3":              false,
		"archive.flac.zip": false,
	} {
		if got := IsMusicFile(path); got != want {
			t.Errorf("IsMusicFile(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestWalk(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.mp3"))
	touch(t, filepath.Join(root, "a", "01.flac"))
	touch(t, filepath.Join(root, "a", "cover.jpg"))
	touch(t, filepath.Join(root, "a", "deep", "x.ogg"))

	got, err := Walk(root)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		filepath.Join(root, "a", "01.flac"),
		filepath.Join(root, "a", "deep", "x.ogg"),
		filepath.Join(root, "b.mp3"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Walk = %v, want %v", got, want)
	}

	if _, err := Walk(filepath.Join(root, "missing")); err == nil {
		t.Error("missing root should fail")
	}
}

func TestReadFileFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Some Song.wav")
	writeWAV(t, path, 8000, 800)

	f, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if f.Title != "Some Song" || f.Artist != UnknownArtist || f.AlbumArtist != UnknownArtist || f.Album != UnknownAlbum {
		t.Errorf("fallbacks = %+v", f)
	}
	if f.Path != path || len(f.Cover) != 0 {
		t.Errorf("file = %+v", f)
	}
}

func TestMeasureDuration(t *testing.T) {
	dir := t.TempDir()
	wav := filepath.Join(dir, "tone.wav")
	writeWAV(t, wav, 8000, 4000)
	if got := MeasureDuration(wav); got != 500*time.Millisecond {
		t.Errorf("MeasureDuration = %v", got)
	}

	m4a := filepath.Join(dir, "song.m4a")
	touch(t, m4a)
	if got := MeasureDuration(m4a); got != 0 {
		t.Errorf("undecodable file measured %v", got)
	}
}

func TestScanRoot(t *testing.T) {
	root := t.TempDir()
	writeWAV(t, filepath.Join(root, "album", "one.wav"), 8000, 4000)
	writeWAV(t, filepath.Join(root, "album", "two.wav"), 8000, 800)
	writeWAV(t, filepath.Join(root, "bad.wav"), 8000, 800)
	touch(t, filepath.Join(root, "readme.txt"))

	songs := &fakeSongs{failOn: "bad.wav"}
	scans := &fakeScans{}
	s := NewScanner(songs, nil, scans, nil)

	res, err := s.ScanRoot(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if res.Seen != 3 || res.Imported != 2 || res.Failed != 1 {
		t.Errorf("result = %+v", res)
	}
	if got := songs.imported[0].DurationMs; got != 500 {
		t.Errorf("DurationMs = %d", got)
	}

	if scans.created != 1 || len(scans.finished) != 1 {
		t.Fatalf("scan runs = %d created, %d finished", scans.created, len(scans.finished))
	}
	run := scans.finished[0]
	if run.Status != model.ScanStatusFinished || run.FilesSeen != 3 || run.Imported != 2 || run.Failed != 1 {
		t.Errorf("run = %+v", run)
	}
}

func TestScanAllContinuesAfterBadRoot(t *testing.T) {
	good := t.TempDir()
	writeWAV(t, filepath.Join(good, "a.wav"), 8000, 800)

	songs := &fakeSongs{}
	scans := &fakeScans{}
	s := NewScanner(songs, nil, scans, nil)
	s.Measure = nil

	results, err := s.ScanAll(context.Background(), []string{filepath.Join(good, "missing"), good})
	if err == nil {
		t.Error("expected the missing root to be reported")
	}
	if len(results) != 2 || results[1].Imported != 1 {
		t.Errorf("results = %+v", results)
	}
	if scans.finished[0].Status != model.ScanStatusFailed || scans.finished[0].Error == "" {
		t.Errorf("failed run = %+v", scans.finished[0])
	}
}

func TestStoreCoverOnce(t *testing.T) {
	albums := &fakeAlbums{keys: map[int64]string{}}
	covers := &fakeCovers{}
	s := NewScanner(&fakeSongs{}, albums, nil, covers)

	f := &model.ImportedFile{Cover: []byte{0x89, 'P', 'N', 'G'}, CoverMIME: "image/png"}
	s.storeCover(context.Background(), 7, f)
	s.storeCover(context.Background(), 7, f)

	if covers.puts != 1 {
		t.Errorf("puts = %d, want 1", covers.puts)
	}
	if albums.keys[7] != "covers/7.png" {
		t.Errorf("cover key = %q", albums.keys[7])
	}
}

func TestStoreCoverDisabled(t *testing.T) {
	s := NewScanner(&fakeSongs{}, nil, nil, nil)
	s.storeCover(context.Background(), 1, &model.ImportedFile{Cover: []byte{1}})
}
