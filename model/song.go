package model

// Song is a library track joined with its artist and album names.
type Song struct {
	ID         int64  `json:"songId"`
	ArtistID   int64  `json:"artistId"`
	AlbumID    int64  `json:"albumId"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
	TrackIndex int    `json:"trackIndex"`
	DurationMs int64  `json:"ms"`
	FilePath   string `json:"-"`
}

// ImportedFile is everything the scanner learned about one audio file.
type ImportedFile struct {
	Path        string
	Title       string
	Artist      string
	AlbumArtist string
	Album       string
	Year        int
	TrackIndex  int
	TrackTotal  int
	DurationMs  int64
	// Cover is the embedded picture, if any.
	Cover     []byte
	CoverMIME string
}
