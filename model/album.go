package model

// Album is one release by an album artist.
type Album struct {
	ID       int64  `json:"albumId"`
	ArtistID int64  `json:"artistId"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Year     int    `json:"year"`
	Songs    int    `json:"songs"`
	// CoverKey is the object key of the cover in the cover store, empty if none.
	CoverKey string `json:"-"`
}
