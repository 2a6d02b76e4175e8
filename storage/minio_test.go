package storage

import "testing"

func TestCoverKey(t *testing.T) {
	tests := []struct {
		mime string
		want string
	}{
		{"image/jpeg", "covers/12.jpg"},
		{"image/png", "covers/12.png"},
		{"", "covers/12.jpg"},
		{"image/webp", "covers/12.webp"},
	}
	for _, tt := range tests {
		if got := CoverKey(12, tt.mime); got != tt.want {
			t.Errorf("CoverKey(12, %q) = %q, want %q", tt.mime, got, tt.want)
		}
	}
}

func TestFormatSize(t *testing.T) {
	tests := map[int64]string{
		0:               "0 B",
		1023:            "1023 B",
		1024:            "1.0 KB",
		1536:            "1.5 KB",
		5 * 1024 * 1024: "5.0 MB",
	}
	for in, want := range tests {
		if got := FormatSize(in); got != want {
			t.Errorf("FormatSize(%d) = %q, want %q", in, got, want)
		}
	}
}
