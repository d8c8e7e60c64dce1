package domain

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateKey(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name         string
		prefix       string
		category     string
		fileID       string
		originalName string
		want         string
	}{
		{
			name:         "plain name",
			prefix:       "uploads/",
			category:     "album",
			fileID:       "01ARZ3NDEKTSV4RRFFQ69G5FAV",
			originalName: "cover.jpg",
			want:         "uploads/album/1773484200000_01ARZ3NDEKTSV4RRFFQ69G5FAV_cover.jpg",
		},
		{
			name:         "unsafe characters stripped",
			prefix:       "",
			category:     "article",
			fileID:       "abc",
			originalName: "my photo (1) [final]!.png",
			want:         "article/1773484200000_abc_myphoto1final.png",
		},
		{
			name:         "path components dropped",
			prefix:       "",
			category:     "avatar",
			fileID:       "abc",
			originalName: "../../etc/passwd",
			want:         "avatar/1773484200000_abc_passwd",
		},
		{
			name:         "nothing safe left in base name",
			prefix:       "",
			category:     "album",
			fileID:       "abc",
			originalName: "......jpg",
			want:         "album/1773484200000_abc_upload.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateKey(tt.prefix, tt.category, tt.fileID, tt.originalName, now)
			if got != tt.want {
				t.Errorf("GenerateKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerateKeyDeterminism(t *testing.T) {
	now := time.Now().UTC()

	a := GenerateKey("uploads/", "album", "id1", "song.mp3", now)
	b := GenerateKey("uploads/", "album", "id1", "song.mp3", now)
	if a != b {
		t.Errorf("same inputs at the same instant must produce the same key: %q vs %q", a, b)
	}

	later := GenerateKey("uploads/", "album", "id1", "song.mp3", now.Add(time.Millisecond))
	if a == later {
		t.Errorf("calls separated in time must produce different keys, both were %q", a)
	}
}

func TestGenerateKeyCategoryPrefix(t *testing.T) {
	key := GenerateKey("uploads/", "album", "id1", "cover.jpg", time.Now())
	if !strings.HasPrefix(key, "uploads/album/") {
		t.Errorf("key %q does not start with the category prefix", key)
	}
	if !strings.HasSuffix(key, ".jpg") {
		t.Errorf("key %q lost the extension", key)
	}
}
