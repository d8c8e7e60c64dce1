package domain

import "testing"

func TestSplitTitle(t *testing.T) {
	tests := []struct {
		name         string
		originalName string
		wantTitle    string
		wantAlt      string
	}{
		{
			name:         "marker splits primary and alternate",
			originalName: "CoverEnglishTitleCoverEng.jpg",
			wantTitle:    "Cover",
			wantAlt:      "CoverEng",
		},
		{
			name:         "no marker keeps whole base name",
			originalName: "holiday-photo.png",
			wantTitle:    "holiday-photo",
			wantAlt:      "",
		},
		{
			name:         "marker at start leaves empty title",
			originalName: "EnglishTitleOnlyAlt.mp3",
			wantTitle:    "",
			wantAlt:      "OnlyAlt",
		},
		{
			name:         "extension stripped before split",
			originalName: "path/to/SongEnglishTitleSongEng.flac",
			wantTitle:    "Song",
			wantAlt:      "SongEng",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, alt := SplitTitle(tt.originalName)
			if title != tt.wantTitle || alt != tt.wantAlt {
				t.Errorf("SplitTitle(%q) = (%q, %q), want (%q, %q)",
					tt.originalName, title, alt, tt.wantTitle, tt.wantAlt)
			}
		})
	}
}
