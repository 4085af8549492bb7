package content

import (
	"errors"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    Location
		wantErr error
	}{
		{
			name: "undated document",
			path: "notes/git-cheatsheet.html",
			want: Location{Kind: "notes", URI: "git-cheatsheet"},
		},
		{
			name: "dated document",
			path: "blog/2024/04-08.house-music-history.html",
			want: Location{
				Kind: "blog",
				URI:  "house-music-history",
				Date: time.Date(2024, time.April, 8, 0, 0, 0, 0, time.UTC),
			},
		},
		{
			name:    "file at repository root",
			path:    "README.html",
			wantErr: ErrInvalidLocation,
		},
		{
			name:    "too deeply nested",
			path:    "blog/2024/04/08.article.html",
			wantErr: ErrInvalidLocation,
		},
		{
			name:    "dated layout without a year directory",
			path:    "blog/drafts/04-08.article.html",
			wantErr: ErrInvalidLocation,
		},
		{
			name:    "dated layout with a broken date",
			path:    "blog/2024/04.article.html",
			wantErr: ErrDateMalformatted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.path)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Classify(%q) error = %v, want %v", tt.path, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Classify(%q) unexpected error: %v", tt.path, err)
			}
			if got != tt.want {
				t.Errorf("Classify(%q) = %+v, want %+v", tt.path, got, tt.want)
			}
		})
	}
}

func TestScanURI(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"notes/git-cheatsheet.html", "git-cheatsheet"},
		{"blog/2024/04-08.house-music-history.html", "house-music-history"},
		{"blog/2024/04-08.v2.final.adoc", "final"},
		{"notes/noext", "noext"},
	}

	for _, tt := range tests {
		if got := ScanURI(tt.path); got != tt.want {
			t.Errorf("ScanURI(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestScanDate(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    time.Time
		wantErr error
	}{
		{
			name: "valid date",
			path: "blog/2024/04-08.article.html",
			want: time.Date(2024, time.April, 8, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "leap day",
			path: "blog/2024/02-29.article.html",
			want: time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "year directory is not a number",
			path:    "blog/latest/04-08.article.html",
			wantErr: ErrInvalidLocation,
		},
		{
			name:    "missing day",
			path:    "blog/2024/04.article.html",
			wantErr: ErrDateMalformatted,
		},
		{
			name:    "too many date tokens",
			path:    "blog/2024/04-08-12.article.html",
			wantErr: ErrDateMalformatted,
		},
		{
			name:    "month is not a number",
			path:    "blog/2024/april-08.article.html",
			wantErr: ErrDateMalformatted,
		},
		{
			name:    "month out of range",
			path:    "blog/2024/13-01.article.html",
			wantErr: ErrDateMalformatted,
		},
		{
			name:    "day out of range",
			path:    "blog/2024/04-31.article.html",
			wantErr: ErrDateMalformatted,
		},
		{
			name:    "leap day on a common year",
			path:    "blog/2023/02-29.article.html",
			wantErr: ErrDateMalformatted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ScanDate(tt.path)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ScanDate(%q) error = %v, want %v", tt.path, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ScanDate(%q) unexpected error: %v", tt.path, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ScanDate(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
