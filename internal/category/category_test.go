package category

import "testing"

func TestForPath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected Category
	}{
		{"mkv file", "/mnt/archive/movies/test.mkv", Video},
		{"MKV uppercase", "/mnt/archive/movies/test.MKV", Video},
		{"mp4 file", "/mnt/archive/movies/test.mp4", Video},
		{"flac file", "/mnt/archive/music/track.flac", Audio},
		{"mp3 file", "/mnt/archive/music/track.mp3", Audio},
		{"jpeg photo", "/mnt/archive/photos/IMG_0001.JPG", Image},
		{"webp image", "/mnt/archive/photos/pic.webp", Image},
		{"raw photo", "/mnt/archive/photos/IMG_0001.CR2", Image},
		{"pdf document", "/mnt/archive/docs/manual.pdf", Document},
		{"csv export", "/mnt/archive/docs/data.csv", Document},
		{"zip archive", "/mnt/archive/backups/old.zip", Archive},
		{"iso image", "/mnt/archive/backups/install.iso", Archive},
		{"windows exe", "/mnt/archive/software/setup.exe", Executable},
		{"dll", "/mnt/archive/software/lib.dll", Executable},
		{"no extension", "/mnt/archive/README", Other},
		{"unknown extension", "/mnt/archive/data.xyz", Other},
		{"empty path", "", Other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ForPath(tt.path)
			if got != tt.expected {
				t.Errorf("ForPath(%q) = %v, want %v", tt.path, got, tt.expected)
			}
		})
	}
}

func TestForEntry_Directory(t *testing.T) {
	// A directory named like a video file is still a directory
	if got := ForEntry("/mnt/archive/movies.mkv", true); got != Directory {
		t.Errorf("ForEntry(dir) = %v, want Directory", got)
	}
	if got := ForEntry("/mnt/archive/movies/test.mkv", false); got != Video {
		t.Errorf("ForEntry(file) = %v, want Video", got)
	}
}

func TestValid(t *testing.T) {
	for _, c := range []Category{Video, Audio, Image, Document, Archive, Executable, Directory, Other} {
		if !Valid(c) {
			t.Errorf("Valid(%v) = false, want true", c)
		}
	}
	if Valid(Category("Film")) {
		t.Error("Valid(Film) = true, want false")
	}
}
