package comic

import (
	"os"
	"path/filepath"
	"testing"
)

const berserkInfo = `<?xml version="1.0"?>
<ComicInfo>
  <Series>Berserk</Series>
  <Volume>1</Volume>
  <Writer>Kentarou Miura</Writer>
</ComicInfo>`

func TestExtractCBZ_MetadataAndCover(t *testing.T) {
	path := writeCBZ(t, []zipEntry{
		{"pages/03.jpg", "page-three"},
		{"pages/01.jpg", "page-one"},
		{"pages/02.jpg", "page-two"},
		{"ComicInfo.xml", berserkInfo},
	})

	extraction, err := ExtractCBZ(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !extraction.MetadataExtracted {
		t.Fatal("expected metadata")
	}
	if extraction.Metadata.Series != "Berserk" {
		t.Errorf("series = %q", extraction.Metadata.Series)
	}
	if extraction.Metadata.Volume == nil || *extraction.Metadata.Volume != 1 {
		t.Errorf("volume = %v, want 1", extraction.Metadata.Volume)
	}

	if !extraction.CoverExtracted {
		t.Fatal("expected cover")
	}
	if extraction.Cover.Name != "pages/01.jpg" {
		t.Errorf("cover = %q, want alphabetically first image", extraction.Cover.Name)
	}
	if string(extraction.Cover.Data) != "page-one" {
		t.Error("cover bytes mismatch")
	}
}

func TestExtractCBZ_ComicInfoOneLevelDeep(t *testing.T) {
	path := writeCBZ(t, []zipEntry{
		{"vol1/ComicInfo.xml", berserkInfo},
		{"vol1/01.jpg", "img"},
	})

	extraction, err := ExtractCBZ(path)
	if err != nil {
		t.Fatal(err)
	}
	if !extraction.MetadataExtracted {
		t.Error("ComicInfo one level deep should be parsed")
	}
}

func TestExtractCBZ_ComicInfoTooDeep(t *testing.T) {
	path := writeCBZ(t, []zipEntry{
		{"a/b/ComicInfo.xml", berserkInfo},
		{"a/b/01.jpg", "img"},
	})

	extraction, err := ExtractCBZ(path)
	if err != nil {
		t.Fatal(err)
	}
	if extraction.MetadataExtracted {
		t.Error("ComicInfo two levels deep should be ignored")
	}
	if !extraction.CoverExtracted {
		t.Error("cover extraction should still succeed")
	}
}

func TestExtractCBZ_NoComicInfo(t *testing.T) {
	path := writeCBZ(t, []zipEntry{
		{"01.jpg", "img"},
		{"02.jpg", "img"},
	})

	extraction, err := ExtractCBZ(path)
	if err != nil {
		t.Fatal(err)
	}
	if extraction.MetadataExtracted {
		t.Error("expected no metadata without ComicInfo.xml")
	}
	if !extraction.CoverExtracted {
		t.Error("expected cover")
	}
	if !extraction.Success() {
		t.Error("cover alone should count as success")
	}
}

func TestExtractCBZ_MalformedComicInfo(t *testing.T) {
	path := writeCBZ(t, []zipEntry{
		{"ComicInfo.xml", "<ComicInfo><Series>Unclosed"},
		{"01.jpg", "img"},
	})

	extraction, err := ExtractCBZ(path)
	if err != nil {
		t.Fatal(err)
	}
	if extraction.MetadataExtracted {
		t.Error("malformed ComicInfo should not yield metadata")
	}
	if !extraction.CoverExtracted {
		t.Error("cover extraction should still succeed")
	}
}

func TestExtractCBR_OpenError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.cbr")
	if err := os.WriteFile(path, []byte("not rar"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := ExtractCBR(path); err == nil {
		t.Error("expected error for non-RAR input")
	}
}

func TestIsExtractableComicInfo(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{"ComicInfo.xml", true},
		{"comicinfo.XML", true},
		{"vol1/ComicInfo.xml", true},
		{`vol1\ComicInfo.xml`, true},
		{"a/b/ComicInfo.xml", false},
		{"ComicInfo.txt", false},
	}

	for _, tt := range tests {
		if got := isExtractableComicInfo(tt.name); got != tt.expected {
			t.Errorf("isExtractableComicInfo(%q) = %v, want %v", tt.name, got, tt.expected)
		}
	}
}
