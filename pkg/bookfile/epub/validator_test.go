package epub

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/inkshelfapp/inkshelf-server/pkg/bookfile"
)

type zipEntry struct {
	name string
	data string
}

// writeArchive builds a ZIP file from entries under a temp dir.
func writeArchive(t *testing.T, entries []zipEntry) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.epub")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		if err != nil {
			t.Fatalf("create entry %s: %v", e.name, err)
		}
		if _, err := w.Write([]byte(e.data)); err != nil {
			t.Fatalf("write entry %s: %v", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}
	return path
}

const testContainerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const minimalOPF = `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Test</dc:title>
  </metadata>
  <manifest/>
</package>`

func validEntries() []zipEntry {
	return []zipEntry{
		{"mimetype", "application/epub+zip"},
		{"META-INF/container.xml", testContainerXML},
		{"OEBPS/content.opf", minimalOPF},
	}
}

func TestValidate_ValidEPUB(t *testing.T) {
	path := writeArchive(t, validEntries())

	result, err := Validate(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Valid {
		t.Fatalf("expected valid, got reason %q", result.Reason)
	}
	if result.RootfilePath != "OEBPS/content.opf" {
		t.Errorf("rootfile path = %q, want OEBPS/content.opf", result.RootfilePath)
	}
}

func TestValidate_NotAZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.epub")
	if err := os.WriteFile(path, []byte("this is not a zip archive"), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := Validate(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Valid {
		t.Fatal("expected invalid")
	}
	if result.Reason != bookfile.ReasonNotZip {
		t.Errorf("reason = %q, want %q", result.Reason, bookfile.ReasonNotZip)
	}
}

func TestValidate_MissingMimetype(t *testing.T) {
	path := writeArchive(t, []zipEntry{
		{"META-INF/container.xml", testContainerXML},
		{"OEBPS/content.opf", minimalOPF},
	})

	result, _ := Validate(path)
	if result.Valid || result.Reason != bookfile.ReasonMissingMimetype {
		t.Errorf("reason = %q, want %q", result.Reason, bookfile.ReasonMissingMimetype)
	}
}

func TestValidate_WrongMimetype(t *testing.T) {
	entries := validEntries()
	entries[0].data = "application/zip"
	path := writeArchive(t, entries)

	result, _ := Validate(path)
	if result.Valid {
		t.Fatal("expected invalid")
	}
	want := "Invalid mimetype: application/zip"
	if result.Reason != want {
		t.Errorf("reason = %q, want %q", result.Reason, want)
	}
}

func TestValidate_MimetypeTrailingWhitespace(t *testing.T) {
	entries := validEntries()
	entries[0].data = "application/epub+zip\n"
	path := writeArchive(t, entries)

	result, _ := Validate(path)
	if !result.Valid {
		t.Errorf("trailing newline should be tolerated, got reason %q", result.Reason)
	}
}

func TestValidate_MissingContainer(t *testing.T) {
	path := writeArchive(t, []zipEntry{
		{"mimetype", "application/epub+zip"},
		{"OEBPS/content.opf", minimalOPF},
	})

	result, _ := Validate(path)
	if result.Valid || result.Reason != bookfile.ReasonMissingContainer {
		t.Errorf("reason = %q, want %q", result.Reason, bookfile.ReasonMissingContainer)
	}
}

func TestValidate_NoRootfilePath(t *testing.T) {
	entries := validEntries()
	entries[1].data = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles/>
</container>`
	path := writeArchive(t, entries)

	result, _ := Validate(path)
	if result.Valid || result.Reason != bookfile.ReasonNoRootfilePath {
		t.Errorf("reason = %q, want %q", result.Reason, bookfile.ReasonNoRootfilePath)
	}
}

func TestValidate_MalformedContainer(t *testing.T) {
	entries := validEntries()
	entries[1].data = "<container><rootfiles"
	path := writeArchive(t, entries)

	result, _ := Validate(path)
	if result.Valid || result.Reason != bookfile.ReasonNoRootfilePath {
		t.Errorf("reason = %q, want %q", result.Reason, bookfile.ReasonNoRootfilePath)
	}
}

func TestValidate_MissingContentFile(t *testing.T) {
	path := writeArchive(t, []zipEntry{
		{"mimetype", "application/epub+zip"},
		{"META-INF/container.xml", testContainerXML},
	})

	result, _ := Validate(path)
	if result.Valid {
		t.Fatal("expected invalid")
	}
	want := "Missing content file: OEBPS/content.opf"
	if result.Reason != want {
		t.Errorf("reason = %q, want %q", result.Reason, want)
	}
}
