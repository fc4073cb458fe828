package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/resumify/docflow/internal/domain/recordModel"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		format    string
		kind      recordModel.SourceKind
		supported bool
	}{
		{"txt", recordModel.SourceSynchronousText, true},
		{"DOCX", recordModel.SourceSynchronousText, true},
		{".rtf", recordModel.SourceSynchronousText, true},
		{"odt", recordModel.SourceSynchronousText, true},
		{"pdf", recordModel.SourceAsynchronousJob, true},
		{"PNG", recordModel.SourceAsynchronousJob, true},
		{"jpeg", recordModel.SourceAsynchronousJob, true},
		{"tiff", recordModel.SourceAsynchronousJob, true},
		{"exe", "", false},
		{"", "", false},
	}

	for _, c := range cases {
		kind, supported := Classify(c.format)
		if supported != c.supported || kind != c.kind {
			t.Errorf("Classify(%q) = (%s, %v), want (%s, %v)", c.format, kind, supported, c.kind, c.supported)
		}
	}
}

func TestNormalizeFormat(t *testing.T) {
	if got := NormalizeFormat(" .PDF "); got != "pdf" {
		t.Errorf("NormalizeFormat = %q, want pdf", got)
	}
}

func TestText(t *testing.T) {
	t.Run("Plain text file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "doc.txt")
		if err := os.WriteFile(path, []byte("line one\nline two"), 0o644); err != nil {
			t.Fatal(err)
		}

		text, err := Text(path, "txt")
		if err != nil {
			t.Fatalf("Text failed: %v", err)
		}
		if text != "line one\nline two" {
			t.Errorf("text = %q", text)
		}
	})

	t.Run("Asynchronous format rejected", func(t *testing.T) {
		if _, err := Text("/tmp/whatever.pdf", "pdf"); err == nil {
			t.Error("pdf must not be synchronously extractable")
		}
	})
}
