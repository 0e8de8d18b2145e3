package pdftext

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExtract_MissingFile(t *testing.T) {
	_, err := Extract("/nonexistent/statement.pdf", "")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestExtract_NotAPDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fake.pdf")
	if err := os.WriteFile(path, []byte("this is not a pdf at all"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := Extract(path, "")
	if err == nil {
		t.Fatal("expected error for non-PDF content")
	}
}

func TestIsReadable(t *testing.T) {
	statement := strings.Repeat("01/06/2025 CARD PAYMENT TESCO STORES 23.50\n", 5)

	tests := []struct {
		name  string
		pages []string
		want  bool
	}{
		{"empty", nil, false},
		{"too short", []string{"hi"}, false},
		{"readable statement text", []string{statement}, true},
		{"binary garbage", []string{strings.Repeat("\xfe\xff\x01\x02\x80\x81", 50)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isReadable(tt.pages); got != tt.want {
				t.Errorf("isReadable() = %v, want %v", got, tt.want)
			}
		})
	}
}
