package uploads

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/intake-desk/internal/config"
)

func TestSafeName(t *testing.T) {
	for _, tc := range []struct{ in, want string }{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\site plan (v2).pdf`, "site_plan__v2_.pdf"},
		{".hidden.txt", "hidden.txt"},
		{"", "file"},
		{"..", "file"},
		{strings.Repeat("a", 300) + ".pdf", strings.Repeat("a", 180)},
	} {
		if got := SafeName(tc.in); got != tc.want {
			t.Errorf("SafeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// formFiles builds real multipart headers the way an HTTP request would.
func formFiles(t *testing.T, files map[string]string) []*multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for name, content := range files {
		part, err := w.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		part.Write([]byte(content))
	}
	w.Close()
	req, _ := http.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatal(err)
	}
	return req.MultipartForm.File["files"]
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(config.UploadsConfig{Dir: dir, MaxTotalMB: 1, AllowedExts: []string{".pdf", "txt"}}, zap.NewNop())

	saved, rejected, err := store.Save(formFiles(t, map[string]string{
		"scope.pdf": "pdf-bytes",
		"notes.TXT": "hello",
		"virus.exe": "MZ",
		"empty.pdf": "",
		"big.pdf":   strings.Repeat("x", 2<<20),
	}))
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("saved = %v, rejected = %v", saved, rejected)
	}
	if len(rejected) != 3 {
		t.Fatalf("rejected = %v", rejected)
	}
	data, err := os.ReadFile(filepath.Join(dir, "scope.pdf"))
	if err != nil || string(data) != "pdf-bytes" {
		t.Fatalf("stored scope.pdf = %q, %v", data, err)
	}
}

func TestSaveKeepsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(config.UploadsConfig{Dir: dir, MaxTotalMB: 1, AllowedExts: []string{".pdf"}}, zap.NewNop())
	for i := 0; i < 2; i++ {
		if _, _, err := store.Save(formFiles(t, map[string]string{"scope.pdf": "v"})); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "scope-1.pdf")); err != nil {
		t.Fatalf("second upload overwrote the first: %v", err)
	}
}
