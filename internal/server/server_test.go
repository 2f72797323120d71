package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/alibenameur/dupfinder/internal/cleaner"
	"github.com/alibenameur/dupfinder/internal/testutil"
	"github.com/alibenameur/dupfinder/internal/trash"
)

// trashDeleter routes DeleteOne through a real trash directory under
// the test's tempdir.
func trashDeleter(t *testing.T) (*cleaner.Cleaner, string) {
	t.Helper()
	trashDir := t.TempDir()
	return cleaner.New(trash.New(trash.WithDirectory(trashDir))), trashDir
}

func testServer(t *testing.T, deleter FileDeleter) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(New("localhost:0", deleter, nil).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func fileURL(ts *httptest.Server, path string) string {
	return ts.URL + "/?file_path=" + url.QueryEscape(path)
}

func decodeJSON(t *testing.T, resp *http.Response) jsonResponse {
	t.Helper()
	defer resp.Body.Close()
	var body jsonResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestGetServesFile(t *testing.T) {
	fixture := testutil.NewFixture(t)
	path := fixture.CreateFile("photo.jpg", []byte("jpeg bytes"))
	ts := testServer(t, nil)

	resp, err := http.Get(fileURL(ts, path))
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q, want image/jpeg", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != "inline" {
		t.Errorf("Content-Disposition = %q, want inline", cd)
	}
}

func TestGetUnknownExtensionFallsBackToPlainText(t *testing.T) {
	fixture := testutil.NewFixture(t)
	path := fixture.CreateFile("notes.xyzzy", []byte("plain"))
	ts := testServer(t, nil)

	resp, err := http.Get(fileURL(ts, path))
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Errorf("Content-Type = %q, want text/plain fallback", ct)
	}
}

func TestGetMissingParameter(t *testing.T) {
	ts := testServer(t, nil)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if body := decodeJSON(t, resp); body.Status != "error" {
		t.Errorf("status field = %q, want error", body.Status)
	}
}

func TestGetMissingFile(t *testing.T) {
	ts := testServer(t, nil)

	resp, err := http.Get(fileURL(ts, "/no/such/file.txt"))
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestGetDirectoryRejected(t *testing.T) {
	fixture := testutil.NewFixture(t)
	dir := fixture.CreateDir("sub")
	ts := testServer(t, nil)

	resp, err := http.Get(fileURL(ts, dir))
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetUTF8Path(t *testing.T) {
	fixture := testutil.NewFixture(t)
	path := fixture.CreateFile("été café.txt", []byte("accents"))
	ts := testServer(t, nil)

	resp, err := http.Get(fileURL(ts, path))
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 for utf-8 path", resp.StatusCode)
	}
}

func TestDeleteMovesFileToTrash(t *testing.T) {
	fixture := testutil.NewFixture(t)
	path := fixture.CreateFile("dup.txt", []byte("content"))
	deleter, trashDir := trashDeleter(t)
	ts := testServer(t, deleter)

	req, _ := http.NewRequest(http.MethodDelete, fileURL(ts, path), nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeJSON(t, resp)
	if body.Status != "success" {
		t.Errorf("status field = %q, want success", body.Status)
	}
	if body.Method != "trash" {
		t.Errorf("method field = %q, want trash", body.Method)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file still present after DELETE")
	}
	if _, err := os.Stat(filepath.Join(trashDir, "dup.txt")); err != nil {
		t.Errorf("file not in trash: %v", err)
	}
}

func TestDeleteMissingFile(t *testing.T) {
	deleter, _ := trashDeleter(t)
	ts := testServer(t, deleter)

	req, _ := http.NewRequest(http.MethodDelete, fileURL(ts, "/no/such/file.txt"), nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE failed: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if body := decodeJSON(t, resp); body.Status != "error" {
		t.Errorf("status field = %q, want error", body.Status)
	}
}

func TestDeleteWithoutDeleter(t *testing.T) {
	fixture := testutil.NewFixture(t)
	path := fixture.CreateFile("keep.txt", []byte("safe"))
	ts := testServer(t, nil)

	req, _ := http.NewRequest(http.MethodDelete, fileURL(ts, path), nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
	if !fixture.Exists(path) {
		t.Error("file must survive when deletion is disabled")
	}
}

func TestDeleteRejectsProtectedPath(t *testing.T) {
	deleter, _ := trashDeleter(t)
	ts := testServer(t, deleter)

	req, _ := http.NewRequest(http.MethodDelete, fileURL(ts, "/etc"), nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestDeleteRejectsRelativePath(t *testing.T) {
	deleter, _ := trashDeleter(t)
	ts := testServer(t, deleter)

	req, _ := http.NewRequest(http.MethodDelete, fileURL(ts, "relative/path.txt"), nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestOptionsPreflight(t *testing.T) {
	ts := testServer(t, nil)

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if methods := resp.Header.Get("Access-Control-Allow-Methods"); methods != "GET, DELETE, OPTIONS" {
		t.Errorf("allow-methods = %q", methods)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts := testServer(t, nil)

	resp, err := http.Post(ts.URL+"/?file_path=/x", "text/plain", nil)
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestContentTypeTable(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"a.mp4", "video/mp4"},
		{"a.MP3", "audio/mpeg"},
		{"a.flac", "audio/flac"},
		{"a.png", "image/png"},
		{"a.opus", "audio/opus"},
	}
	for _, tt := range tests {
		if got := contentType(tt.path); got != tt.want {
			t.Errorf("contentType(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
