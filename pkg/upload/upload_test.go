package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDiskStorePut(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir, "/uploads/", 1<<20)
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}

	data := []byte("fake png bytes")
	url, err := store.Put(context.Background(), "pho.PNG", "image/png", int64(len(data)), bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !strings.HasPrefix(url, "/uploads/") || !strings.HasSuffix(url, ".png") {
		t.Fatalf("url = %q", url)
	}

	stored, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(url, "/uploads/")))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if !bytes.Equal(stored, data) {
		t.Fatal("stored bytes differ")
	}
}

func TestDiskStoreRejectsNonImage(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), "/uploads/", 0)
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	_, err = store.Put(context.Background(), "x.pdf", "application/pdf", 4, strings.NewReader("abcd"))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("err = %v, want ErrUnsupportedType", err)
	}
}

func TestDiskStoreSizeLimit(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir, "/uploads/", 8)
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}

	// Declared size over the limit.
	_, err = store.Put(context.Background(), "a.png", "image/png", 100, strings.NewReader("x"))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("declared oversize err = %v, want ErrTooLarge", err)
	}

	// Declared size lies; actual stream is longer.
	_, err = store.Put(context.Background(), "b.png", "image/png", 4, strings.NewReader(strings.Repeat("x", 64)))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("actual oversize err = %v, want ErrTooLarge", err)
	}

	// Nothing may be left behind.
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("rejected upload left %d files", len(entries))
	}
}

func TestObjectNamesAreUnique(t *testing.T) {
	a := objectName("pho.png")
	b := objectName("pho.png")
	if a == b {
		t.Fatal("object names collide")
	}
	if !strings.HasSuffix(a, ".png") {
		t.Fatalf("extension lost: %q", a)
	}
}

func multipartBody(t *testing.T, field, filename, contentType string, data []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(map[string][]string)
	part, err := mw.CreatePart(textprotoHeader(field, filename, contentType, h))
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	part.Write(data)
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func textprotoHeader(field, filename, contentType string, h map[string][]string) map[string][]string {
	h["Content-Disposition"] = []string{`form-data; name="` + field + `"; filename="` + filename + `"`}
	h["Content-Type"] = []string{contentType}
	return h
}

func TestHandlerStoresAndReturnsURL(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), "/uploads/", 1<<20)
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	h := NewHandler(store, 1<<20, nil)

	body, contentType := multipartBody(t, "image", "pho.png", "image/png", []byte("png"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(resp["url"], "/uploads/") {
		t.Fatalf("url = %q", resp["url"])
	}
}

func TestHandlerRejectsWrongType(t *testing.T) {
	store, _ := NewDiskStore(t.TempDir(), "/uploads/", 1<<20)
	h := NewHandler(store, 1<<20, nil)

	body, contentType := multipartBody(t, "image", "x.exe", "application/octet-stream", []byte("MZ"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandlerRejectsMissingFile(t *testing.T) {
	store, _ := NewDiskStore(t.TempDir(), "/uploads/", 1<<20)
	h := NewHandler(store, 1<<20, nil)

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandlerMethodNotAllowed(t *testing.T) {
	store, _ := NewDiskStore(t.TempDir(), "/uploads/", 1<<20)
	h := NewHandler(store, 1<<20, nil)

	req := httptest.NewRequest(http.MethodGet, "/upload", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}
