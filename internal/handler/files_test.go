package handler

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalPDF = "%PDF-1.4\n1 0 obj << /Type /Catalog >> endobj\ntrailer << /Root 1 0 R >>\n%%EOF\n"

func filesServer(h *FilesHandler) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = NewHTTPErrorHandler(false)
	e.GET("/api/v0.1/files/:fileId", h.GetFile)
	e.POST("/api/v1/files", h.UploadFile)
	return e
}

func uploadRequest(t *testing.T, contentType string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="doc.pdf"`)
	hdr.Set("Content-Type", contentType)
	part, err := w.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func TestUploadFileStoresPDF(t *testing.T) {
	dir := t.TempDir()
	e := filesServer(NewFilesHandler(t.TempDir(), dir, 20971520))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, uploadRequest(t, "application/pdf", []byte(minimalPDF)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `"Your file has been uploaded successfully"`, rec.Body.String())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "uploaded_file_"))
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".pdf"))
}

func TestUploadFileRejectsInvalidUploads(t *testing.T) {
	cases := map[string]*http.Request{
		"declared type":  uploadRequest(t, "text/plain", []byte(minimalPDF)),
		"sniffed type":   uploadRequest(t, "application/pdf", []byte("just some text")),
		"empty file":     uploadRequest(t, "application/pdf", nil),
		"too large":      uploadRequest(t, "application/pdf", []byte(minimalPDF+strings.Repeat(" ", 64))),
		"missing a file": httptest.NewRequest(http.MethodPost, "/api/v1/files", nil),
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			e := filesServer(NewFilesHandler(t.TempDir(), dir, int64(len(minimalPDF))))

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "No file or an invalid one has been uploaded", decodeProblem(t, rec).Detail)
			entries, _ := os.ReadDir(dir)
			assert.Empty(t, entries)
		})
	}
}

func TestGetFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1.gif"), []byte("GIF89a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2.unknownext"), []byte{0x00, 0x01, 0x02}, 0o644))
	e := filesServer(NewFilesHandler(dir, t.TempDir(), 1024))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v0.1/files/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/gif", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "1.gif")
	assert.Equal(t, "GIF89a", rec.Body.String())

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v0.1/files/2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/octet-stream", rec.Header().Get(echo.HeaderContentType))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v0.1/files/3", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestReady(t *testing.T) {
	e := echo.New()
	e.GET("/healthz", Health)
	e.GET("/readyz", Ready(pinger{}))
	e.GET("/down", Ready(pinger{err: errors.New("dial tcp: refused")}))

	for path, want := range map[string]int{"/healthz": 200, "/readyz": 200, "/down": 503} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, rec.Code, path)
	}
}
