package handler

import (
	"errors"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cityinfo-api/internal/logger"
)

const mimePDF = "application/pdf"

var errInvalidUpload = problem(http.StatusBadRequest, "No file or an invalid one has been uploaded")

// FilesHandler serves downloads from Dir and stores PDF uploads in UploadDir.
type FilesHandler struct {
	Dir            string
	UploadDir      string
	MaxUploadBytes int64
}

func NewFilesHandler(dir, uploadDir string, maxUploadBytes int64) *FilesHandler {
	return &FilesHandler{Dir: dir, UploadDir: uploadDir, MaxUploadBytes: maxUploadBytes}
}

// GetFile downloads the file named "<fileId>.<ext>" from Dir. The content
// type follows the extension, then content sniffing.
func (h *FilesHandler) GetFile(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("fileId"), 10, 64)
	if err != nil {
		return problem(http.StatusBadRequest, "invalid fileId")
	}
	matches, err := filepath.Glob(filepath.Join(h.Dir, strconv.FormatUint(id, 10)+".*"))
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return echo.ErrNotFound
	}
	path := matches[0]

	ctype := mime.TypeByExtension(filepath.Ext(path))
	if ctype == "" {
		// mimetype falls back to application/octet-stream itself.
		mt, err := mimetype.DetectFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return echo.ErrNotFound
			}
			return err
		}
		ctype = mt.String()
	}
	c.Response().Header().Set(echo.HeaderContentType, ctype)
	return c.Attachment(path, filepath.Base(path))
}

// UploadFile accepts one PDF in the "file" form field, at most
// MaxUploadBytes long, and stores it as uploaded_file_<uuid>.pdf.
func (h *FilesHandler) UploadFile(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return errInvalidUpload
	}
	if fh.Size == 0 || fh.Size > h.MaxUploadBytes || fh.Header.Get(echo.HeaderContentType) != mimePDF {
		return errInvalidUpload
	}

	src, err := fh.Open()
	if err != nil {
		return errInvalidUpload
	}
	defer src.Close()

	mt, err := mimetype.DetectReader(src)
	if err != nil || !mt.Is(mimePDF) {
		return errInvalidUpload
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return err
	}

	if err := os.MkdirAll(h.UploadDir, 0o755); err != nil {
		return err
	}
	name := "uploaded_file_" + uuid.NewString() + ".pdf"
	dst, err := os.Create(filepath.Join(h.UploadDir, name))
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(dst.Name())
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}

	logger.From(c.Request().Context()).Info("file uploaded", zap.String("file", name), zap.Int64("bytes", fh.Size))
	return c.JSON(http.StatusOK, "Your file has been uploaded successfully")
}
