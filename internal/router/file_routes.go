package router

import (
	"strconv"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/cityinfo-api/internal/handler"
	"github.com/iliyamo/cityinfo-api/internal/middleware"
	"github.com/iliyamo/cityinfo-api/internal/utils"
)

var (
	fileVersions           = []string{"1.0"}
	deprecatedFileVersions = []string{"0.1"}
)

// multipartOverhead leaves room for boundaries and part headers on top of
// the file itself.
const multipartOverhead = 1 << 20

// RegisterFiles registers the download endpoint on the deprecated 0.1
// version and the upload endpoint on 1.0. Both require a valid JWT.
func RegisterFiles(e *echo.Echo, f *handler.FilesHandler, tokens utils.TokenOptions) {
	report := middleware.ReportAPIVersions(fileVersions, deprecatedFileVersions)

	for _, g := range versionGroups(e, deprecatedFileVersions, report, middleware.JWTAuth(tokens)) {
		g.GET("/files/:fileId", f.GetFile)
	}

	limit := echomw.BodyLimit(strconv.FormatInt(f.MaxUploadBytes+multipartOverhead, 10))
	for _, g := range versionGroups(e, fileVersions, report, middleware.JWTAuth(tokens)) {
		g.POST("/files", f.UploadFile, limit)
	}
}
