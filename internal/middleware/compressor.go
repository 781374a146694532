package middleware

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/drstein77/grocerystore/internal/compress"
)

// MaxArchiveSize bounds an uploaded archive.
const MaxArchiveSize = 32 << 20

// ArchiveTypeMiddleware unpacks a CSV upload sent as a zip (default) or tar
// archive, chosen by the archiveType query parameter.
func ArchiveTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		archiveType := r.URL.Query().Get("archiveType")
		if archiveType != "tar" && archiveType != "zip" {
			archiveType = "zip"
		}

		CreateCompressMiddleware(archiveType)(next).ServeHTTP(w, r)
	})
}

// CreateCompressMiddleware replaces an archived request body with the first
// CSV file inside it. Plain CSV bodies are passed through untouched.
func CreateCompressMiddleware(archiveType string) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isArchive(r, archiveType) {
				h.ServeHTTP(w, r)
				return
			}

			body := http.MaxBytesReader(w, r.Body, MaxArchiveSize)
			var (
				cr  io.ReadCloser
				err error
			)
			if archiveType == "tar" {
				cr, err = compress.NewTarReader(body)
			} else {
				cr, err = compress.NewZipReader(body)
			}
			if err != nil {
				var tooLarge *http.MaxBytesError
				switch {
				case errors.As(err, &tooLarge):
					writeError(w, http.StatusRequestEntityTooLarge, "archive is too large")
				case errors.Is(err, compress.ErrNoCSV):
					writeError(w, http.StatusBadRequest, err.Error())
				default:
					writeError(w, http.StatusBadRequest, "malformed "+archiveType+" archive")
				}
				return
			}
			defer cr.Close()

			r.Body = cr
			r.Header.Del("Content-Encoding")
			h.ServeHTTP(w, r)
		})
	}
}

func isArchive(r *http.Request, archiveType string) bool {
	if r.Header.Get("Content-Encoding") == archiveType {
		return true
	}
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	switch archiveType {
	case "tar":
		return strings.Contains(ct, "x-tar")
	default:
		return strings.Contains(ct, "zip")
	}
}

// CompressResponseMiddleware packs the response into a zip archive holding
// fileName when the client accepts zip.
func CompressResponseMiddleware(fileName string) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !acceptsZip(r) {
				h.ServeHTTP(w, r)
				return
			}

			zw := compress.NewZipWriter(w, fileName)
			defer zw.Close()
			h.ServeHTTP(zw, r)
		})
	}
}

// acceptsZip matches the zip token exactly; "gzip" does not count.
func acceptsZip(r *http.Request) bool {
	if r.URL.Query().Get("archiveType") == "zip" {
		return true
	}
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(enc), ";")
		if strings.EqualFold(name, "zip") {
			return true
		}
	}
	return false
}
