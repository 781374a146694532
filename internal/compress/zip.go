package compress

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
)

var (
	// ErrNoCSV is returned when an archive holds no .csv file.
	ErrNoCSV = errors.New("no CSV file found in archive")
	// ErrCSVTooLarge is returned by Read once an extracted CSV exceeds MaxCSVSize.
	ErrCSVTooLarge = errors.New("csv file in archive is too large")
)

// MaxCSVSize bounds the uncompressed CSV read out of an archive.
var MaxCSVSize int64 = 64 << 20

// limitReader fails with ErrCSVTooLarge instead of truncating at n bytes.
type limitReader struct {
	r io.Reader
	n int64
}

func newLimitReader(r io.Reader) *limitReader {
	return &limitReader{r: r, n: MaxCSVSize}
}

func (l *limitReader) Read(p []byte) (int, error) {
	if l.n < 0 {
		return 0, ErrCSVTooLarge
	}
	// read one byte past the limit to tell "exactly n" from "more than n"
	if int64(len(p)) > l.n+1 {
		p = p[:l.n+1]
	}
	n, err := l.r.Read(p)
	l.n -= int64(n)
	if l.n < 0 {
		return n + int(l.n), ErrCSVTooLarge
	}
	return n, err
}

// ZipReader implements io.ReadCloser for reading the content of a CSV file from a ZIP archive.
type ZipReader struct {
	current io.ReadCloser
	limited io.Reader
}

// NewZipReader creates a new ZipReader, extracting the first found CSV file from the ZIP archive.
func NewZipReader(r io.ReadCloser) (*ZipReader, error) {
	defer r.Close()

	// Read the entire archive into a buffer
	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, r); err != nil {
		return nil, err
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		return nil, err
	}

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			return &ZipReader{current: rc, limited: newLimitReader(rc)}, nil
		}
	}

	return nil, ErrNoCSV
}

// Read reads data from the current CSV file.
func (z *ZipReader) Read(p []byte) (int, error) {
	return z.limited.Read(p)
}

// Close closes the current CSV file.
func (z *ZipReader) Close() error {
	return z.current.Close()
}

// ZipWriter is an http.ResponseWriter that packs the response body into a
// single file inside a ZIP archive.
type ZipWriter struct {
	http.ResponseWriter
	zipWriter   *zip.Writer
	file        io.Writer
	fileName    string
	wroteHeader bool
	passthrough bool
}

// NewZipWriter creates a ZipWriter storing the body under fileName.
func NewZipWriter(w http.ResponseWriter, fileName string) *ZipWriter {
	return &ZipWriter{
		ResponseWriter: w,
		zipWriter:      zip.NewWriter(w),
		fileName:       fileName,
	}
}

func (z *ZipWriter) WriteHeader(statusCode int) {
	if z.wroteHeader {
		return
	}
	z.wroteHeader = true
	z.passthrough = statusCode >= http.StatusMultipleChoices
	if !z.passthrough {
		z.Header().Set("Content-Type", "application/zip")
		z.Header().Set("Content-Disposition", `attachment; filename="`+z.fileName+`.zip"`)
		z.Header().Set("Content-Encoding", "zip")
		z.Header().Del("Content-Length")
	}
	z.ResponseWriter.WriteHeader(statusCode)
}

// Write writes data to the file inside the ZIP archive.
func (z *ZipWriter) Write(p []byte) (int, error) {
	if !z.wroteHeader {
		z.WriteHeader(http.StatusOK)
	}
	if z.passthrough {
		return z.ResponseWriter.Write(p)
	}
	if z.file == nil {
		f, err := z.zipWriter.Create(z.fileName)
		if err != nil {
			return 0, err
		}
		z.file = f
	}
	return z.file.Write(p)
}

// Close closes the ZIP archive.
func (z *ZipWriter) Close() error {
	if z.passthrough {
		return nil
	}
	return z.zipWriter.Close()
}
