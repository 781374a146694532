package compress

import (
	"archive/tar"
	"bytes"
	"io"
	"strings"
)

// TarReader implements io.ReadCloser for reading a CSV file out of a TAR archive.
type TarReader struct {
	current io.Reader
}

// NewTarReader creates a new TarReader positioned at the first CSV file of the archive.
func NewTarReader(r io.ReadCloser) (*TarReader, error) {
	defer r.Close()

	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, r); err != nil {
		return nil, err
	}

	tr := tar.NewReader(bytes.NewReader(buf.Bytes()))
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if header.Typeflag == tar.TypeReg && strings.HasSuffix(strings.ToLower(header.Name), ".csv") {
			return &TarReader{current: newLimitReader(tr)}, nil
		}
	}

	return nil, ErrNoCSV
}

// Read reads data from the current CSV file.
func (t *TarReader) Read(p []byte) (int, error) {
	return t.current.Read(p)
}

// Close is a no-op; the archive is fully buffered.
func (t *TarReader) Close() error {
	return nil
}
