package middleware

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/drstein77/grocerystore/internal/auth"
	"github.com/drstein77/grocerystore/internal/logger"
	"github.com/drstein77/grocerystore/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoBody(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	_, _ = w.Write(body)
}

func zipArchive(t *testing.T, name, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create(name)
	require.NoError(t, err)
	_, err = f.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func tarArchive(t *testing.T, name, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0o600, Size: int64(len(content)), Typeflag: tar.TypeReg}))
	_, err := tw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func TestArchiveTypeMiddleware(t *testing.T) {
	handler := ArchiveTypeMiddleware(http.HandlerFunc(echoBody))
	csv := "name,price\nRice,2.5\n"

	tests := []struct {
		name        string
		target      string
		contentType string
		body        []byte
		wantStatus  int
		wantBody    string
	}{
		{"zip by default", "/import", "application/zip", zipArchive(t, "products.csv", csv), http.StatusOK, csv},
		{"tar", "/import?archiveType=tar", "application/x-tar", tarArchive(t, "data/products.csv", csv), http.StatusOK, csv},
		{"plain csv", "/import", "text/csv", []byte(csv), http.StatusOK, csv},
		{"no csv inside", "/import", "application/zip", zipArchive(t, "readme.txt", "hi"), http.StatusBadRequest, ""},
		{"garbage", "/import", "application/zip", []byte("not a zip"), http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.target, bytes.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestCompressResponseMiddleware(t *testing.T) {
	handler := CompressResponseMiddleware("orders.csv")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("id,status\n1,pending\n"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/export", nil)
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "id,status\n1,pending\n", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/export", nil)
	req.Header.Set("Accept-Encoding", "zip")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "orders.csv", zr.File[0].Name)
}

// tokenSessions authorizes straight from the token claims.
type tokenSessions struct {
	tokens *auth.Manager
	err    error
}

func (s tokenSessions) Authorize(_ context.Context, token string) (*auth.Session, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.tokens.Parse(token)
}

func TestAuthenticate(t *testing.T) {
	tokens, err := auth.NewManager("secret", time.Hour)
	require.NoError(t, err)
	userToken, err := tokens.Issue(models.User{ID: "u-1", Role: models.RoleUser})
	require.NoError(t, err)
	adminToken, err := tokens.Issue(models.User{ID: "a-1", Role: models.RoleAdmin})
	require.NoError(t, err)

	whoami := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := SessionFrom(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(s.UserID))
	})
	user := Authenticate(tokenSessions{tokens: tokens})(whoami)
	admin := Authenticate(tokenSessions{tokens: tokens})(RequireAdmin(whoami))
	broken := Authenticate(tokenSessions{tokens: tokens, err: errors.New("connection refused")})(whoami)

	tests := []struct {
		name       string
		handler    http.Handler
		header     string
		wantStatus int
		wantBody   string
	}{
		{"missing header", user, "", http.StatusUnauthorized, ""},
		{"wrong scheme", user, "Basic " + userToken, http.StatusUnauthorized, ""},
		{"bad token", user, "Bearer nope", http.StatusUnauthorized, ""},
		{"user", user, "Bearer " + userToken, http.StatusOK, "u-1"},
		{"user on admin route", admin, "Bearer " + userToken, http.StatusForbidden, ""},
		{"admin", admin, "bearer " + adminToken, http.StatusOK, "a-1"},
		{"user lookup fails", broken, "Bearer " + userToken, http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			tt.handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantBody, rec.Body.String())
				return
			}
			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body.Error.Status)
			assert.NotEmpty(t, body.Error.Message)
		})
	}
}

func TestRequestLogger(t *testing.T) {
	handler := RequestLogger(logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
