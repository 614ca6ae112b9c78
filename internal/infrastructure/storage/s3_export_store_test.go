package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/erp/lotledger/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func exportConfig(endpoint string) *config.ExportConfig {
	return &config.ExportConfig{
		Endpoint:     endpoint,
		Region:       "us-east-1",
		Bucket:       "ledger-exports",
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		UsePathStyle: true,
	}
}

func TestNewS3ExportStore_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("nil config", func(t *testing.T) {
		_, err := NewS3ExportStore(ctx, nil)
		assert.ErrorContains(t, err, "configuration is required")
	})

	t.Run("missing bucket", func(t *testing.T) {
		cfg := exportConfig("localhost:9000")
		cfg.Bucket = ""
		_, err := NewS3ExportStore(ctx, cfg)
		assert.ErrorContains(t, err, "bucket is required")
	})

	t.Run("missing credentials", func(t *testing.T) {
		cfg := exportConfig("localhost:9000")
		cfg.SecretKey = ""
		_, err := NewS3ExportStore(ctx, cfg)
		assert.ErrorContains(t, err, "secret key are required")
	})

	t.Run("defaults presign expiration", func(t *testing.T) {
		store, err := NewS3ExportStore(ctx, exportConfig("localhost:9000"))
		require.NoError(t, err)
		assert.Equal(t, "ledger-exports", store.Bucket())
		assert.Equal(t, 15*time.Minute, store.presignExpiration)
	})

	t.Run("options override config", func(t *testing.T) {
		store, err := NewS3ExportStore(ctx, exportConfig("localhost:9000"),
			WithPresignExpiration(time.Hour),
			WithLogger(zaptest.NewLogger(t)))
		require.NoError(t, err)
		assert.Equal(t, time.Hour, store.presignExpiration)
	})
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		useSSL   bool
		want     string
		wantErr  bool
	}{
		{"", false, "", false},
		{"localhost:9000", false, "http://localhost:9000", false},
		{"minio.internal:9000", true, "https://minio.internal:9000", false},
		{"https://s3.example.com", false, "https://s3.example.com", false},
		{"http://", false, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			got, err := normalizeEndpoint(tt.endpoint, tt.useSSL)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type recordedRequest struct {
	method      string
	path        string
	contentType string
	body        string
}

func fakeS3(t *testing.T) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var mu sync.Mutex
	var reqs []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recordedRequest{
			method:      r.Method,
			path:        r.URL.Path,
			contentType: r.Header.Get("Content-Type"),
			body:        string(body),
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), reqs...)
	}
}

func TestS3ExportStore_Upload(t *testing.T) {
	srv, requests := fakeS3(t)
	store, err := NewS3ExportStore(context.Background(), exportConfig(srv.URL))
	require.NoError(t, err)

	const contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	err = store.Upload(context.Background(), "reports/t1/pnl.xlsx", []byte("workbook-bytes"), contentType)
	require.NoError(t, err)

	reqs := requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPut, reqs[0].method)
	assert.Equal(t, "/ledger-exports/reports/t1/pnl.xlsx", reqs[0].path)
	assert.Equal(t, contentType, reqs[0].contentType)
	assert.Contains(t, reqs[0].body, "workbook-bytes")
}

func TestS3ExportStore_UploadRequiresKey(t *testing.T) {
	srv, requests := fakeS3(t)
	store, err := NewS3ExportStore(context.Background(), exportConfig(srv.URL))
	require.NoError(t, err)

	err = store.Upload(context.Background(), "", []byte("x"), "text/plain")
	assert.ErrorIs(t, err, ErrKeyRequired)
	assert.Empty(t, requests())
}

func TestS3ExportStore_DownloadURL(t *testing.T) {
	store, err := NewS3ExportStore(context.Background(), exportConfig("localhost:9000"),
		WithPresignExpiration(10*time.Minute))
	require.NoError(t, err)

	before := time.Now()
	link, expiresAt, err := store.DownloadURL(context.Background(), "reports/t1/pnl.xlsx")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(link, "http://localhost:9000/ledger-exports/reports/t1/pnl.xlsx?"))
	assert.Contains(t, link, "X-Amz-Expires=600")
	assert.Contains(t, link, "X-Amz-Signature=")
	assert.WithinDuration(t, before.Add(10*time.Minute), expiresAt, 5*time.Second)

	_, _, err = store.DownloadURL(context.Background(), "")
	assert.ErrorIs(t, err, ErrKeyRequired)
}
