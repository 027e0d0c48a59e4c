package handler

import (
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukerupert/prometna/internal/database"
	"github.com/dukerupert/prometna/internal/middleware"
)

const (
	testDevice  = "0b5c1d0e-4c1f-4e7a-9d7e-2f6a3c8b9e10"
	otherDevice = "6f1e2d3c-7b8a-4c5d-9e0f-a1b2c3d4e5f6"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// serve routes req through a mux with pattern so path values resolve, as deviceID.
func serve(pattern string, h http.HandlerFunc, req *http.Request, deviceID string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, h)
	req = req.WithContext(middleware.WithDeviceID(req.Context(), deviceID))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
}
