package web

import (
	"encoding/json"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gruppenrun/clubbot/internal/domain"
	"github.com/gruppenrun/clubbot/internal/store"
)

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	db, err := sqlx.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	schema, err := os.ReadFile("../../migrations/0001_init.up.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	s := store.New(db)
	return NewServer(s, nil, "1.2.3"), s
}

func TestStatusEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/status", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "1.2.3", body["bot_version"])
}

func TestStatsEndpoint(t *testing.T) {
	srv, s := newTestServer(t)
	require.NoError(t, s.SaveUser(&domain.User{ID: "1", Name: "Ivan Petrov"}))
	require.NoError(t, s.PutRegistration(&domain.Registration{
		UserID:   "1",
		Event:    domain.EventWeeklyRun,
		Location: domain.LocationShartash,
		Kind:     domain.KindOneTime,
	}))

	req := httptest.NewRequest("GET", "/stats", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	var body struct {
		Users         int            `json:"users"`
		Registrations int            `json:"registrations"`
		ByEvent       map[string]int `json:"registrations_by_event"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Users)
	assert.Equal(t, 1, body.Registrations)
	assert.Equal(t, 1, body.ByEvent["weeklyrun:shartash"])
}

func TestUsersEndpoint(t *testing.T) {
	srv, s := newTestServer(t)
	require.NoError(t, s.SaveUser(&domain.User{ID: "1", Name: "Ivan Petrov", Phone: "+7 (999) 123-45-67"}))
	require.NoError(t, s.SaveUser(&domain.User{ID: "2", Name: "Anna Petrova", RegisteredBy: "1"}))

	req := httptest.NewRequest("GET", "/users", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	var body struct {
		Count int `json:"count"`
		Users []struct {
			ID           string `json:"id"`
			RegisteredBy string `json:"registered_by"`
		} `json:"users"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
}

func TestWriteMethodsRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/users", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	assert.Equal(t, 405, rec.Code)
}
