package internal_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/koopa0/kampung-games/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testHandler 組裝 HTTP 處理器（demoClock 可為 nil）
func testHandler(demoClock *internal.DemoClock) *internal.Handler {
	logger := testLogger()
	directory := internal.NewMemoryDirectory()
	registry := internal.NewRegistry()
	matchmaker := internal.NewMatchmaker(logger)
	presence := internal.NewPresence()
	hub := internal.NewHub(directory, logger)
	engine := internal.NewGameEngine(registry, directory, internal.NewMemoryNoticeFeed(10), internal.NewLogMatchStore(logger), hub, logger)

	return internal.NewHandler(hub, matchmaker, engine, presence, demoClock, logger)
}

// TestHandler_Health 測試健康檢查
func TestHandler_Health(t *testing.T) {
	server := httptest.NewServer(testHandler(nil).Routes())
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

// TestHandler_Stats 測試統計端點
func TestHandler_Stats(t *testing.T) {
	server := httptest.NewServer(testHandler(nil).Routes())
	defer server.Close()

	resp, err := http.Get(server.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, float64(0), body["connections"])
	assert.Equal(t, float64(0), body["online"])
	assert.Equal(t, float64(0), body["game_sessions"])

	waiting, ok := body["waiting"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(0), waiting["Elderly"])
	assert.Equal(t, float64(0), waiting["Youth"])
}

// TestHandler_DemoDate 測試展演日期覆寫
func TestHandler_DemoDate(t *testing.T) {
	t.Run("endpoints absent without demo mode", func(t *testing.T) {
		server := httptest.NewServer(testHandler(nil).Routes())
		defer server.Close()

		resp, err := http.Post(server.URL+"/demo/set_date", "application/json",
			strings.NewReader(`{"date":"2026-12-25"}`))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("set and clear override", func(t *testing.T) {
		clock := internal.NewDemoClock()
		server := httptest.NewServer(testHandler(clock).Routes())
		defer server.Close()

		resp, err := http.Post(server.URL+"/demo/set_date", "application/json",
			strings.NewReader(`{"date":"2026-12-25"}`))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "2026-12-25", clock.Today())

		resp, err = http.Post(server.URL+"/demo/clear_date", "application/json", nil)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEqual(t, "2026-12-25", clock.Today())
	})

	t.Run("bad date is rejected", func(t *testing.T) {
		clock := internal.NewDemoClock()
		server := httptest.NewServer(testHandler(clock).Routes())
		defer server.Close()

		resp, err := http.Post(server.URL+"/demo/set_date", "application/json",
			strings.NewReader(`{"date":"next tuesday"}`))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
