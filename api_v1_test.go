package main

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callAPI(t *testing.T, deps *Dependencies, path string) jsonResponseData {
	t.Helper()

	router := mux.NewRouter()
	router.HandleFunc("/api/v1/{endpoint}", apiV1Handler(deps)).Methods("GET")

	req := httptest.NewRequest("GET", path, nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))

	var response jsonResponseData
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	return response
}

func TestApiVersion(t *testing.T) {
	deps, _ := newMockDeps(t)

	response := callAPI(t, deps, "/api/v1/version")
	assert.True(t, response.Success)
	assert.Equal(t, "ok", response.Message)
	assert.Equal(t, "0.1.0", response.ApiVersion)
	assert.Equal(t, "version", response.Endpoint)
}

func TestApiUnknownEndpoint(t *testing.T) {
	deps, _ := newMockDeps(t)

	response := callAPI(t, deps, "/api/v1/bogus")
	assert.False(t, response.Success)
	assert.Equal(t, "Failure: unknown endpoint", response.Message)
}

func TestApiSearchResolves(t *testing.T) {
	deps, mock := newMockDeps(t)

	mock.ExpectQuery(`FROM emisoras WHERE CONCAT\(emisora, serie\)=\? OR emisora=\?`).
		WillReturnRows(issuerRows().AddRow("WALMEX", "*", "WAL-MART DE MEXICO", "ACCIONES"))

	response := callAPI(t, deps, "/api/v1/search?ticker=WALMEX")
	require.True(t, response.Success)
	assert.Equal(t, "WALMEX*", response.Data["ticker"])
	assert.Equal(t, "WALMEX", response.Data["emisora"])
	assert.Equal(t, "*", response.Data["serie"])
}

func TestApiSearchUnknownTickerListsCandidates(t *testing.T) {
	deps, mock := newMockDeps(t)

	mock.ExpectQuery(`FROM emisoras`).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`FROM emisoras`).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`FROM emisoras`).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`LOWER\(razon_social\) LIKE \?`).
		WillReturnRows(issuerRows().AddRow("BIMBO", "A", "GRUPO BIMBO", "ACCIONES"))

	response := callAPI(t, deps, "/api/v1/search?ticker=GRUPO")
	assert.False(t, response.Success)
	assert.Equal(t, "Failure: unknown ticker", response.Message)

	candidates, ok := response.Data["candidates"].([]interface{})
	require.True(t, ok)
	assert.Len(t, candidates, 1)
}

func TestApiSearchMissingTicker(t *testing.T) {
	deps, _ := newMockDeps(t)

	response := callAPI(t, deps, "/api/v1/search")
	assert.False(t, response.Success)
	assert.Equal(t, "Failure: missing ticker param", response.Message)
}

func TestApiSeriesInvalidMonths(t *testing.T) {
	deps, _ := newMockDeps(t)

	response := callAPI(t, deps, "/api/v1/series?ticker=WALMEX&months=six")
	assert.False(t, response.Success)
	assert.Equal(t, "Failure: invalid months param", response.Message)
}

func TestApiHeatmap(t *testing.T) {
	deps, _ := newMockDeps(t)
	deps.watchlist = []string{"AMXB"}
	deps.heatmap = newHeatmapCache(heatmapCacheSeconds)
	deps.heatmap.fetch = func(deps *Dependencies, tickerKey string) (*ProviderQuote, error) {
		return &ProviderQuote{Symbol: tickerKey, LastPrice: 15.1, ChangePct: 0.8}, nil
	}

	response := callAPI(t, deps, "/api/v1/heatmap")
	require.True(t, response.Success)

	entries, ok := response.Data["entries"].([]interface{})
	require.True(t, ok)
	require.Len(t, entries, 1)
}
