package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeStream struct {
	ch           chan string
	unsubscribed bool
}

func (f *fakeStream) Subscribe() <-chan string      { return f.ch }
func (f *fakeStream) Unsubscribe(sub <-chan string) { f.unsubscribed = true }

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestServerRoutes(t *testing.T) {
	s, _ := newTestSession(t)
	h := NewServer(s, nil, "").Handler()

	w := get(t, h, "/api/routes")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["routes"], 3)
	assert.Equal(t, NoSelection, body["options"].([]interface{})[0])
	assert.Equal(t, false, body["stale_session"])

	w = get(t, h, "/api/routes/flights?route="+url.QueryEscape("Schiphol → Paris"))
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	flights := body["flights"].([]interface{})
	require.Len(t, flights, 1)
	assert.Equal(t, "Air France", flights[0].(map[string]interface{})["operator"])

	w = get(t, h, "/api/routes/flights")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["info"])
}

func TestServerTrains(t *testing.T) {
	s, _ := newTestSession(t)
	h := NewServer(s, nil, "").Handler()

	w := get(t, h, "/api/trains")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["totals"], 11)

	w = get(t, h, "/api/trains/Paris")
	require.Equal(t, http.StatusOK, w.Code)
	journey := decode(t, w)["journey"].(map[string]interface{})
	assert.Equal(t, 3.88, journey["total_co2_kg"])

	w = get(t, h, "/api/trains/Atlantis")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Nil(t, body["journey"])
	assert.Contains(t, body["info"], "Atlantis")
}

func TestServerComparisonAndRankings(t *testing.T) {
	s, _ := newTestSession(t)
	h := NewServer(s, nil, "").Handler()

	w := get(t, h, "/api/comparison")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["comparison"], 11)

	w = get(t, h, "/api/rankings/engine?metric=co2_per_passenger")
	require.Equal(t, http.StatusOK, w.Code)
	ranking := decode(t, w)["ranking"].([]interface{})
	require.Len(t, ranking, 4)
	assert.Equal(t, "CFM56-7B", ranking[0].(map[string]interface{})["key"])

	w = get(t, h, "/api/rankings/variant")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "co2_rating", body["metric"])
	assert.Equal(t, "variant", body["dimension"])

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/rankings/airport").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/rankings/engine?metric=noise").Code)
}

func TestServerRatingImage(t *testing.T) {
	s, _ := newTestSession(t)

	w := get(t, NewServer(s, nil, "").Handler(), "/assets/rating-label")
	assert.Equal(t, http.StatusNotFound, w.Code)

	path := filepath.Join(t.TempDir(), "labels.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n"), 0644))
	w = get(t, NewServer(s, nil, path).Handler(), "/assets/rating-label")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "\x89PNG\r\n\x1a\n", w.Body.String())
}

func TestServerStreamsLogs(t *testing.T) {
	s, _ := newTestSession(t)
	stream := &fakeStream{ch: make(chan string, 2)}
	stream.ch <- "[2026-10-15 10:00:00] INFO: 会话数据已就绪"
	close(stream.ch)

	w := get(t, NewServer(s, stream, "").Handler(), "/logs")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "INFO: 会话数据已就绪")
	assert.True(t, stream.unsubscribed)

	assert.Equal(t, http.StatusNotFound, get(t, NewServer(s, nil, "").Handler(), "/logs").Code)
}
