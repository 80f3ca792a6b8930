package farmsim

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/luki/smartfarm/internal/device"
	"github.com/luki/smartfarm/internal/reading"
)

func fixedNow() time.Time {
	return time.Date(2024, 12, 1, 8, 0, 0, 0, time.UTC)
}

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	s := New(Config{Seed: 1, Capacity: 5, Now: fixedNow}, nil)
	return s, s.Handler()
}

func post(t *testing.T, h http.Handler, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, h http.Handler) string {
	t.Helper()
	if rec := post(t, h, "/register", "", credentials{"grower", "password123"}); rec.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body)
	}
	rec := post(t, h, "/login", "", credentials{"grower", "password123"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body)
	}
	var out struct{ Token string }
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil || out.Token == "" {
		t.Fatalf("login body: %v %q", err, out.Token)
	}
	return out.Token
}

func TestRegisterValidation(t *testing.T) {
	_, h := newTestServer(t)

	if rec := post(t, h, "/register", "", credentials{"ab", "password123"}); rec.Code != http.StatusBadRequest {
		t.Errorf("short username: got %d", rec.Code)
	}
	if rec := post(t, h, "/register", "", credentials{"grower", "short"}); rec.Code != http.StatusBadRequest {
		t.Errorf("short password: got %d", rec.Code)
	}
	login(t, h)
	if rec := post(t, h, "/register", "", credentials{"grower", "password123"}); rec.Code != http.StatusConflict {
		t.Errorf("duplicate user: got %d", rec.Code)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	_, h := newTestServer(t)
	login(t, h)

	rec := post(t, h, "/login", "", credentials{"grower", "wrongpassword"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid username or password") {
		t.Errorf("body: %s", rec.Body)
	}
}

func TestDataRetrievalRequiresToken(t *testing.T) {
	_, h := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/data_retrieval", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("got %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/data_retrieval", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: got %d, want 401", rec.Code)
	}
}

func TestDataRetrievalParameterProjection(t *testing.T) {
	s, h := newTestServer(t)
	s.Seed(3)
	token := login(t, h)

	req := httptest.NewRequest(http.MethodGet, "/data_retrieval?parameter=co2", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d %s", rec.Code, rec.Body)
	}

	readings, err := reading.DecodeResponse(rec.Body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(readings) != 3 {
		t.Fatalf("got %d readings, want 3", len(readings))
	}
	for _, r := range readings {
		if !r.CO2.Valid || r.Temperature.Valid {
			t.Errorf("projection: %+v", r)
		}
		if r.Timestamp == reading.NoTimestamp {
			t.Error("timestamp missing")
		}
	}
}

func TestCapacityAndSimulation(t *testing.T) {
	s, h := newTestServer(t)
	s.Seed(4)
	token := login(t, h)

	for i := 0; i < 3; i++ {
		if rec := post(t, h, "/retrieve_sensor_data", token, nil); rec.Code != http.StatusOK {
			t.Fatalf("retrieve: %d", rec.Code)
		}
	}
	if n := len(s.Readings()); n != 5 {
		t.Errorf("stored %d readings, want capacity 5", n)
	}

	rec := post(t, h, "/data_simulation", token, map[string]any{"temperature": 41.5, "soil_pH": 6})
	if rec.Code != http.StatusOK {
		t.Fatalf("data_simulation: %d", rec.Code)
	}
	all := s.Readings()
	if last := all[len(all)-1]; last.Temperature.Num != 41.5 {
		t.Errorf("simulated temperature: %+v", last.Temperature)
	}
}

func TestDeviceActions(t *testing.T) {
	s, h := newTestServer(t)
	token := login(t, h)

	for _, a := range device.Actions() {
		rec := post(t, h, "/"+string(a), token, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: got %d", a, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "message") {
			t.Errorf("%s: body %s", a, rec.Body)
		}
	}

	post(t, h, "/open_window", token, nil)
	if !s.relays[device.OpenWindow] {
		t.Error("window should be open")
	}
	post(t, h, "/close_window", token, nil)
	if s.relays[device.OpenWindow] {
		t.Error("window should be closed")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, h := newTestServer(t)
	s.Seed(1)
	login(t, h)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"farmsim_http_requests_total", "farmsim_sensor_value"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %s", want)
		}
	}
}
