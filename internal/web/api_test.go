package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nuha.dev/gpslogger/internal/tracking"
)

type fakeSession struct {
	status  string
	failErr error
	starts  int
	stops   int
}

func (f *fakeSession) Start() error {
	f.starts++
	if f.failErr != nil {
		return f.failErr
	}
	f.status = "active"
	return nil
}

func (f *fakeSession) Stop() {
	f.stops++
	f.status = "idle"
}

func (f *fakeSession) Snapshot() tracking.Snapshot {
	return tracking.Snapshot{Status: f.status, RunID: "r1", CumulativeDistance: 12.5, Records: 3}
}

func post(t *testing.T, h http.Handler, name, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/func/"+name, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStartStopStatus(t *testing.T) {
	s := &fakeSession{status: "idle"}
	h := NewApi(&ApiParam{Session: s}, &ApiConfig{ListenAddr: "127.0.0.1:0"}).Handler()

	rec := post(t, h, "Start", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("start: %d %s", rec.Code, rec.Body.String())
	}
	var start StartResponse
	if err := json.NewDecoder(rec.Body).Decode(&start); err != nil {
		t.Fatal(err)
	}
	if start.Status != 0 || start.Snapshot.Status != "active" {
		t.Fatalf("unexpected start response %+v", start)
	}

	rec = post(t, h, "Status", "")
	var status StatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Status != "active" || status.Records != 3 {
		t.Fatalf("unexpected status %+v", status)
	}
	if strings.Contains(rec.Body.String(), "latitude") {
		t.Fatal("status leaks coordinates")
	}

	rec = post(t, h, "Stop", "")
	var stop StopResponse
	if err := json.NewDecoder(rec.Body).Decode(&stop); err != nil {
		t.Fatal(err)
	}
	if stop.Final.Status != "active" || s.status != "idle" || s.stops != 1 {
		t.Fatalf("unexpected stop %+v", stop)
	}
}

func TestStartFailure(t *testing.T) {
	s := &fakeSession{status: "idle", failErr: errors.New("no device")}
	h := NewApi(&ApiParam{Session: s}, &ApiConfig{}).Handler()
	rec := post(t, h, "Start", "")
	var start StartResponse
	if err := json.NewDecoder(rec.Body).Decode(&start); err != nil {
		t.Fatal(err)
	}
	if start.Status != -1 || start.Error != "no device" || start.Snapshot.Status != "idle" {
		t.Fatalf("unexpected start response %+v", start)
	}
}

func TestDistance(t *testing.T) {
	h := NewApi(&ApiParam{Session: &fakeSession{}}, &ApiConfig{}).Handler()
	rec := post(t, h, "Distance", `{"lat1":0,"lon1":0,"lat2":0.0001,"lon2":0}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("distance: %d %s", rec.Code, rec.Body.String())
	}
	var res DistanceResponse
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.Planar < 11.0 || res.Planar > 11.2 || res.GreatCircle < 11.0 || res.GreatCircle > 11.2 {
		t.Fatalf("unexpected distances %+v", res)
	}
}

func TestDistanceValidation(t *testing.T) {
	h := NewApi(&ApiParam{Session: &fakeSession{}}, &ApiConfig{}).Handler()
	cases := []string{
		`{"lat1":91,"lon1":0,"lat2":0,"lon2":0}`,
		`{"lat1":0,"lon1":-181,"lat2":0,"lon2":0}`,
		`{"lat1":0,"lon1":0,"lat2":0}`,
		`not json`,
	}
	for _, body := range cases {
		if rec := post(t, h, "Distance", body); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestUnknownFunc(t *testing.T) {
	h := NewApi(&ApiParam{Session: &fakeSession{}}, &ApiConfig{}).Handler()
	if rec := post(t, h, "DropTables", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestOptionalHandlersMounted(t *testing.T) {
	called := false
	stream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	h := NewApi(&ApiParam{Session: &fakeSession{}, Stream: stream, Monitor: stream}, &ApiConfig{}).Handler()
	for _, path := range []string{"/stream", "/monitor"} {
		called = false
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
		if !called {
			t.Fatalf("%s not mounted", path)
		}
	}
}
