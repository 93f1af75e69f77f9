package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/iyuvalk/switcher-breeze-rest/internal/breeze"
	"github.com/iyuvalk/switcher-breeze-rest/internal/discovery"
	"github.com/iyuvalk/switcher-breeze-rest/internal/switcher"
)

type fakeScanner struct {
	device  switcher.Device
	err     error
	devices []switcher.Device
}

func (f *fakeScanner) FirstDevice(context.Context) (switcher.Device, error) {
	return f.device, f.err
}

func (f *fakeScanner) Stream(ctx context.Context, cb func(switcher.Device) bool) error {
	for _, d := range f.devices {
		if !cb(d) {
			return nil
		}
	}
	<-ctx.Done()
	return nil
}

type fakeController struct {
	err   error
	calls int
	got   breeze.Command
}

func (f *fakeController) Control(_ context.Context, cmd breeze.Command) error {
	f.calls++
	f.got = cmd
	return f.err
}

func newTestRouter(scanner DeviceScanner, controller BreezeController) http.Handler {
	r := chi.NewRouter()
	NewServer(scanner, controller, nil).RegisterRoutes(r)
	return r
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(into); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
}

func TestDeviceTemperatureFound(t *testing.T) {
	h := newTestRouter(&fakeScanner{device: switcher.Device{Type: switcher.TypeBreeze, Temperature: 24.5}}, nil)

	rec := doRequest(t, h, http.MethodGet, "/devices/temperature", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusOK)
	}
	var body temperatureResponse
	decodeBody(t, rec, &body)
	if body.Temperature != 24.5 {
		t.Fatalf("unexpected temperature: got %v want 24.5", body.Temperature)
	}
}

func TestDeviceTemperatureNoDevices(t *testing.T) {
	h := newTestRouter(&fakeScanner{err: discovery.ErrNoDevices}, nil)

	rec := doRequest(t, h, http.MethodGet, "/devices/temperature", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusNotFound)
	}
	var body errorResponse
	decodeBody(t, rec, &body)
	if body.Error != "No devices found" {
		t.Fatalf("unexpected error body: got %q", body.Error)
	}
}

func TestDeviceStateFound(t *testing.T) {
	h := newTestRouter(&fakeScanner{device: switcher.Device{State: switcher.StateOn}}, nil)

	rec := doRequest(t, h, http.MethodGet, "/devices/state", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusOK)
	}
	var body stateResponse
	decodeBody(t, rec, &body)
	if body.State != "on" {
		t.Fatalf("unexpected state: got %q want %q", body.State, "on")
	}
}

func TestDeviceStateNoDevices(t *testing.T) {
	h := newTestRouter(&fakeScanner{err: discovery.ErrNoDevices}, nil)

	rec := doRequest(t, h, http.MethodGet, "/devices/state", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusNotFound)
	}
	var body errorResponse
	decodeBody(t, rec, &body)
	if body.Error != "No devices found" {
		t.Fatalf("unexpected error body: got %q", body.Error)
	}
}

func TestDeviceTemperatureScanFailure(t *testing.T) {
	h := newTestRouter(&fakeScanner{err: errors.New("bind: address already in use")}, nil)

	rec := doRequest(t, h, http.MethodGet, "/devices/temperature", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusInternalServerError)
	}
	var body errorResponse
	decodeBody(t, rec, &body)
	if body.Error != "discovery failed" {
		t.Fatalf("unexpected error body: got %q", body.Error)
	}
}

func TestBreezeControlMissingRequiredKey(t *testing.T) {
	ctl := &fakeController{}
	h := newTestRouter(&fakeScanner{}, ctl)

	rec := doRequest(t, h, http.MethodPost, "/breeze/control",
		`{"device_id": "3a90b1", "remote_id": "ELEC7001", "state": "ON"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusBadRequest)
	}
	var body errorResponse
	decodeBody(t, rec, &body)
	want := "Missing required keys: device_id, device_key, remote_id, state"
	if body.Error != want {
		t.Fatalf("unexpected error body: got %q want %q", body.Error, want)
	}
	if ctl.calls != 0 {
		t.Fatal("controller invoked despite validation failure")
	}
}

func TestBreezeControlLowercaseState(t *testing.T) {
	ctl := &fakeController{}
	h := newTestRouter(&fakeScanner{}, ctl)

	rec := doRequest(t, h, http.MethodPost, "/breeze/control",
		`{"device_id": "3a90b1", "device_key": "00", "remote_id": "ELEC7001", "state": "on", "mode": "heat", "temp": 26, "fan": "high"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	var body statusResponse
	decodeBody(t, rec, &body)
	if body.Status != "success" {
		t.Fatalf("unexpected status body: got %q", body.Status)
	}
	if ctl.calls != 1 {
		t.Fatalf("unexpected controller calls: got %d want 1", ctl.calls)
	}
	if ctl.got.State != switcher.StateOn || ctl.got.Mode != switcher.ModeHeat || ctl.got.Temperature != 26 || ctl.got.Fan != switcher.FanHigh {
		t.Fatalf("command fields mangled: %+v", ctl.got)
	}
}

func TestBreezeControlOnMissingFan(t *testing.T) {
	ctl := &fakeController{}
	h := newTestRouter(&fakeScanner{}, ctl)

	rec := doRequest(t, h, http.MethodPost, "/breeze/control",
		`{"device_id": "3a90b1", "device_key": "00", "remote_id": "ELEC7001", "state": "ON", "mode": "cool", "temp": 23}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusBadRequest)
	}
	var body errorResponse
	decodeBody(t, rec, &body)
	want := "Missing required key for ON state: fan"
	if body.Error != want {
		t.Fatalf("unexpected error body: got %q want %q", body.Error, want)
	}
	if ctl.calls != 0 {
		t.Fatal("controller invoked despite validation failure")
	}
}

func TestBreezeControlOffUsesDefaults(t *testing.T) {
	ctl := &fakeController{}
	h := newTestRouter(&fakeScanner{}, ctl)

	rec := doRequest(t, h, http.MethodPost, "/breeze/control",
		`{"device_id": "3a90b1", "device_key": "00", "remote_id": "ELEC7001", "state": "OFF"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	if ctl.calls != 1 {
		t.Fatalf("unexpected controller calls: got %d want 1", ctl.calls)
	}
	if ctl.got.State != switcher.StateOff {
		t.Fatalf("unexpected state: got %v", ctl.got.State)
	}
	if ctl.got.Mode != switcher.ModeCool || ctl.got.Temperature != 23 || ctl.got.Fan != switcher.FanMedium {
		t.Fatalf("OFF defaults not applied: %+v", ctl.got)
	}
}

func TestBreezeControlInvalidState(t *testing.T) {
	ctl := &fakeController{}
	h := newTestRouter(&fakeScanner{}, ctl)

	rec := doRequest(t, h, http.MethodPost, "/breeze/control",
		`{"device_id": "3a90b1", "device_key": "00", "remote_id": "ELEC7001", "state": "standby"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusBadRequest)
	}
	var body errorResponse
	decodeBody(t, rec, &body)
	want := "Invalid state, must be 'ON' or 'OFF'"
	if body.Error != want {
		t.Fatalf("unexpected error body: got %q want %q", body.Error, want)
	}
}

func TestBreezeControlInvalidMode(t *testing.T) {
	ctl := &fakeController{}
	h := newTestRouter(&fakeScanner{}, ctl)

	rec := doRequest(t, h, http.MethodPost, "/breeze/control",
		`{"device_id": "3a90b1", "device_key": "00", "remote_id": "ELEC7001", "state": "ON", "mode": "turbo", "temp": 23, "fan": "low"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusBadRequest)
	}
	if ctl.calls != 0 {
		t.Fatal("controller invoked despite invalid mode")
	}
}

func TestBreezeControlInvalidTemp(t *testing.T) {
	ctl := &fakeController{}
	h := newTestRouter(&fakeScanner{}, ctl)

	rec := doRequest(t, h, http.MethodPost, "/breeze/control",
		`{"device_id": "3a90b1", "device_key": "00", "remote_id": "ELEC7001", "state": "ON", "mode": "cool", "temp": "hot", "fan": "low"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusBadRequest)
	}
	var body errorResponse
	decodeBody(t, rec, &body)
	want := "Invalid temp, must be an integer"
	if body.Error != want {
		t.Fatalf("unexpected error body: got %q want %q", body.Error, want)
	}
}

func TestBreezeControlBrokenJSON(t *testing.T) {
	ctl := &fakeController{}
	h := newTestRouter(&fakeScanner{}, ctl)

	rec := doRequest(t, h, http.MethodPost, "/breeze/control", `{"device_id": `)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusBadRequest)
	}
	if ctl.calls != 0 {
		t.Fatal("controller invoked despite broken body")
	}
}

func TestBreezeControlForwardsIP(t *testing.T) {
	ctl := &fakeController{}
	h := newTestRouter(&fakeScanner{}, ctl)

	rec := doRequest(t, h, http.MethodPost, "/breeze/control",
		`{"device_id": "3a90b1", "device_key": "00", "remote_id": "ELEC7001", "state": "OFF", "ip": "10.0.0.7"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusOK)
	}
	if ctl.got.IPAddr != "10.0.0.7" {
		t.Fatalf("unexpected ip: got %q want %q", ctl.got.IPAddr, "10.0.0.7")
	}
}

func TestBreezeControlForwardsIPAddrAlias(t *testing.T) {
	ctl := &fakeController{}
	h := newTestRouter(&fakeScanner{}, ctl)

	rec := doRequest(t, h, http.MethodPost, "/breeze/control",
		`{"device_id": "3a90b1", "device_key": "00", "remote_id": "ELEC7001", "state": "OFF", "ip_addr": "10.0.0.8"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusOK)
	}
	if ctl.got.IPAddr != "10.0.0.8" {
		t.Fatalf("unexpected ip: got %q want %q", ctl.got.IPAddr, "10.0.0.8")
	}
}

func TestBreezeControlControllerFailure(t *testing.T) {
	ctl := &fakeController{err: errors.New("read timeout")}
	h := newTestRouter(&fakeScanner{}, ctl)

	rec := doRequest(t, h, http.MethodPost, "/breeze/control",
		`{"device_id": "3a90b1", "device_key": "00", "remote_id": "ELEC7001", "state": "OFF"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusInternalServerError)
	}
	var body errorResponse
	decodeBody(t, rec, &body)
	if body.Error != "breeze control failed" {
		t.Fatalf("unexpected error body: got %q", body.Error)
	}
}

func TestHealth(t *testing.T) {
	h := newTestRouter(&fakeScanner{}, nil)

	rec := doRequest(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rec.Code, http.StatusOK)
	}
	var body statusResponse
	decodeBody(t, rec, &body)
	if body.Status != "ok" {
		t.Fatalf("unexpected status body: got %q", body.Status)
	}
}
