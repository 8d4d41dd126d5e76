package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/you/padel-booking/pkg/auth"
	"github.com/you/padel-booking/pkg/clock"
	"github.com/you/padel-booking/pkg/db/dbtest"
	"github.com/you/padel-booking/services/booking-service/internal/domain"
	"github.com/you/padel-booking/services/booking-service/internal/repository"
	"github.com/you/padel-booking/services/booking-service/internal/service"
)

func init() { gin.SetMode(gin.TestMode) }

type testServer struct {
	r      *gin.Engine
	clock  *clock.FakeClock
	tokens map[string]string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gdb := dbtest.Open(t)
	res := repository.NewReservationRepo(gdb)
	users := repository.NewUserRepo(gdb)
	courts := repository.NewCourtRepo(gdb)
	for _, m := range []func() error{res.Migrate, users.Migrate, courts.Migrate} {
		if err := m(); err != nil {
			t.Fatalf("migrate: %v", err)
		}
	}
	catalog := service.NewCourtSvc(courts, nil, nil)
	if _, err := catalog.SeedDefaults(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	clk := clock.Fake(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	sw := service.NewSweeper(res, clk, service.DefaultHoldTTL, nil, nil)
	ledger := service.NewLedger(res, users, sw, nil)

	v := auth.NewVerifier("handler-test")
	ts := &testServer{r: NewRouter(NewHandler(ledger, catalog, nil), v), clock: clk, tokens: map[string]string{}}
	for _, u := range []struct{ id, role, name string }{
		{"user-a", auth.RoleUser, "Ana"},
		{"user-b", auth.RoleUser, "Bruno"},
		{"admin", auth.RoleAdmin, "Admin"},
	} {
		tok, err := v.CreateAccessToken(u.id, u.role, u.id+"@example.com", u.name, time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		ts.tokens[u.id] = tok
	}
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+ts.tokens[user])
	}
	w := httptest.NewRecorder()
	ts.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

type reserveResp struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

var body = map[string]string{"court_id": "1", "date": "2025-06-01", "time": "18:30"}

func TestBookingFlow(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/v1/bookings", "user-a", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("reserve: %d %s", w.Code, w.Body)
	}
	x := decode[reserveResp](t, w)
	if x.ID == "" || x.Status != "pending" {
		t.Fatalf("reserve body = %+v", x)
	}

	if w := ts.do(t, http.MethodPost, "/v1/bookings", "user-b", body); w.Code != http.StatusConflict {
		t.Errorf("conflicting reserve: %d %s", w.Code, w.Body)
	}
	w = ts.do(t, http.MethodGet, "/v1/bookings/"+x.ID, "user-a", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get booking: %d %s", w.Code, w.Body)
	}
	if got := decode[domain.ReservationView](t, w); got.ID != x.ID || got.Status != domain.StatusPending {
		t.Errorf("get booking = %+v", got)
	}
	if w := ts.do(t, http.MethodGet, "/v1/bookings/"+x.ID, "user-b", nil); w.Code != http.StatusNotFound {
		t.Errorf("get booking by non-owner: %d", w.Code)
	}
	if w := ts.do(t, http.MethodPut, "/v1/bookings/"+x.ID+"/confirm", "user-b", nil); w.Code != http.StatusNotFound {
		t.Errorf("confirm by non-owner: %d", w.Code)
	}
	if w := ts.do(t, http.MethodPut, "/v1/bookings/"+x.ID+"/confirm", "user-a", nil); w.Code != http.StatusOK {
		t.Errorf("confirm: %d %s", w.Code, w.Body)
	}

	w = ts.do(t, http.MethodGet, "/v1/bookings?court_id=1&date=2025-06-01", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("occupied: %d", w.Code)
	}
	occ := decode[struct {
		Times []string `json:"times"`
	}](t, w)
	if len(occ.Times) != 1 || occ.Times[0] != "18:30" {
		t.Errorf("occupied times = %v", occ.Times)
	}

	w = ts.do(t, http.MethodGet, "/v1/my-bookings", "user-a", nil)
	mine := decode[[]domain.ReservationView](t, w)
	if len(mine) != 1 || mine[0].CourtName != "Necochea Padel Club" || mine[0].Status != domain.StatusConfirmed {
		t.Errorf("my-bookings = %+v", mine)
	}

	if w := ts.do(t, http.MethodGet, "/v1/admin/bookings", "user-a", nil); w.Code != http.StatusForbidden {
		t.Errorf("admin list as user: %d", w.Code)
	}
	w = ts.do(t, http.MethodGet, "/v1/admin/bookings", "admin", nil)
	all := decode[[]domain.ReservationView](t, w)
	if len(all) != 1 || all[0].UserName != "Ana" {
		t.Errorf("admin list = %+v", all)
	}

	if w := ts.do(t, http.MethodPut, "/v1/admin/bookings/"+x.ID+"/cancel", "admin", nil); w.Code != http.StatusOK {
		t.Errorf("admin cancel: %d", w.Code)
	}
	if w := ts.do(t, http.MethodPut, "/v1/admin/bookings/"+x.ID+"/cancel", "admin", nil); w.Code != http.StatusNotFound {
		t.Errorf("repeat admin cancel: %d", w.Code)
	}
	w = ts.do(t, http.MethodPost, "/v1/bookings", "user-b", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("reserve after cancel: %d %s", w.Code, w.Body)
	}
	if y := decode[reserveResp](t, w); y.ID == x.ID {
		t.Error("cancelled id reused")
	}
}

func TestAbandonedHoldOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	if w := ts.do(t, http.MethodPost, "/v1/bookings", "user-a", body); w.Code != http.StatusCreated {
		t.Fatalf("reserve: %d", w.Code)
	}
	ts.clock.Advance(31 * time.Minute)

	w := ts.do(t, http.MethodGet, "/v1/bookings?court_id=1&date=2025-06-01", "", nil)
	occ := decode[struct {
		Times []string `json:"times"`
	}](t, w)
	if len(occ.Times) != 0 {
		t.Errorf("expired slot listed: %v", occ.Times)
	}
	if w := ts.do(t, http.MethodPost, "/v1/bookings", "user-b", body); w.Code != http.StatusCreated {
		t.Errorf("reserve over expired hold: %d %s", w.Code, w.Body)
	}
}

func TestRequestErrors(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		user   string
		body   any
		want   int
	}{
		{"reserve unauthenticated", http.MethodPost, "/v1/bookings", "", body, http.StatusUnauthorized},
		{"reserve missing field", http.MethodPost, "/v1/bookings", "user-a", map[string]string{"court_id": "1"}, http.StatusBadRequest},
		{"reserve bad time", http.MethodPost, "/v1/bookings", "user-a", map[string]string{"court_id": "1", "date": "2025-06-01", "time": "25:99"}, http.StatusBadRequest},
		{"occupied without court", http.MethodGet, "/v1/bookings?date=2025-06-01", "", nil, http.StatusBadRequest},
		{"confirm unknown", http.MethodPut, "/v1/bookings/nope/confirm", "user-a", nil, http.StatusNotFound},
		{"admin confirm unknown", http.MethodPut, "/v1/admin/bookings/nope/confirm", "admin", nil, http.StatusNotFound},
		{"court unknown", http.MethodGet, "/v1/courts/99", "", nil, http.StatusNotFound},
		{"reserve unknown court", http.MethodPost, "/v1/bookings", "user-a", map[string]string{"court_id": "99", "date": "2025-06-01", "time": "18:30"}, http.StatusNotFound},
		{"get booking anonymous", http.MethodGet, "/v1/bookings/some-id", "", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := ts.do(t, tt.method, tt.path, tt.user, tt.body); w.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.want, w.Body)
			}
		})
	}
}

func TestCourts(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/v1/courts?city=Necochea", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list courts: %d", w.Code)
	}
	if courts := decode[[]domain.Court](t, w); len(courts) != 3 {
		t.Errorf("courts = %+v", courts)
	}
	w = ts.do(t, http.MethodGet, "/v1/courts/3", "", nil)
	if c := decode[domain.Court](t, w); c.Name != "Master Padel" {
		t.Errorf("court 3 = %+v", c)
	}
}

type failingLedger struct{ Ledger }

func (failingLedger) ListAll(context.Context) ([]domain.ReservationView, error) {
	return nil, &domain.StoreError{Op: "list reservations", Err: errors.New("connection refused")}
}

func TestStoreErrorIsGeneric(t *testing.T) {
	v := auth.NewVerifier("handler-test")
	tok, err := v.CreateAccessToken("admin", auth.RoleAdmin, "", "", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	r := NewRouter(NewHandler(failingLedger{}, nil, nil), v)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/bookings", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if bytes.Contains(w.Body.Bytes(), []byte("connection refused")) {
		t.Errorf("store detail leaked: %s", w.Body)
	}
}
