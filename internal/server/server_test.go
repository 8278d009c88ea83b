package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"taskline/internal/db"
	"taskline/internal/domain"
	"taskline/internal/engine"
	"taskline/internal/journal"
	"taskline/internal/migrate"
	"taskline/internal/store"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	st := store.New()
	if _, err := st.SeedParticipant("dana", domain.RoleProductOwner); err != nil {
		t.Fatalf("seed owner: %v", err)
	}
	if _, err := st.AddParticipant("alice", "member"); err != nil {
		t.Fatalf("seed alice: %v", err)
	}
	if _, err := st.AddParticipant("vera", "visualizer"); err != nil {
		t.Fatalf("seed vera: %v", err)
	}
	e := engine.New(st, &journal.Writer{DB: conn})
	handler, err := New(Config{
		Engine: e,
		Auth:   AuthConfig{JWTSecret: "test-secret"},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func asOwner() map[string]string { return map[string]string{"X-Participant": "dana"} }

func errorCode(t *testing.T, data []byte) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v (%s)", err, string(data))
	}
	return envelope.Error.Code
}

func TestHealth(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health: %d %s", res.StatusCode, string(data))
	}
	var health HealthResponse
	if err := json.Unmarshal(data, &health); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if health.Status != "ok" || health.Message != "Backend running" {
		t.Fatalf("health = %+v", health)
	}
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks", map[string]any{
		"title":        "Ship feature",
		"estimate_min": 45,
	}, asOwner())
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create: %d %s", res.StatusCode, string(data))
	}
	var created TaskResponse
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if created.Status != "TODO" || created.EstimateMin != 45 {
		t.Fatalf("created = %+v", created)
	}

	// Lowercase status tokens are accepted and canonicalized.
	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v1/tasks/1", map[string]any{
		"status": "in_progress",
	}, asOwner())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("patch: %d %s", res.StatusCode, string(data))
	}
	var updated TaskResponse
	_ = json.Unmarshal(data, &updated)
	if updated.Status != "IN_PROGRESS" || updated.StartedAt == nil {
		t.Fatalf("updated = %+v", updated)
	}

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v1/tasks/1", map[string]any{
		"status": "DONE",
	}, asOwner())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("finish: %d %s", res.StatusCode, string(data))
	}
	_ = json.Unmarshal(data, &updated)
	if updated.CompletedAt == nil || updated.ActualSec == nil {
		t.Fatalf("DONE task missing timestamps: %+v", updated)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/tasks/1", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get without identity (open read): %d %s", res.StatusCode, string(data))
	}
}

func TestErrorTaxonomyOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	// No identity on a mutation.
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks", map[string]any{"title": "x"}, nil)
	if res.StatusCode != http.StatusUnauthorized || errorCode(t, data) != "unauthenticated" {
		t.Fatalf("anonymous create: %d %s", res.StatusCode, string(data))
	}

	// Unknown identity.
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks", map[string]any{"title": "x"},
		map[string]string{"X-Participant": "mallory"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unknown identity: %d %s", res.StatusCode, string(data))
	}

	// Wrong role.
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks", map[string]any{"title": "x"},
		map[string]string{"X-Participant": "vera"})
	if res.StatusCode != http.StatusForbidden || errorCode(t, data) != "forbidden" {
		t.Fatalf("visualizer create: %d %s", res.StatusCode, string(data))
	}

	// Validation failure.
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks", map[string]any{
		"title":  "x",
		"status": "doing",
	}, asOwner())
	if res.StatusCode != http.StatusBadRequest || errorCode(t, data) != "validation_error" {
		t.Fatalf("bad status: %d %s", res.StatusCode, string(data))
	}

	// Unknown assignee name.
	doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks", map[string]any{"title": "real"}, asOwner())
	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v1/tasks/1", map[string]any{
		"add_assignee": "ghost",
	}, asOwner())
	if res.StatusCode != http.StatusBadRequest || errorCode(t, data) != "unknown_participant" {
		t.Fatalf("unknown assignee: %d %s", res.StatusCode, string(data))
	}

	// Missing task.
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/tasks/999", nil, nil)
	if res.StatusCode != http.StatusNotFound || errorCode(t, data) != "not_found" {
		t.Fatalf("missing task: %d %s", res.StatusCode, string(data))
	}
}

func TestMemberAssigneePatchForbidden(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks", map[string]any{"title": "shared"}, asOwner())
	res, data := doJSON(t, client, http.MethodPatch, srv.URL+"/v1/tasks/1", map[string]any{
		"add_assignee": "alice",
	}, asOwner())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("assign: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v1/tasks/1", map[string]any{
		"title":        "renamed",
		"add_assignee": "vera",
	}, map[string]string{"X-Participant": "alice"})
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("member assignee patch: %d %s", res.StatusCode, string(data))
	}

	// The title in the rejected patch must not have been applied.
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/tasks/1", nil, nil)
	var task TaskResponse
	_ = json.Unmarshal(data, &task)
	if task.Title != "shared" {
		t.Fatalf("title leaked: %q", task.Title)
	}
}

func TestParticipantEndpoints(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/participants", map[string]any{
		"name": "carol",
		"role": "member",
	}, asOwner())
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("add: %d %s", res.StatusCode, string(data))
	}
	var carol ParticipantResponse
	_ = json.Unmarshal(data, &carol)
	if carol.Role != "member" {
		t.Fatalf("carol = %+v", carol)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/participants", map[string]any{
		"name": "eve",
		"role": "product_owner",
	}, asOwner())
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("second owner must be rejected: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodDelete, srv.URL+"/v1/participants/"+itoa(carol.ID), nil, asOwner())
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodDelete, srv.URL+"/v1/participants/"+itoa(carol.ID), nil,
		map[string]string{"X-Participant": "alice"})
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("member delete: %d %s", res.StatusCode, string(data))
	}
}

func TestJournalEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks", map[string]any{"title": "audited"}, asOwner())
	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v1/events?limit=5", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("events: %d %s", res.StatusCode, string(data))
	}
	var entries []EntryResponse
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(entries) != 1 || entries[0].Type != "task.created" || entries[0].Actor != "dana" {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestBearerTokenIdentity(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	claims := jwt.RegisteredClaims{
		Subject:   "dana",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks", map[string]any{"title": "via jwt"},
		map[string]string{"Authorization": "Bearer " + token})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("bearer create: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/tasks", map[string]any{"title": "bad"},
		map[string]string{"Authorization": "Bearer not-a-token"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("garbage bearer: %d %s", res.StatusCode, string(data))
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/v1/tasks", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	res, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("preflight status: %d", res.StatusCode)
	}
	if got := res.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("allow-origin = %q", got)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
