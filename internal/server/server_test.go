package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"decisionline/internal/config"
	"decisionline/internal/db"
	"decisionline/internal/engine"
	"decisionline/internal/migrate"
)

const testJWTSecret = "server-test-secret"

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
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default("tester"))
	e.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v0",
		Auth: AuthConfig{
			JWTSecret:              testJWTSecret,
			AllowLegacyActorHeader: true,
		},
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

var asTester = map[string]string{"X-Actor-Id": "tester"}

func TestDecisionLifecycleOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	createRes, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/decisions", map[string]any{
		"title":             "Monitoring tool",
		"problem_statement": "We need to replace the legacy monitoring stack across forty servers within Q4 because support has lapsed",
		"stakeholders":      []string{"sre", "platform"},
	}, asTester)
	if createRes.StatusCode != http.StatusCreated {
		t.Fatalf("create decision status %d: %s", createRes.StatusCode, string(data))
	}
	var created DecisionResponse
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal decision: %v", err)
	}
	if created.Type != "vendor" || created.TypeSource != "classified" {
		t.Fatalf("expected classified vendor, got %s/%s", created.Type, created.TypeSource)
	}

	var optionIDs []string
	for _, name := range []string{"Prometheus", "Datadog"} {
		res, body := doJSON(t, client, http.MethodPost, srv.URL+"/v0/decisions/"+created.ID+"/options", map[string]any{
			"name":  name,
			"pros":  []string{"p1", "p2"},
			"cons":  []string{"c1", "c2"},
			"risks": []string{"r1"},
		}, asTester)
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("add option %s status %d: %s", name, res.StatusCode, string(body))
		}
		var opt OptionResponse
		if err := json.Unmarshal(body, &opt); err != nil {
			t.Fatalf("unmarshal option: %v", err)
		}
		optionIDs = append(optionIDs, opt.ID)
	}

	chooseRes, chooseBody := doJSON(t, client, http.MethodPost, srv.URL+"/v0/decisions/"+created.ID+"/choose", map[string]any{
		"option_id": optionIDs[1],
		"reasoning": "Datadog is cheaper to run than Prometheus for our team size",
	}, asTester)
	if chooseRes.StatusCode != http.StatusOK {
		t.Fatalf("choose status %d: %s", chooseRes.StatusCode, string(chooseBody))
	}
	var chosen DecisionResponse
	if err := json.Unmarshal(chooseBody, &chosen); err != nil {
		t.Fatalf("unmarshal chosen: %v", err)
	}
	if chosen.Status != "decided" || chosen.ChosenOptionID == nil || *chosen.ChosenOptionID != optionIDs[1] {
		t.Fatalf("unexpected decision after choose: %+v", chosen)
	}

	outcomeRes, outcomeBody := doJSON(t, client, http.MethodPost, srv.URL+"/v0/decisions/"+created.ID+"/outcome", map[string]any{
		"actual_outcome":  "migration stalled halfway",
		"success_level":   "failed",
		"lessons_learned": "should have piloted first",
	}, asTester)
	if outcomeRes.StatusCode != http.StatusOK {
		t.Fatalf("record outcome status %d: %s", outcomeRes.StatusCode, string(outcomeBody))
	}

	summaryRes, summaryBody := doJSON(t, client, http.MethodGet, srv.URL+"/v0/decisions/"+created.ID, nil, asTester)
	if summaryRes.StatusCode != http.StatusOK {
		t.Fatalf("summary status %d: %s", summaryRes.StatusCode, string(summaryBody))
	}
	var summary SummaryResponse
	if err := json.Unmarshal(summaryBody, &summary); err != nil {
		t.Fatalf("unmarshal summary: %v", err)
	}
	if summary.Decision.Status != "outcome_recorded" {
		t.Fatalf("expected outcome_recorded, got %s", summary.Decision.Status)
	}
	if summary.Outcome == nil || summary.Outcome.SuccessLevel != "failed" {
		t.Fatalf("missing outcome in summary: %+v", summary.Outcome)
	}
	if summary.Quality.Total == 0 || summary.Quality.Grade == "" {
		t.Fatalf("missing quality in summary: %+v", summary.Quality)
	}
	if len(summary.Options) != 2 {
		t.Fatalf("expected 2 options, got %d", len(summary.Options))
	}
}

func TestSecondOutcomeConflicts(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	_, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/decisions", map[string]any{
		"title":             "Retire the batch pipeline",
		"problem_statement": "Nightly batch runs keep overrunning the window",
	}, asTester)
	var created DecisionResponse
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal decision: %v", err)
	}
	_, optBody := doJSON(t, client, http.MethodPost, srv.URL+"/v0/decisions/"+created.ID+"/options", map[string]any{
		"name": "streaming rewrite",
	}, asTester)
	var opt OptionResponse
	if err := json.Unmarshal(optBody, &opt); err != nil {
		t.Fatalf("unmarshal option: %v", err)
	}
	doJSON(t, client, http.MethodPost, srv.URL+"/v0/decisions/"+created.ID+"/choose", map[string]any{
		"option_id": opt.ID,
	}, asTester)
	first, firstBody := doJSON(t, client, http.MethodPost, srv.URL+"/v0/decisions/"+created.ID+"/outcome", map[string]any{
		"actual_outcome": "done",
		"success_level":  "met",
	}, asTester)
	if first.StatusCode != http.StatusOK {
		t.Fatalf("first outcome status %d: %s", first.StatusCode, string(firstBody))
	}

	second, secondBody := doJSON(t, client, http.MethodPost, srv.URL+"/v0/decisions/"+created.ID+"/outcome", map[string]any{
		"actual_outcome": "done again",
		"success_level":  "exceeded",
	}, asTester)
	if second.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", second.StatusCode, string(secondBody))
	}
	var envelope struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(secondBody, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if envelope.Error.Code != "state_conflict" {
		t.Fatalf("expected state_conflict, got %q (%s)", envelope.Error.Code, string(secondBody))
	}
	if envelope.Error.Details["status"] != "outcome_recorded" {
		t.Fatalf("expected status detail, got %v", envelope.Error.Details)
	}
}

func TestValidationErrorsAreBadRequests(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, body := doJSON(t, client, http.MethodPost, srv.URL+"/v0/decisions", map[string]any{
		"problem_statement": "No title provided",
	}, asTester)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", res.StatusCode, string(body))
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if envelope.Error.Code != "bad_request" {
		t.Fatalf("expected bad_request, got %q", envelope.Error.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, body := doJSON(t, client, http.MethodGet, srv.URL+"/v0/decisions", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d: %s", res.StatusCode, string(body))
	}

	healthRes, healthBody := doJSON(t, client, http.MethodGet, srv.URL+"/v0/health", nil, nil)
	if healthRes.StatusCode != http.StatusOK {
		t.Fatalf("health should not require auth, got %d: %s", healthRes.StatusCode, string(healthBody))
	}
}

func TestDevLoginTokenWorks(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	loginRes, loginBody := doJSON(t, client, http.MethodPost, srv.URL+"/v0/auth/dev/login", map[string]any{
		"actor_id": "jwt-user",
	}, nil)
	if loginRes.StatusCode != http.StatusOK {
		t.Fatalf("dev login status %d: %s", loginRes.StatusCode, string(loginBody))
	}
	var login DevLoginResponse
	if err := json.Unmarshal(loginBody, &login); err != nil {
		t.Fatalf("unmarshal login: %v", err)
	}
	if login.Token == "" {
		t.Fatal("empty token")
	}

	res, body := doJSON(t, client, http.MethodPost, srv.URL+"/v0/decisions", map[string]any{
		"title":             "Signed request",
		"problem_statement": "Prove the minted token authenticates requests",
	}, map[string]string{"Authorization": "Bearer " + login.Token})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("authenticated create status %d: %s", res.StatusCode, string(body))
	}
	var created DecisionResponse
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("unmarshal decision: %v", err)
	}
	if created.DecidedBy != "" {
		t.Fatalf("unexpected decided_by on fresh decision: %s", created.DecidedBy)
	}
}

func TestListPagination(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	for _, title := range []string{"one", "two", "three"} {
		res, body := doJSON(t, client, http.MethodPost, srv.URL+"/v0/decisions", map[string]any{
			"title":             title,
			"problem_statement": "pagination seed " + title,
		}, asTester)
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("seed %s: %d %s", title, res.StatusCode, string(body))
		}
	}

	res, body := doJSON(t, client, http.MethodGet, srv.URL+"/v0/decisions?limit=2", nil, asTester)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status %d: %s", res.StatusCode, string(body))
	}
	var page struct {
		Items      []DecisionResponse `json:"items"`
		NextCursor string             `json:"next_cursor"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		t.Fatalf("unmarshal page: %v", err)
	}
	if len(page.Items) != 2 || page.NextCursor == "" {
		t.Fatalf("expected 2 items and a cursor, got %d items cursor %q", len(page.Items), page.NextCursor)
	}

	res2, body2 := doJSON(t, client, http.MethodGet, srv.URL+"/v0/decisions?limit=2&cursor="+page.NextCursor, nil, asTester)
	if res2.StatusCode != http.StatusOK {
		t.Fatalf("second page status %d: %s", res2.StatusCode, string(body2))
	}
	var page2 struct {
		Items      []DecisionResponse `json:"items"`
		NextCursor string             `json:"next_cursor"`
	}
	if err := json.Unmarshal(body2, &page2); err != nil {
		t.Fatalf("unmarshal second page: %v", err)
	}
	if len(page2.Items) != 1 || page2.NextCursor != "" {
		t.Fatalf("expected final page of 1, got %d items cursor %q", len(page2.Items), page2.NextCursor)
	}
	seen := map[string]bool{}
	for _, d := range append(page.Items, page2.Items...) {
		if seen[d.ID] {
			t.Fatalf("duplicate id %s across pages", d.ID)
		}
		seen[d.ID] = true
	}
}
