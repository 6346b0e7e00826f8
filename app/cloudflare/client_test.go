package cloudflare

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return New(srv.URL, 5*time.Second), srv
}

func ok(w http.ResponseWriter, result any) {
	raw, _ := json.Marshal(result)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "result": json.RawMessage(raw)})
}

func TestCreateEnrollmentApplication(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		ok(w, map[string]string{"id": "app-1"})
	}))
	defer srv.Close()

	id, err := c.CreateEnrollmentApplication(context.Background(), "acc-1", "Bearer tok", "owner@x.test")
	if err != nil {
		t.Fatal(err)
	}
	if id != "app-1" {
		t.Errorf("id = %s, want app-1", id)
	}
	if gotPath != "/accounts/acc-1/access/apps" {
		t.Errorf("path = %s", gotPath)
	}
	if gotBody["type"] != "warp" || gotBody["session_duration"] != "24h" {
		t.Errorf("body = %v, want warp/24h", gotBody)
	}
}

func TestErrorEnvelope(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"errors":  []map[string]any{{"code": 10000, "message": "Authentication error"}},
		})
	}))
	defer srv.Close()

	_, err := c.ListRules(context.Background(), "acc-1", "bad")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusForbidden || apiErr.Message != "Authentication error" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestSuccessFalseWithOKStatus(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false})
	}))
	defer srv.Close()

	var apiErr *APIError
	if _, err := c.ListRules(context.Background(), "acc-1", "tok"); !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
}

func TestUpdateEnrollmentPolicySendsFullIncludeList(t *testing.T) {
	var gotBody struct {
		Include []IncludeRule `json:"include"`
	}
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		ok(w, map[string]string{"id": "enroll-1"})
	}))
	defer srv.Close()

	emails := []string{"a@x.test", "b@x.test", "c@x.test"}
	if err := c.UpdateEnrollmentPolicy(context.Background(), "acc-1", "tok", "app-1", "enroll-1", emails); err != nil {
		t.Fatal(err)
	}
	if len(gotBody.Include) != 3 {
		t.Fatalf("include has %d entries, want 3", len(gotBody.Include))
	}
	for i, e := range emails {
		if gotBody.Include[i].Email == nil || gotBody.Include[i].Email.Email != e {
			t.Errorf("include[%d] = %+v, want %s", i, gotBody.Include[i], e)
		}
	}
}

func TestListDevicesMapsNestedEmail(t *testing.T) {
	var gotQuery string
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		ok(w, []map[string]any{
			{
				"id": "dev-1", "serial_number": "SN1", "last_seen_at": "2026-08-01T10:00:00Z",
				"last_seen_user": map[string]string{"email": "kid@x.test"},
			},
			{"id": "dev-2"},
		})
	}))
	defer srv.Close()

	devices, err := c.ListDevices(context.Background(), "acc-1", "tok", "kid@x.test")
	if err != nil {
		t.Fatal(err)
	}
	if gotQuery != "last_seen_user.email=kid%40x.test" {
		t.Errorf("query = %s", gotQuery)
	}
	if len(devices) != 2 {
		t.Fatalf("got %d devices, want 2", len(devices))
	}
	if devices[0].Email != "kid@x.test" {
		t.Errorf("email = %s, want kid@x.test", devices[0].Email)
	}
	if devices[1].Email != "" {
		t.Errorf("missing last_seen_user should map to empty email, got %s", devices[1].Email)
	}
}

func TestQueryLogsParsesGraphQLShape(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Variables map[string]any `json:"variables"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload.Variables["accountId"] != "acc-1" {
			t.Errorf("accountId variable = %v", payload.Variables["accountId"])
		}
		_, _ = w.Write([]byte(`{
			"data": {"viewer": {"accounts": [{
				"gatewayResolverQueriesAdaptiveGroups": [
					{"dimensions": {"queryName": "casino.example", "policyId": "pol-1", "resolverDecision": 9}},
					{"dimensions": {"queryName": "news.example", "policyId": "pol-2", "resolverDecision": 1}}
				]
			}]}}
		}`))
	}))
	defer srv.Close()

	entries, err := c.QueryLogs(context.Background(), "acc-1", "tok", LogQuery{
		Start: "2026-08-01T00:00:00Z", End: "2026-08-01T01:00:00Z", Limit: 100,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].QueryName != "casino.example" || entries[0].ResolverDecision != 9 {
		t.Errorf("entries[0] = %+v", entries[0])
	}
}

func TestQueryLogsDeclaresOnlyBindableVariables(t *testing.T) {
	var payload struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables"`
	}
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&payload)
		_, _ = w.Write([]byte(`{"data": {"viewer": {"accounts": []}}}`))
	}))
	defer srv.Close()

	if _, err := c.QueryLogs(context.Background(), "acc-1", "tok", LogQuery{
		Start: "2026-08-01T00:00:00Z", End: "2026-08-01T01:00:00Z", Limit: 100,
		PolicyIDs: []string{"pol-1"}, ResolverDecision: 9,
	}); err != nil {
		t.Fatal(err)
	}

	// Every variable the document declares must come from a LogQuery field.
	for _, name := range []string{"accountId", "datetime_gt", "datetime_lt", "limit", "orderBy", "policyIdsIn", "resolverDecision"} {
		if !strings.Contains(payload.Query, "$"+name) {
			t.Errorf("document no longer declares $%s", name)
		}
	}
	decls := strings.Count(payload.Query, "$")
	bound := 2 * len(payload.Variables) // each variable appears in the declaration and the filter
	if decls != bound {
		t.Errorf("document uses %d variable references but %d are bound", decls, bound)
	}
}

func TestQueryLogsEmptyAccounts(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": {"viewer": {"accounts": []}}}`))
	}))
	defer srv.Close()

	entries, err := c.QueryLogs(context.Background(), "acc-1", "tok", LogQuery{Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries, want 0", len(entries))
	}
}

func TestDeleteRulePath(t *testing.T) {
	var gotMethod, gotPath string
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		ok(w, map[string]string{"id": "rule-1"})
	}))
	defer srv.Close()

	if err := c.DeleteRule(context.Background(), "acc-1", "tok", "rule-1"); err != nil {
		t.Fatal(err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/accounts/acc-1/gateway/rules/rule-1" {
		t.Errorf("%s %s", gotMethod, gotPath)
	}
}
