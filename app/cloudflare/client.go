// Package cloudflare wraps the parts of the Cloudflare Zero Trust v4 API
// that the sync engine consumes: access applications and policies for
// enrollment, gateway DNS rules, physical devices and the GraphQL resolver
// log query. The client owns no state beyond its HTTP transport; account
// identity and authorization are passed per call.
package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.cloudflare.com/client/v4"

// APIError is any failed gateway interaction: non-2xx status, an error
// envelope, or a body that does not parse. Timeouts surface here too, with
// Status 0.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cloudflare: %s (status %d)", e.Message, e.Status)
}

type Client struct {
	base string
	http *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// envelope is the standard v4 response wrapper.
type envelope struct {
	Success bool `json:"success"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
	Result json.RawMessage `json:"result"`
}

func (c *Client) do(ctx context.Context, method, path, token string, body any) (*envelope, error) {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &APIError{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Status: resp.StatusCode, Message: err.Error()}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &APIError{Status: resp.StatusCode, Message: "unparseable response body"}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		msg := "request failed"
		if len(env.Errors) > 0 {
			msg = env.Errors[0].Message
		}
		return nil, &APIError{Status: resp.StatusCode, Message: msg}
	}
	return &env, nil
}

func accountPath(accountID, suffix string) string {
	return "/accounts/" + url.PathEscape(accountID) + suffix
}

// CreateEnrollmentApplication creates the warp access application that gates
// device enrollment. Returns the remote application id.
func (c *Client) CreateEnrollmentApplication(ctx context.Context, accountID, token, name string) (string, error) {
	body := map[string]any{
		"name":             name,
		"type":             "warp",
		"session_duration": "24h",
	}
	env, err := c.do(ctx, http.MethodPost, accountPath(accountID, "/access/apps"), token, body)
	if err != nil {
		return "", err
	}
	return resultID(env)
}

func (c *Client) ListApplications(ctx context.Context, accountID, token string) ([]Application, error) {
	env, err := c.do(ctx, http.MethodGet, accountPath(accountID, "/access/apps"), token, nil)
	if err != nil {
		return nil, err
	}
	var apps []Application
	if err := json.Unmarshal(env.Result, &apps); err != nil {
		return nil, &APIError{Message: "unparseable application list"}
	}
	return apps, nil
}

// CreateEnrollmentPolicy creates the precedence-1 allow policy on the
// enrollment application with a single email include.
func (c *Client) CreateEnrollmentPolicy(ctx context.Context, accountID, token, appID, email string) (string, error) {
	env, err := c.do(ctx, http.MethodPost, accountPath(accountID, "/access/apps/"+url.PathEscape(appID)+"/policies"), token, enrollmentPolicyBody([]string{email}))
	if err != nil {
		return "", err
	}
	return resultID(env)
}

func (c *Client) GetEnrollmentPolicy(ctx context.Context, accountID, token, appID, policyID string) (*AccessPolicy, error) {
	env, err := c.do(ctx, http.MethodGet, accountPath(accountID, "/access/apps/"+url.PathEscape(appID)+"/policies/"+url.PathEscape(policyID)), token, nil)
	if err != nil {
		return nil, err
	}
	var pol AccessPolicy
	if err := json.Unmarshal(env.Result, &pol); err != nil {
		return nil, &APIError{Message: "unparseable access policy"}
	}
	return &pol, nil
}

// UpdateEnrollmentPolicy replaces the policy's whole include list. The
// remote API overwrites on update, so callers must pass every email that
// should remain enrolled, not just the new one.
func (c *Client) UpdateEnrollmentPolicy(ctx context.Context, accountID, token, appID, policyID string, emails []string) error {
	_, err := c.do(ctx, http.MethodPut, accountPath(accountID, "/access/apps/"+url.PathEscape(appID)+"/policies/"+url.PathEscape(policyID)), token, enrollmentPolicyBody(emails))
	return err
}

func enrollmentPolicyBody(emails []string) map[string]any {
	include := make([]IncludeRule, 0, len(emails))
	for _, e := range emails {
		include = append(include, IncludeRule{Email: &EmailRule{Email: e}})
	}
	return map[string]any{
		"name":     "Allow",
		"decision": "allow",
		"include":  include,
	}
}

func (c *Client) CreateRule(ctx context.Context, accountID, token string, rule RuleRequest) (string, error) {
	env, err := c.do(ctx, http.MethodPost, accountPath(accountID, "/gateway/rules"), token, rule)
	if err != nil {
		return "", err
	}
	return resultID(env)
}

func (c *Client) UpdateRule(ctx context.Context, accountID, token, ruleID string, rule RuleRequest) error {
	_, err := c.do(ctx, http.MethodPut, accountPath(accountID, "/gateway/rules/"+url.PathEscape(ruleID)), token, rule)
	return err
}

func (c *Client) DeleteRule(ctx context.Context, accountID, token, ruleID string) error {
	_, err := c.do(ctx, http.MethodDelete, accountPath(accountID, "/gateway/rules/"+url.PathEscape(ruleID)), token, nil)
	return err
}

func (c *Client) ListRules(ctx context.Context, accountID, token string) ([]Rule, error) {
	env, err := c.do(ctx, http.MethodGet, accountPath(accountID, "/gateway/rules"), token, nil)
	if err != nil {
		return nil, err
	}
	var rules []Rule
	if err := json.Unmarshal(env.Result, &rules); err != nil {
		return nil, &APIError{Message: "unparseable rule list"}
	}
	return rules, nil
}

// ListDevices returns the account's physical devices, optionally filtered to
// those last seen by the given email.
func (c *Client) ListDevices(ctx context.Context, accountID, token, email string) ([]Device, error) {
	path := accountPath(accountID, "/devices/physical-devices")
	if email != "" {
		path += "?last_seen_user.email=" + url.QueryEscape(email)
	}
	env, err := c.do(ctx, http.MethodGet, path, token, nil)
	if err != nil {
		return nil, err
	}
	var raw []struct {
		ID           string `json:"id"`
		Manufacturer string `json:"manufacturer"`
		Model        string `json:"model"`
		LastSeen     string `json:"last_seen_at"`
		SerialNumber string `json:"serial_number"`
		LastSeenUser *struct {
			Email string `json:"email"`
		} `json:"last_seen_user"`
	}
	if err := json.Unmarshal(env.Result, &raw); err != nil {
		return nil, &APIError{Message: "unparseable device list"}
	}
	devices := make([]Device, 0, len(raw))
	for _, d := range raw {
		dev := Device{ID: d.ID, Manufacturer: d.Manufacturer, Model: d.Model, LastSeen: d.LastSeen, SerialNumber: d.SerialNumber}
		if d.LastSeenUser != nil {
			dev.Email = d.LastSeenUser.Email
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

func (c *Client) DeleteDevice(ctx context.Context, accountID, token, deviceID string) error {
	_, err := c.do(ctx, http.MethodDelete, accountPath(accountID, "/devices/physical-devices/"+url.PathEscape(deviceID)), token, nil)
	return err
}

const logQueryDocument = `query GetRecentQueries(
  $accountId: string!,
  $datetime_gt: Time!,
  $datetime_lt: Time,
  $limit: uint64!,
  $policyIdsIn: [string],
  $orderBy: [string!],
  $resolverDecision: uint64
) {
  viewer {
    accounts(filter: {accountTag: $accountId}) {
      gatewayResolverQueriesAdaptiveGroups(
        filter: {
          datetime_gt: $datetime_gt,
          datetime_lt: $datetime_lt,
          policyId_in: $policyIdsIn,
          resolverDecision: $resolverDecision
        }
        limit: $limit
        orderBy: $orderBy
      ) {
        count
        dimensions {
          categoryNames
          datetime
          matchedApplicationName
          policyId
          policyName
          queryName
          resolverDecision
        }
      }
    }
  }
}`

// QueryLogs runs the fixed resolver-log GraphQL query. The GraphQL endpoint
// does not use the standard v4 envelope, so it bypasses do().
func (c *Client) QueryLogs(ctx context.Context, accountID, token string, q LogQuery) ([]LogEntry, error) {
	variables := map[string]any{
		"accountId":   accountID,
		"datetime_gt": q.Start,
		"datetime_lt": q.End,
		"limit":       q.Limit,
		"orderBy":     q.OrderBy,
	}
	if len(q.PolicyIDs) > 0 {
		variables["policyIdsIn"] = q.PolicyIDs
	}
	if q.ResolverDecision != 0 {
		variables["resolverDecision"] = q.ResolverDecision
	}
	payload := map[string]any{"query": logQueryDocument, "variables": variables}

	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal graphql request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+accountPath(accountID, "/graphql"), bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &APIError{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Status: resp.StatusCode, Message: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Message: string(raw)}
	}

	var out struct {
		Data struct {
			Viewer struct {
				Accounts []struct {
					Groups []struct {
						Dimensions LogEntry `json:"dimensions"`
					} `json:"gatewayResolverQueriesAdaptiveGroups"`
				} `json:"accounts"`
			} `json:"viewer"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &APIError{Status: resp.StatusCode, Message: "unparseable graphql response"}
	}
	if len(out.Data.Viewer.Accounts) == 0 {
		return nil, nil
	}
	groups := out.Data.Viewer.Accounts[0].Groups
	entries := make([]LogEntry, 0, len(groups))
	for _, g := range groups {
		entries = append(entries, g.Dimensions)
	}
	return entries, nil
}

func resultID(env *envelope) (string, error) {
	var res struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env.Result, &res); err != nil || res.ID == "" {
		return "", &APIError{Message: "response result has no id"}
	}
	return res.ID, nil
}
