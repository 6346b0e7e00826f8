package ui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Session holds the authenticated connection to the backend API.
type Session struct {
	BaseURL string
	Token   string
	http    *http.Client
}

func NewSession() *Session {
	return &Session{http: &http.Client{Timeout: 15 * time.Second}}
}

type AccountEntry struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	UserNum   int    `json:"user_num"`
	Capacity  int    `json:"capacity"`
}

type UserEntry struct {
	ID        uint   `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Enabled   bool   `json:"enabled"`
	Locked    bool   `json:"locked"`
	AccountID string `json:"account_id"`
}

// Login authenticates against the backend and keeps the bearer token for
// later calls.
func (s *Session) Login(baseURL, email, password string) error {
	s.BaseURL = baseURL
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := s.http.Post(baseURL+"/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed (%d)", resp.StatusCode)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return err
	}
	s.Token = out.Token
	return nil
}

func (s *Session) Accounts() ([]AccountEntry, error) {
	var out []AccountEntry
	return out, s.get("/admin/accounts", &out)
}

func (s *Session) Users() ([]UserEntry, error) {
	var out []UserEntry
	return out, s.get("/admin/users", &out)
}

func (s *Session) SwitchLocked(id uint) error {
	var out UserEntry
	return s.post(fmt.Sprintf("/admin/users/lock?id=%d", id), nil, &out)
}

func (s *Session) RegisterAccount(accountID, email, token string) error {
	body := map[string]string{
		"account_id":          accountID,
		"email":               email,
		"authorization_token": token,
	}
	var out AccountEntry
	return s.post("/admin/accounts", body, &out)
}

func (s *Session) get(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, s.BaseURL+path, nil)
	if err != nil {
		return err
	}
	return s.do(req, out)
}

func (s *Session) post(path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequest(http.MethodPost, s.BaseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, out)
}

func (s *Session) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+s.Token)
	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (%d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("request failed (%d)", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
