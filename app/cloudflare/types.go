package cloudflare

// Application is one Zero Trust access application. Enrollment uses the
// application of type "warp".
type Application struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Policies []AccessPolicy `json:"policies"`
}

// AccessPolicy is an access application policy. The enrollment policy is the
// one with precedence 1; its include list holds one email rule per enrolled
// user.
type AccessPolicy struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Decision   string        `json:"decision"`
	Precedence int           `json:"precedence"`
	Include    []IncludeRule `json:"include"`
}

type IncludeRule struct {
	Email *EmailRule `json:"email,omitempty"`
}

type EmailRule struct {
	Email string `json:"email"`
}

// Rule is a gateway DNS filter rule as returned by the rules listing.
type Rule struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Action  string `json:"action"`
	Traffic string `json:"traffic"`
}

// RuleRequest is the create/update body for a gateway rule.
type RuleRequest struct {
	Action   string    `json:"action"`
	Name     string    `json:"name"`
	Enabled  bool      `json:"enabled"`
	Identity string    `json:"identity"`
	Traffic  string    `json:"traffic"`
	Schedule *Schedule `json:"schedule"`
	Filters  []string  `json:"filters"`
}

// Schedule mirrors the gateway's per-weekday window object.
type Schedule struct {
	Mon      string `json:"mon,omitempty"`
	Tue      string `json:"tue,omitempty"`
	Wed      string `json:"wed,omitempty"`
	Thu      string `json:"thu,omitempty"`
	Fri      string `json:"fri,omitempty"`
	Sat      string `json:"sat,omitempty"`
	Sun      string `json:"sun,omitempty"`
	TimeZone string `json:"time_zone,omitempty"`
}

// Device is a physical device record from the gateway.
type Device struct {
	ID           string `json:"id"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	LastSeen     string `json:"last_seen_at"`
	SerialNumber string `json:"serial_number"`
	Email        string `json:"email"`
}

// LogEntry is one resolver-query log group from the GraphQL API.
type LogEntry struct {
	CategoryNames          []string `json:"categoryNames"`
	Datetime               string   `json:"datetime"`
	MatchedApplicationName string   `json:"matchedApplicationName"`
	PolicyID               string   `json:"policyId"`
	PolicyName             string   `json:"policyName"`
	QueryName              string   `json:"queryName"`
	ResolverDecision       int      `json:"resolverDecision"`
}

// LogQuery parameterizes a resolver-log fetch.
type LogQuery struct {
	Start            string
	End              string
	PolicyIDs        []string
	OrderBy          []string
	Limit            int
	ResolverDecision int
}
