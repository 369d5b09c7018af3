package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TestContext holds the HTTP client and per-scenario state shared by steps.
type TestContext struct {
	BaseURL    string
	SigningKey string
	Issuer     string
	Audience   string
	HTTPClient *http.Client

	token        string
	applicantID  string
	lastStatus   int
	lastBody     []byte
	lastResponse map[string]any
	saved        map[string]string
}

// NewTestContext reads the target server from the environment.
func NewTestContext() *TestContext {
	return &TestContext{
		BaseURL:    envOr("E2E_BASE_URL", "http://localhost:8080"),
		SigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		Issuer:     envOr("JWT_ISSUER", "verity"),
		Audience:   envOr("JWT_AUDIENCE", "verity-api"),
		HTTPClient: &http.Client{Timeout: 3 * time.Minute},
	}
}

func (tc *TestContext) reset() {
	tc.token = ""
	tc.applicantID = ""
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.lastResponse = nil
	tc.saved = map[string]string{}
}

// AuthenticateAs mints a bearer token for a fresh applicant or a named operator.
func (tc *TestContext) AuthenticateAs(role, subject string) error {
	if role == "applicant" {
		subject = uuid.NewString()
		tc.applicantID = subject
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"jti":  uuid.NewString(),
		"iss":  tc.Issuer,
		"aud":  tc.Audience,
		"iat":  now.Unix(),
		"exp":  now.Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(tc.SigningKey))
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	tc.token = signed
	return nil
}

func (tc *TestContext) ApplicantID() string { return tc.applicantID }

func (tc *TestContext) POST(path string, body any) error {
	return tc.do(http.MethodPost, path, body)
}

func (tc *TestContext) PATCH(path string, body any) error {
	return tc.do(http.MethodPatch, path, body)
}

func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil)
}

func (tc *TestContext) do(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, tc.BaseURL+tc.Expand(path), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 Chrome/126.0 Safari/537.36")
	if tc.token != "" {
		req.Header.Set("Authorization", "Bearer "+tc.token)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	tc.lastResponse = nil
	if len(tc.lastBody) > 0 {
		_ = json.Unmarshal(tc.lastBody, &tc.lastResponse)
	}
	return nil
}

func (tc *TestContext) StatusCode() int { return tc.lastStatus }

func (tc *TestContext) Body() string { return string(tc.lastBody) }

// GetResponseField resolves a dotted path such as "application.status".
func (tc *TestContext) GetResponseField(field string) (any, error) {
	if tc.lastResponse == nil {
		return nil, fmt.Errorf("no JSON response (status %d): %s", tc.lastStatus, tc.lastBody)
	}
	var cur any = tc.lastResponse
	for _, part := range strings.Split(field, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q: %q is not an object", field, part)
		}
		if cur, ok = m[part]; !ok {
			return nil, fmt.Errorf("field %q not found in %s", field, tc.lastBody)
		}
	}
	return cur, nil
}

// Save remembers a response field under name for later {name} substitution.
func (tc *TestContext) Save(name, field string) error {
	v, err := tc.GetResponseField(field)
	if err != nil {
		return err
	}
	tc.saved[name] = fmt.Sprint(v)
	return nil
}

// Expand substitutes {name} placeholders with saved values.
func (tc *TestContext) Expand(s string) string {
	for k, v := range tc.saved {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return s
}

func registerCommonSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})
	ctx.Step(`^I am an applicant$`, func() error { return tc.AuthenticateAs("applicant", "") })
	ctx.Step(`^I am operator "([^"]*)"$`, func(name string) error { return tc.AuthenticateAs("operator", name) })
	ctx.Step(`^I send no credentials$`, func() error { tc.token = ""; return nil })
	ctx.Step(`^I GET "([^"]*)"$`, tc.GET)
	ctx.Step(`^I POST to "([^"]*)"$`, func(path string) error { return tc.POST(path, nil) })
	ctx.Step(`^the response status should be (\d+)$`, func(code int) error {
		if tc.lastStatus != code {
			return fmt.Errorf("expected status %d, got %d: %s", code, tc.lastStatus, tc.lastBody)
		}
		return nil
	})
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, func(field, want string) error {
		v, err := tc.GetResponseField(field)
		if err != nil {
			return err
		}
		if got := fmt.Sprint(v); got != want {
			return fmt.Errorf("field %q: expected %q, got %q", field, want, got)
		}
		return nil
	})
	ctx.Step(`^I save "([^"]*)" as "([^"]*)"$`, func(field, name string) error { return tc.Save(field, name) })
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
