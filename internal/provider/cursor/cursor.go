package cursor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/paceguard/paceguard/internal/browsercookie"
	"github.com/paceguard/paceguard/internal/config"
	"github.com/paceguard/paceguard/internal/fetch"
	"github.com/paceguard/paceguard/internal/httpclient"
	"github.com/paceguard/paceguard/internal/models"
	"github.com/paceguard/paceguard/internal/provider"
)

// sessionCookieNames are tried in order against a browser's cookie jar for
// cursor.com; WorkOS-backed accounts use the first, legacy next-auth
// sessions use the other two.
var sessionCookieNames = []string{
	"WorkosCursorSessionToken",
	"__Secure-next-auth.session-token",
	"next-auth.session-token",
}

type Cursor struct{}

func (c Cursor) Meta() provider.Metadata {
	return provider.Metadata{
		ID:           "cursor",
		Name:         "Cursor",
		Description:  "AI-powered code editor",
		Homepage:     "https://cursor.com",
		StatusURL:    "https://status.cursor.com",
		DashboardURL: "https://cursor.com/settings/usage",
	}
}

func (c Cursor) CredentialSources() provider.CredentialInfo {
	return provider.CredentialInfo{
		EnvVars: []string{"CURSOR_API_KEY"},
	}
}

func (c Cursor) FetchStrategies() []fetch.Strategy {
	timeout := config.Get().Fetch.Timeout
	return []fetch.Strategy{&WebStrategy{HTTPTimeout: timeout}}
}

func (c Cursor) FetchStatus(ctx context.Context) models.ProviderStatus {
	return provider.FetchStatuspageStatus(ctx, "https://status.cursor.com")
}

const (
	usageSummaryURL = "https://cursor.com/api/usage-summary"
	authMeURL       = "https://cursor.com/api/auth/me"
)

// Auth returns the manual session token flow for Cursor.
func (c Cursor) Auth() provider.AuthFlow {
	return provider.ManualKeyAuthFlow{
		Instructions: "Get your session token from cursor.com:\n" +
			"  1. Open https://cursor.com in your browser\n" +
			"  2. Open DevTools (F12 or Cmd+Option+I)\n" +
			"  3. Go to Application → Cookies → https://cursor.com\n" +
			"  4. Find one of: WorkosCursorSessionToken, __Secure-next-auth.session-token\n" +
			"  5. Copy its value",
		Placeholder: "paste token here",
		Validate:    provider.ValidateNotEmpty,
		CredPath:    config.CredentialPath("cursor", "session"),
		JSONKey:     "session_token",
	}
}

func init() {
	provider.Register(Cursor{})
}

type WebStrategy struct {
	HTTPTimeout float64
}

func (s *WebStrategy) IsAvailable() bool {
	path := config.CredentialPath("cursor", "session")
	if _, err := os.Stat(path); err == nil {
		return true
	}
	_, _, err := s.loadBrowserCookie()
	return err == nil
}

func (s *WebStrategy) Fetch(ctx context.Context) (fetch.FetchResult, error) {
	sessionToken, cookieName := s.loadSessionToken()
	if sessionToken == "" {
		return fetch.ResultFail("No session token found"), nil
	}

	client := httpclient.NewFromConfig(s.HTTPTimeout)
	sessionCookie := httpclient.WithCookie(cookieName, sessionToken)
	userAgent := httpclient.WithHeader("User-Agent", "Mozilla/5.0")

	// Fetch usage
	var usageResp UsageSummaryResponse
	resp, err := client.PostJSONCtx(ctx, usageSummaryURL, nil, &usageResp,
		sessionCookie, userAgent,
	)
	if err != nil {
		return fetch.ResultFail("Request failed: " + err.Error()), nil
	}

	if resp.StatusCode == 401 {
		return fetch.ResultFatal("Session token expired or invalid"), nil
	}
	if resp.StatusCode == 404 {
		return fetch.ResultFail("User not found or no active subscription"), nil
	}
	if resp.StatusCode != 200 {
		return fetch.ResultFail(fmt.Sprintf("Usage request failed: %d", resp.StatusCode)), nil
	}
	if resp.JSONErr != nil {
		return fetch.ResultFail(fmt.Sprintf("Invalid usage response: %v", resp.JSONErr)), nil
	}

	// Fetch user data
	var userResp *UserMeResponse
	var u UserMeResponse
	uResp, err := client.GetJSONCtx(ctx, authMeURL, &u,
		sessionCookie, userAgent,
	)
	if err == nil && uResp.StatusCode == 200 && uResp.JSONErr == nil {
		userResp = &u
	}

	snapshot := s.parseTypedResponse(usageResp, userResp)
	if snapshot == nil {
		return fetch.ResultFail("Failed to parse usage response"), nil
	}

	return fetch.ResultOK(*snapshot), nil
}

// loadSessionToken returns the session cookie value and the cookie name it
// was read under. A browser's own cookie jar is preferred over a stored
// credential file, since the browser session is what's actually authorized
// and a manually-copied token can go stale.
func (s *WebStrategy) loadSessionToken() (string, string) {
	if token, name, err := s.loadBrowserCookie(); err == nil {
		return token, name
	}

	path := config.CredentialPath("cursor", "session")
	data, err := config.ReadCredential(path)
	if err != nil || data == nil {
		return "", ""
	}
	var creds SessionCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return strings.TrimSpace(string(data)), "__Secure-next-auth.session-token"
	}
	if tok := creds.EffectiveToken(); tok != "" {
		return tok, "__Secure-next-auth.session-token"
	}
	return strings.TrimSpace(string(data)), "__Secure-next-auth.session-token"
}

func (s *WebStrategy) loadBrowserCookie() (string, string, error) {
	rec, err := browsercookie.FindCookie("cursor.com", sessionCookieNames)
	if err != nil {
		return "", "", err
	}
	return rec.Value, rec.Name, nil
}

func (s *WebStrategy) parseTypedResponse(usageResp UsageSummaryResponse, userResp *UserMeResponse) *models.UsageSnapshot {
	var primary *models.RateWindow
	var overage *models.OverageUsage

	resetsAt := usageResp.BillingCycleEndTime()

	if usageResp.IndividualUsage != nil && usageResp.IndividualUsage.Plan != nil {
		plan := usageResp.IndividualUsage.Plan
		var utilization float64

		if plan.TotalPercentUsed > 0 {
			utilization = plan.TotalPercentUsed
		} else if plan.Limit > 0 {
			utilization = (plan.Used / plan.Limit) * 100
		}

		w := models.NewRateWindow(utilization, "Plan Usage")
		w.ResetsAt = resetsAt
		primary = &w
	}

	if usageResp.IndividualUsage != nil && usageResp.IndividualUsage.OnDemand != nil {
		od := usageResp.IndividualUsage.OnDemand
		enabled := od.Enabled != nil && *od.Enabled
		if enabled && od.Limit != nil && *od.Limit > 0 {
			overage = &models.OverageUsage{
				Used:      od.Used / 100.0,
				Limit:     *od.Limit / 100.0,
				Currency:  "USD",
				IsEnabled: true,
			}
		}
	}

	// Identity: prefer membershipType from usage-summary, email from user/me response
	membershipType := usageResp.MembershipType
	var identity *models.ProviderIdentity
	if userResp != nil && (userResp.Email != "" || userResp.MembershipType != "") {
		email := userResp.Email
		plan := userResp.MembershipType
		if plan == "" {
			plan = membershipType
		}
		identity = &models.ProviderIdentity{Email: email, Plan: plan}
	} else if membershipType != "" {
		identity = &models.ProviderIdentity{Plan: membershipType}
	}

	if primary == nil {
		return nil
	}

	return &models.UsageSnapshot{
		ProviderID: "cursor",
		UpdatedAt:  time.Now().UTC(),
		Primary:    primary,
		Overage:    overage,
		Identity:   identity,
		Source:     "web",
	}
}
