package fetch

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/paceguard/paceguard/internal/models"
)

// ErrorKind classifies why a strategy attempt failed, so the pipeline can
// decide whether to fall back to the next strategy.
type ErrorKind string

const (
	ErrAuthRequired      ErrorKind = "authentication-required"
	ErrInvalidCredential ErrorKind = "invalid-credentials"
	ErrNoAvailStrategy   ErrorKind = "no-available-strategy"
	ErrNetwork           ErrorKind = "network-error"
	ErrParse             ErrorKind = "parse-error"
	ErrCommandFailed     ErrorKind = "command-failed"
	ErrAPI               ErrorKind = "api-error"
)

// ProviderFetchError is a typed fetch failure. Authentication-required and
// invalid-credentials never fall back to the next strategy — they indicate
// the credential itself is the problem, and trying another strategy with the
// same broken credential wastes a round trip. Every other kind may fall back.
type ProviderFetchError struct {
	Kind    ErrorKind
	Message string
}

func (e *ProviderFetchError) Error() string {
	return e.Message
}

func (e *ProviderFetchError) ShouldFallback() bool {
	switch e.Kind {
	case ErrAuthRequired, ErrInvalidCredential:
		return false
	default:
		return true
	}
}

func AuthRequired(msg string) *ProviderFetchError {
	return &ProviderFetchError{Kind: ErrAuthRequired, Message: msg}
}

func InvalidCredentials(msg string) *ProviderFetchError {
	return &ProviderFetchError{Kind: ErrInvalidCredential, Message: msg}
}

func NoAvailableStrategy(msg string) *ProviderFetchError {
	return &ProviderFetchError{Kind: ErrNoAvailStrategy, Message: msg}
}

func NetworkError(msg string) *ProviderFetchError {
	return &ProviderFetchError{Kind: ErrNetwork, Message: msg}
}

func ParseError(msg string) *ProviderFetchError {
	return &ProviderFetchError{Kind: ErrParse, Message: msg}
}

func CommandFailed(msg string) *ProviderFetchError {
	return &ProviderFetchError{Kind: ErrCommandFailed, Message: msg}
}

func APIError(msg string) *ProviderFetchError {
	return &ProviderFetchError{Kind: ErrAPI, Message: msg}
}

// Cache abstracts snapshot persistence so ExecutePipeline doesn't depend
// on the filesystem or config package directly.
type Cache interface {
	Save(snapshot models.UsageSnapshot) error
	Load(providerID string) *models.UsageSnapshot
}

// PipelineConfig holds the parameters ExecutePipeline needs.
type PipelineConfig struct {
	Timeout               time.Duration
	Cache                 Cache
	StaleThresholdMinutes int
}

// OrchestratorConfig holds parameters for FetchAllProviders and
// FetchEnabledProviders.
type OrchestratorConfig struct {
	MaxConcurrent int
	Pipeline      PipelineConfig
}

// FetchResult represents the outcome of a single strategy attempt.
type FetchResult struct {
	Success  bool
	Snapshot *models.UsageSnapshot
	Err      *ProviderFetchError
}

// Error returns the result's error message, or "" on success.
func (r FetchResult) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Message
}

// ShouldFallback reports whether the pipeline should try the next strategy
// after this failure.
func (r FetchResult) ShouldFallback() bool {
	if r.Err == nil {
		return false
	}
	return r.Err.ShouldFallback()
}

func ResultOK(snapshot models.UsageSnapshot) FetchResult {
	return FetchResult{Success: true, Snapshot: &snapshot}
}

// ResultFail records a failure that permits falling back to the next
// strategy. Defaults to a network-error kind, the most common case among
// callers that haven't classified the failure more specifically; use
// ResultFailKind for a precise classification.
func ResultFail(msg string) FetchResult {
	return FetchResult{Success: false, Err: NetworkError(msg)}
}

// ResultFailKind records a fallback-eligible failure with an explicit kind.
func ResultFailKind(err *ProviderFetchError) FetchResult {
	return FetchResult{Success: false, Err: err}
}

// ResultFatal records a failure that must NOT fall back — the credential
// itself, not the transport, is the problem. Defaults to invalid-credentials;
// use ResultFatalKind (e.g. with AuthRequired) for a precise classification.
func ResultFatal(msg string) FetchResult {
	return FetchResult{Success: false, Err: InvalidCredentials(msg)}
}

// ResultFatalKind records a non-fallback failure with an explicit kind.
func ResultFatalKind(err *ProviderFetchError) FetchResult {
	return FetchResult{Success: false, Err: err}
}

// FetchOutcome is the complete result of fetching from a provider.
type FetchOutcome struct {
	ProviderID string                `json:"provider_id"`
	Success    bool                  `json:"success"`
	Snapshot   *models.UsageSnapshot `json:"snapshot,omitempty"`
	Source     string                `json:"source,omitempty"`
	Error      string                `json:"error,omitempty"`
	Cached     bool                  `json:"cached"`
	Attempts   []FetchAttempt        `json:"attempts,omitempty"`
}

// FetchAttempt records one strategy's attempt within a pipeline run, in
// priority order, regardless of whether it succeeded.
type FetchAttempt struct {
	Strategy   string `json:"strategy"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	DurationMs int    `json:"duration_ms"`
}

// Strategy is the interface all fetch strategies must implement. Name
// identifies the strategy in attempt logs and as the snapshot Source
// (e.g. "oauth", "web", "cli").
type Strategy interface {
	Name() string
	IsAvailable() bool
	Fetch(ctx context.Context) (FetchResult, error)
}

// StrategyName returns a short identifier for a strategy derived from its
// type name (e.g. *claude.OAuthStrategy → "oauth"), for strategies that
// don't implement Name() themselves.
func StrategyName(s Strategy) string {
	t := reflect.TypeOf(s)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	name := t.Name()
	name = strings.TrimSuffix(name, "Strategy")
	if name == "" {
		return fmt.Sprintf("%T", s)
	}
	return strings.ToLower(name)
}
