package gemini

import (
	"testing"
)

func ptrFloat64(f float64) *float64 { return &f }

func TestParseTypedQuotaResponse_FullResponse(t *testing.T) {
	quota := QuotaResponse{
		Buckets: []QuotaBucket{
			{ModelID: "gemini-2.0-flash", RemainingFraction: ptrFloat64(0.75), ResetTime: "2025-02-20T00:00:00Z", TokenType: "REQUESTS"},
			{ModelID: "gemini-1.5-pro", RemainingFraction: ptrFloat64(0.5), ResetTime: "2025-02-20T00:00:00Z", TokenType: "REQUESTS"},
		},
	}
	codeAssist := &CodeAssistResponse{
		CurrentTier: &CodeAssistTier{
			ID:   "standard-tier",
			Name: "Gemini Code Assist",
		},
	}

	s := OAuthStrategy{}
	snapshot := s.parseTypedQuotaResponse(quota, codeAssist)

	if snapshot == nil {
		t.Fatal("expected non-nil snapshot")
	}
	if snapshot.ProviderID != "gemini" {
		t.Errorf("provider_id = %q, want %q", snapshot.ProviderID, "gemini")
	}
	if snapshot.Source != "oauth" {
		t.Errorf("source = %q, want %q", snapshot.Source, "oauth")
	}

	// Worst-case window (lowest remaining fraction == highest utilization) first.
	if snapshot.Primary == nil {
		t.Fatal("expected primary window")
	}
	if snapshot.Primary.UsedPercent != 50 {
		t.Errorf("primary used_percent = %v, want 50", snapshot.Primary.UsedPercent)
	}
	if snapshot.Primary.Model != "gemini-1.5-pro" {
		t.Errorf("primary model = %q, want %q", snapshot.Primary.Model, "gemini-1.5-pro")
	}
	if snapshot.Primary.ResetsAt == nil {
		t.Fatal("expected resets_at")
	}

	if snapshot.Secondary == nil {
		t.Fatal("expected secondary window")
	}
	if snapshot.Secondary.UsedPercent != 25 {
		t.Errorf("secondary used_percent = %v, want 25", snapshot.Secondary.UsedPercent)
	}
	if snapshot.Secondary.Model != "gemini-2.0-flash" {
		t.Errorf("secondary model = %q, want %q", snapshot.Secondary.Model, "gemini-2.0-flash")
	}

	if snapshot.Identity == nil {
		t.Fatal("expected identity")
	}
	if snapshot.Identity.Plan != "Gemini Code Assist" {
		t.Errorf("plan = %q, want %q", snapshot.Identity.Plan, "Gemini Code Assist")
	}
}

func TestParseTypedQuotaResponse_EmptyBuckets(t *testing.T) {
	quota := QuotaResponse{}

	s := OAuthStrategy{}
	snapshot := s.parseTypedQuotaResponse(quota, nil)

	if snapshot == nil {
		t.Fatal("expected non-nil snapshot (fallback daily window)")
	}
	if snapshot.Primary == nil {
		t.Fatal("expected primary window")
	}
	if snapshot.Primary.Label != "Daily" {
		t.Errorf("label = %q, want %q", snapshot.Primary.Label, "Daily")
	}
	if snapshot.Primary.UsedPercent != 0 {
		t.Errorf("used_percent = %v, want 0", snapshot.Primary.UsedPercent)
	}
	if snapshot.Secondary != nil {
		t.Error("expected nil secondary window")
	}
}

func TestParseTypedQuotaResponse_NoCodeAssist(t *testing.T) {
	quota := QuotaResponse{
		Buckets: []QuotaBucket{
			{ModelID: "gemini-2.0-flash", RemainingFraction: ptrFloat64(1.0)},
		},
	}

	s := OAuthStrategy{}
	snapshot := s.parseTypedQuotaResponse(quota, nil)

	if snapshot == nil {
		t.Fatal("expected non-nil snapshot")
	}
	if snapshot.Identity != nil {
		t.Error("expected nil identity when no code assist response")
	}
}

func TestParseTypedQuotaResponse_EmptyCurrentTier(t *testing.T) {
	quota := QuotaResponse{
		Buckets: []QuotaBucket{
			{ModelID: "gemini-2.0-flash", RemainingFraction: ptrFloat64(1.0)},
		},
	}
	codeAssist := &CodeAssistResponse{}

	s := OAuthStrategy{}
	snapshot := s.parseTypedQuotaResponse(quota, codeAssist)

	if snapshot == nil {
		t.Fatal("expected non-nil snapshot")
	}
	if snapshot.Identity != nil {
		t.Error("expected nil identity when currentTier is nil")
	}
}

func TestParseTypedQuotaResponse_EmptyTierName(t *testing.T) {
	quota := QuotaResponse{
		Buckets: []QuotaBucket{
			{ModelID: "gemini-2.0-flash", RemainingFraction: ptrFloat64(1.0)},
		},
	}
	codeAssist := &CodeAssistResponse{
		CurrentTier: &CodeAssistTier{ID: "standard-tier"},
	}

	s := OAuthStrategy{}
	snapshot := s.parseTypedQuotaResponse(quota, codeAssist)

	if snapshot == nil {
		t.Fatal("expected non-nil snapshot")
	}
	if snapshot.Identity != nil {
		t.Error("expected nil identity when tier name is empty")
	}
}

func TestParseTypedQuotaResponse_ModelNameParsing(t *testing.T) {
	quota := QuotaResponse{
		Buckets: []QuotaBucket{
			{ModelID: "gemini-2.0-flash", RemainingFraction: ptrFloat64(1.0)},
		},
	}

	s := OAuthStrategy{}
	snapshot := s.parseTypedQuotaResponse(quota, nil)

	if snapshot == nil {
		t.Fatal("expected non-nil snapshot")
	}
	if snapshot.Primary.Model != "gemini-2.0-flash" {
		t.Errorf("model = %q, want %q", snapshot.Primary.Model, "gemini-2.0-flash")
	}
	if snapshot.Primary.Label == "" {
		t.Error("expected non-empty label")
	}
}

func TestParseTypedQuotaResponse_ModelNameWithPrefix(t *testing.T) {
	// The live API returns model IDs without the "models/" prefix,
	// but the code still handles it gracefully if present.
	quota := QuotaResponse{
		Buckets: []QuotaBucket{
			{ModelID: "models/gemini-2.0-flash", RemainingFraction: ptrFloat64(1.0)},
		},
	}

	s := OAuthStrategy{}
	snapshot := s.parseTypedQuotaResponse(quota, nil)

	if snapshot == nil {
		t.Fatal("expected non-nil snapshot")
	}
	if snapshot.Primary.Model != "gemini-2.0-flash" {
		t.Errorf("model = %q, want %q", snapshot.Primary.Model, "gemini-2.0-flash")
	}
}

func TestParseTypedQuotaResponse_MoreThanThreeModels_OverflowToMetadata(t *testing.T) {
	// Only the three worst-case (highest utilization) windows get a slot;
	// the rest are recorded in Metadata instead of being dropped.
	quota := QuotaResponse{
		Buckets: []QuotaBucket{
			{ModelID: "gemini-a", RemainingFraction: ptrFloat64(0.9)}, // 10% used
			{ModelID: "gemini-b", RemainingFraction: ptrFloat64(0.1)}, // 90% used
			{ModelID: "gemini-c", RemainingFraction: ptrFloat64(0.5)}, // 50% used
			{ModelID: "gemini-d", RemainingFraction: ptrFloat64(0.7)}, // 30% used
		},
	}

	s := OAuthStrategy{}
	snapshot := s.parseTypedQuotaResponse(quota, nil)

	if snapshot == nil {
		t.Fatal("expected non-nil snapshot")
	}
	if snapshot.Primary == nil || snapshot.Primary.Model != "gemini-b" {
		t.Fatalf("primary = %+v, want gemini-b", snapshot.Primary)
	}
	if snapshot.Secondary == nil || snapshot.Secondary.Model != "gemini-c" {
		t.Fatalf("secondary = %+v, want gemini-c", snapshot.Secondary)
	}
	if snapshot.Tertiary == nil || snapshot.Tertiary.Model != "gemini-d" {
		t.Fatalf("tertiary = %+v, want gemini-d", snapshot.Tertiary)
	}
	if snapshot.Metadata["model:gemini-a"] == "" {
		t.Error("expected overflow model recorded in metadata")
	}
}

func TestParseTypedQuotaResponse_VertexSuffixModels(t *testing.T) {
	// The live API returns vertex variants with _vertex suffix
	quota := QuotaResponse{
		Buckets: []QuotaBucket{
			{ModelID: "gemini-2.5-flash", RemainingFraction: ptrFloat64(0.8), TokenType: "REQUESTS"},
			{ModelID: "gemini-2.5-flash_vertex", RemainingFraction: ptrFloat64(0.9), TokenType: "REQUESTS"},
		},
	}

	s := OAuthStrategy{}
	snapshot := s.parseTypedQuotaResponse(quota, nil)

	if snapshot == nil {
		t.Fatal("expected non-nil snapshot")
	}
	if snapshot.Primary.Model != "gemini-2.5-flash" {
		t.Errorf("primary model = %q, want %q", snapshot.Primary.Model, "gemini-2.5-flash")
	}
	if snapshot.Secondary.Model != "gemini-2.5-flash_vertex" {
		t.Errorf("secondary model = %q, want %q", snapshot.Secondary.Model, "gemini-2.5-flash_vertex")
	}
}
