package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type Status string

const (
	StatusReject      Status = "수임 불가"
	StatusConditional Status = "안전장치 적용 시 수임 가능"
	StatusAccept      Status = "수임 가능"
)

var statusKeywords = []struct {
	status   Status
	keywords []string
}{
	{StatusReject, []string{"불가", "reject", "prohibited"}},
	{StatusConditional, []string{"조건부", "conditional", "안전장치"}},
	{StatusAccept, []string{"가능", "acceptable", "ok"}},
}

// NormalizeStatus maps free-text model output onto one of the three fixed
// categories. Text matching none of them is returned unchanged.
func NormalizeStatus(s string) Status {
	lower := strings.ToLower(strings.TrimSpace(s))
	for _, group := range statusKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.status
			}
		}
	}
	return Status(s)
}

func (s Status) Known() bool {
	switch s {
	case StatusReject, StatusConditional, StatusAccept:
		return true
	}
	return false
}

type VulnerableConnection struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
	Reason   string `json:"reason,omitempty"`
}

type AnalysisResult struct {
	Status                Status                 `json:"status"`
	RiskLevel             string                 `json:"risk_level"`
	KeyIssues             []string               `json:"key_issues"`
	LegalReferences       []LegalReference       `json:"legal_references"`
	Considerations        string                 `json:"considerations"`
	SuggestedSafeguards   []string               `json:"suggested_safeguards"`
	VulnerableConnections []VulnerableConnection `json:"vulnerable_connections"`
}

func (a *AnalysisResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		Status                string                 `json:"status"`
		RiskLevel             string                 `json:"risk_level"`
		KeyIssues             []string               `json:"key_issues"`
		LegalReferences       json.RawMessage        `json:"legal_references"`
		Considerations        string                 `json:"considerations"`
		SuggestedSafeguards   []string               `json:"suggested_safeguards"`
		VulnerableConnections []VulnerableConnection `json:"vulnerable_connections"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	refs, err := DecodeCitations(raw.LegalReferences)
	if err != nil {
		return fmt.Errorf("decoding legal_references: %w", err)
	}

	*a = AnalysisResult{
		Status:                NormalizeStatus(raw.Status),
		RiskLevel:             raw.RiskLevel,
		KeyIssues:             raw.KeyIssues,
		LegalReferences:       refs,
		Considerations:        raw.Considerations,
		SuggestedSafeguards:   raw.SuggestedSafeguards,
		VulnerableConnections: raw.VulnerableConnections,
	}
	a.fillEmpty()
	return nil
}

func (a AnalysisResult) MarshalJSON() ([]byte, error) {
	type plain AnalysisResult
	out := a.Clone()
	return json.Marshal(plain(out))
}

func (a AnalysisResult) Validate() error {
	if strings.TrimSpace(string(a.Status)) == "" {
		return &ValidationError{Field: "status", Message: "status is required"}
	}
	return nil
}

// Clone returns a deep copy with nil lists replaced by empty ones.
func (a AnalysisResult) Clone() AnalysisResult {
	out := a
	out.KeyIssues = append([]string(nil), a.KeyIssues...)
	out.LegalReferences = make([]LegalReference, len(a.LegalReferences))
	for i, ref := range a.LegalReferences {
		out.LegalReferences[i] = ref.clone()
	}
	out.SuggestedSafeguards = append([]string(nil), a.SuggestedSafeguards...)
	out.VulnerableConnections = append([]VulnerableConnection(nil), a.VulnerableConnections...)
	out.fillEmpty()
	return out
}

func (a *AnalysisResult) fillEmpty() {
	if a.KeyIssues == nil {
		a.KeyIssues = []string{}
	}
	if a.LegalReferences == nil {
		a.LegalReferences = []LegalReference{}
	}
	if a.SuggestedSafeguards == nil {
		a.SuggestedSafeguards = []string{}
	}
	if a.VulnerableConnections == nil {
		a.VulnerableConnections = []VulnerableConnection{}
	}
}

// Report is the assembled response of a full review.
type Report struct {
	Fingerprint string         `json:"fingerprint"`
	Graph       Graph          `json:"rel_map"`
	Analysis    AnalysisResult `json:"analysis"`
	Diagram     string         `json:"diagram_code"`
}

func trimJSON(raw json.RawMessage) []byte {
	return bytes.TrimSpace(raw)
}
