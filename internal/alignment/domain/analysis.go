package domain

import (
	"fmt"
	"strings"
	"time"
)

// Severity grades how sharply two positions disagree.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityModerate Severity = "moderate"
	SeverityMinor    Severity = "minor"
)

// ParseSeverity maps a wire value to a Severity.
func ParseSeverity(value string) (Severity, bool) {
	switch Severity(value) {
	case SeverityCritical, SeverityModerate, SeverityMinor:
		return Severity(value), true
	default:
		return "", false
	}
}

// EngineSource records which provider produced an analysis.
type EngineSource string

const (
	// EngineSourceOpenAI marks output from the primary reasoning engine.
	EngineSourceOpenAI EngineSource = "openai"
	// EngineSourceFallback marks output from the curated local fallback.
	EngineSourceFallback EngineSource = "fallback"
)

// AlignedItem is one question both parties already agree on.
type AlignedItem struct {
	QuestionID  string `json:"questionId"`
	Description string `json:"description"`
	SharedValue string `json:"sharedValue"`
}

// Conflict is one flagged disagreement between the two positions.
type Conflict struct {
	ID                  string   `json:"id"`
	QuestionID          string   `json:"questionId"`
	Severity            Severity `json:"severity"`
	Description         string   `json:"description"`
	PersonAPosition     string   `json:"personAPosition"`
	PersonBPosition     string   `json:"personBPosition"`
	SuggestedResolution string   `json:"suggestedResolution,omitempty"`
}

// Report is the structured comparison of two answer sets. An empty
// Conflicts slice is a successful zero-conflict outcome, never a
// failure signal.
type Report struct {
	AlignedItems      []AlignedItem `json:"alignedItems"`
	Conflicts         []Conflict    `json:"conflicts"`
	HiddenAssumptions []string      `json:"hiddenAssumptions"`
	Gaps              []string      `json:"gaps"`
	Imbalances        []string      `json:"imbalances"`
	Score             int           `json:"score"`
}

// NormalizeReport validates report shape and fills in stable conflict
// ids where the engine omitted them. Engines occasionally return
// conflicts without ids; resolution submission needs every conflict
// addressable, so gaps are numbered c1, c2, ... in report order.
func NormalizeReport(report Report) (Report, error) {
	if report.Score < 0 || report.Score > 100 {
		return Report{}, fmt.Errorf("score %d outside 0..100", report.Score)
	}
	used := make(map[string]bool, len(report.Conflicts))
	for i := range report.Conflicts {
		conflict := &report.Conflicts[i]
		conflict.ID = strings.TrimSpace(conflict.ID)
		if conflict.ID != "" {
			if used[conflict.ID] {
				return Report{}, fmt.Errorf("duplicate conflict id %s", conflict.ID)
			}
			used[conflict.ID] = true
		}
		if _, ok := ParseSeverity(string(conflict.Severity)); !ok {
			return Report{}, fmt.Errorf("conflict %d has unknown severity %q", i, conflict.Severity)
		}
		if strings.TrimSpace(conflict.QuestionID) == "" {
			return Report{}, fmt.Errorf("conflict %d has no question id", i)
		}
	}
	next := 1
	for i := range report.Conflicts {
		if report.Conflicts[i].ID != "" {
			continue
		}
		for {
			candidate := fmt.Sprintf("c%d", next)
			next++
			if !used[candidate] {
				report.Conflicts[i].ID = candidate
				used[candidate] = true
				break
			}
		}
	}
	return report, nil
}

// Analysis is one immutable engine comparison for one round.
type Analysis struct {
	ID          string
	AlignmentID string
	Round       int
	Report      Report
	Engine      EngineSource
	CreatedAt   time.Time
}

// HasConflicts reports whether the resolution loop applies to this round.
func (a Analysis) HasConflicts() bool {
	return len(a.Report.Conflicts) > 0
}

// ConflictIDs returns the ids resolutions must cover, in report order.
func (a Analysis) ConflictIDs() []string {
	ids := make([]string, len(a.Report.Conflicts))
	for i, conflict := range a.Report.Conflicts {
		ids[i] = conflict.ID
	}
	return ids
}

// Conflict returns the conflict with the given id.
func (a Analysis) Conflict(id string) (Conflict, bool) {
	for _, conflict := range a.Report.Conflicts {
		if conflict.ID == id {
			return conflict, true
		}
	}
	return Conflict{}, false
}
