package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/concordhq/concord/internal/alignment/domain"
)

// CuratedFallback compares the two answer sets with deterministic
// rules so a round can still complete while the primary engine is
// down. It never speculates: conflicts come from literal
// disagreement, gaps from unanswered questions, and the score from
// the share of aligned answers.
type CuratedFallback struct{}

// Analyze builds a report from rule-based comparison.
func (CuratedFallback) Analyze(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := validateRequest(req); err != nil {
		return Result{}, err
	}

	report := domain.Report{
		AlignedItems:      []domain.AlignedItem{},
		Conflicts:         []domain.Conflict{},
		HiddenAssumptions: []string{},
		Gaps:              []string{},
		Imbalances:        []string{},
	}

	answeredA, answeredB := 0, 0
	compared, aligned := 0, 0
	for _, question := range req.Questions {
		answerA, okA := answeredValue(req.PersonA.Answers, question.ID)
		answerB, okB := answeredValue(req.PersonB.Answers, question.ID)
		if okA {
			answeredA++
		}
		if okB {
			answeredB++
		}
		switch {
		case !okA && !okB:
			report.Gaps = append(report.Gaps, fmt.Sprintf("Neither participant answered %q.", question.Prompt))
			continue
		case !okA:
			report.Gaps = append(report.Gaps, fmt.Sprintf("Participant A has not answered %q.", question.Prompt))
			continue
		case !okB:
			report.Gaps = append(report.Gaps, fmt.Sprintf("Participant B has not answered %q.", question.Prompt))
			continue
		}
		compared++
		if answersMatch(question, answerA, answerB) {
			aligned++
			report.AlignedItems = append(report.AlignedItems, domain.AlignedItem{
				QuestionID:  question.ID,
				Description: fmt.Sprintf("Both participants gave the same answer to %q.", question.Prompt),
				SharedValue: answerA.Display(),
			})
			continue
		}
		report.Conflicts = append(report.Conflicts, domain.Conflict{
			QuestionID:          question.ID,
			Severity:            conflictSeverity(question, answerA, answerB),
			Description:         fmt.Sprintf("The answers to %q do not match.", question.Prompt),
			PersonAPosition:     answerA.Display(),
			PersonBPosition:     answerB.Display(),
			SuggestedResolution: suggestedResolution(question),
		})
	}

	if compared > 0 {
		report.Score = aligned * 100 / compared
	}
	if diff := answeredA - answeredB; diff >= 2 || diff <= -2 {
		report.Imbalances = append(report.Imbalances, fmt.Sprintf(
			"Participant A answered %d of %d questions; Participant B answered %d.",
			answeredA, len(req.Questions), answeredB))
	}

	normalized, err := domain.NormalizeReport(report)
	if err != nil {
		return Result{}, fmt.Errorf("normalize fallback report: %w", err)
	}
	return Result{Report: normalized, Source: domain.EngineSourceFallback}, nil
}

// answeredValue returns the answer when it carries a non-empty value.
func answeredValue(answers map[string]domain.Answer, questionID string) (domain.Answer, bool) {
	answer, ok := answers[questionID]
	if !ok {
		return domain.Answer{}, false
	}
	if strings.TrimSpace(answer.Display()) == "" {
		return domain.Answer{}, false
	}
	return answer, true
}

// answersMatch compares two answers by value. Multi-choice answers
// match as sets, numeric answers by value, text case-insensitively.
func answersMatch(question domain.Question, a, b domain.Answer) bool {
	switch question.Kind {
	case domain.KindMultiChoice:
		return sameOptionSet(a.Options, b.Options)
	case domain.KindNumber:
		return a.Number != nil && b.Number != nil && *a.Number == *b.Number
	case domain.KindScale:
		return a.Scale != nil && b.Scale != nil && *a.Scale == *b.Scale
	default:
		return strings.EqualFold(strings.TrimSpace(a.Display()), strings.TrimSpace(b.Display()))
	}
}

func sameOptionSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	remaining := make(map[string]int, len(a))
	for _, option := range a {
		remaining[strings.TrimSpace(option)]++
	}
	for _, option := range b {
		key := strings.TrimSpace(option)
		if remaining[key] == 0 {
			return false
		}
		remaining[key]--
	}
	return true
}

// conflictSeverity grades a mismatch from the question's shape alone.
// Free-text differences stay minor; the rules cannot judge wording.
func conflictSeverity(question domain.Question, a, b domain.Answer) domain.Severity {
	switch question.Kind {
	case domain.KindSingleChoice, domain.KindMultiChoice, domain.KindNumber:
		if question.Required {
			return domain.SeverityCritical
		}
		return domain.SeverityModerate
	case domain.KindScale:
		if a.Scale == nil || b.Scale == nil || question.ScaleMax <= question.ScaleMin {
			return domain.SeverityMinor
		}
		diff := *a.Scale - *b.Scale
		if diff < 0 {
			diff = -diff
		}
		if diff*2 < question.ScaleMax-question.ScaleMin {
			return domain.SeverityMinor
		}
		if question.Required {
			return domain.SeverityCritical
		}
		return domain.SeverityModerate
	default:
		return domain.SeverityMinor
	}
}

func suggestedResolution(question domain.Question) string {
	switch question.Kind {
	case domain.KindSingleChoice, domain.KindMultiChoice:
		return "Walk through the listed options together and agree on one position."
	case domain.KindNumber, domain.KindScale:
		return "Agree on a single value between the two stated answers."
	default:
		return ""
	}
}
