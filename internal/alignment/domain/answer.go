package domain

import (
	"fmt"
	"strings"

	apperrors "github.com/concordhq/concord/internal/platform/errors"
)

// Answer is the tagged union of question responses. Kind selects which
// value field is meaningful; the rest stay zero.
type Answer struct {
	Kind    QuestionKind `json:"kind"`
	Text    string       `json:"text,omitempty"`
	Option  string       `json:"option,omitempty"`
	Options []string     `json:"options,omitempty"`
	Number  *float64     `json:"number,omitempty"`
	Scale   *int         `json:"scale,omitempty"`
}

// TextAnswer builds a long-text answer, the form merged positions take.
func TextAnswer(text string) Answer {
	return Answer{Kind: KindLongText, Text: text}
}

// Display renders the answer's value as prose for analysis prompts and
// conflict positions.
func (a Answer) Display() string {
	switch a.Kind {
	case KindShortText, KindLongText:
		return a.Text
	case KindSingleChoice:
		return a.Option
	case KindMultiChoice:
		return strings.Join(a.Options, ", ")
	case KindNumber:
		if a.Number == nil {
			return ""
		}
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", *a.Number), "0"), ".")
	case KindScale:
		if a.Scale == nil {
			return ""
		}
		return fmt.Sprintf("%d", *a.Scale)
	default:
		return ""
	}
}

// ValidateAnswer checks one answer against its question definition.
func ValidateAnswer(q Question, a Answer) error {
	if a.Kind != q.Kind {
		return apperrors.WithMetadata(apperrors.CodeAnswerInvalidKind,
			"answer kind does not match question kind", map[string]string{
				"QuestionID": q.ID,
				"Expected":   string(q.Kind),
				"Got":        string(a.Kind),
			})
	}
	invalid := func(reason string) error {
		return apperrors.WithMetadata(apperrors.CodeAnswerInvalidValue,
			"answer value is invalid", map[string]string{
				"QuestionID": q.ID,
				"Reason":     reason,
			})
	}
	switch q.Kind {
	case KindShortText, KindLongText:
		if strings.TrimSpace(a.Text) == "" {
			return invalid("text is empty")
		}
	case KindSingleChoice:
		if !containsOption(q.Options, a.Option) {
			return invalid("option is not in the question's option list")
		}
	case KindMultiChoice:
		if len(a.Options) == 0 {
			return invalid("no options selected")
		}
		seen := make(map[string]bool, len(a.Options))
		for _, opt := range a.Options {
			if !containsOption(q.Options, opt) {
				return invalid("option is not in the question's option list")
			}
			if seen[opt] {
				return invalid("option selected twice")
			}
			seen[opt] = true
		}
	case KindNumber:
		if a.Number == nil {
			return invalid("number is missing")
		}
	case KindScale:
		if a.Scale == nil {
			return invalid("scale value is missing")
		}
		if *a.Scale < q.ScaleMin || *a.Scale > q.ScaleMax {
			return invalid(fmt.Sprintf("scale value outside %d..%d", q.ScaleMin, q.ScaleMax))
		}
	}
	return nil
}

// ValidateAnswers checks an answer set against the template. Draft
// saves pass requireComplete=false so partial sets are accepted;
// submission requires every required question answered.
func ValidateAnswers(t Template, answers map[string]Answer, requireComplete bool) error {
	for questionID, answer := range answers {
		question, ok := t.Question(questionID)
		if !ok {
			return apperrors.WithMetadata(apperrors.CodeAnswerUnknownQuestion,
				"answer references a question outside the template", map[string]string{
					"QuestionID": questionID,
					"TemplateID": t.ID,
				})
		}
		if err := ValidateAnswer(question, answer); err != nil {
			return err
		}
	}
	if !requireComplete {
		return nil
	}
	for _, question := range t.Questions {
		if !question.Required {
			continue
		}
		if _, ok := answers[question.ID]; !ok {
			return apperrors.WithMetadata(apperrors.CodeAnswerMissingRequired,
				"required question is unanswered", map[string]string{
					"QuestionID": question.ID,
				})
		}
	}
	return nil
}

func containsOption(options []string, value string) bool {
	for _, opt := range options {
		if opt == value {
			return true
		}
	}
	return false
}
