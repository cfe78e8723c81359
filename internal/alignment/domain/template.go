package domain

import (
	"fmt"
	"strings"
)

// QuestionKind discriminates the typed answer a question accepts.
type QuestionKind string

const (
	KindUnspecified  QuestionKind = ""
	KindShortText    QuestionKind = "short_text"
	KindLongText     QuestionKind = "long_text"
	KindSingleChoice QuestionKind = "single_choice"
	KindMultiChoice  QuestionKind = "multi_choice"
	KindNumber       QuestionKind = "number"
	KindScale        QuestionKind = "scale"
)

// ParseQuestionKind maps a wire value to a QuestionKind.
func ParseQuestionKind(value string) (QuestionKind, bool) {
	switch QuestionKind(value) {
	case KindShortText, KindLongText, KindSingleChoice, KindMultiChoice, KindNumber, KindScale:
		return QuestionKind(value), true
	default:
		return KindUnspecified, false
	}
}

// Question is one prompt in a template's ordered question set.
type Question struct {
	ID       string       `json:"id"`
	Prompt   string       `json:"prompt"`
	Kind     QuestionKind `json:"kind"`
	Options  []string     `json:"options,omitempty"`
	ScaleMin int          `json:"scaleMin,omitempty"`
	ScaleMax int          `json:"scaleMax,omitempty"`
	Required bool         `json:"required"`
}

// Template is a named, ordered question set both parties answer.
type Template struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}

// Question returns the question with the given id.
func (t Template) Question(id string) (Question, bool) {
	for _, q := range t.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Validate checks template integrity: non-empty identity, unique
// question ids, and per-kind configuration.
func (t Template) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("template id is required")
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("template name is required")
	}
	if len(t.Questions) == 0 {
		return fmt.Errorf("template %s has no questions", t.ID)
	}
	seen := make(map[string]bool, len(t.Questions))
	for _, q := range t.Questions {
		if strings.TrimSpace(q.ID) == "" {
			return fmt.Errorf("template %s has a question without an id", t.ID)
		}
		if seen[q.ID] {
			return fmt.Errorf("template %s repeats question id %s", t.ID, q.ID)
		}
		seen[q.ID] = true
		if strings.TrimSpace(q.Prompt) == "" {
			return fmt.Errorf("question %s has no prompt", q.ID)
		}
		switch q.Kind {
		case KindShortText, KindLongText, KindNumber:
		case KindSingleChoice, KindMultiChoice:
			if len(q.Options) < 2 {
				return fmt.Errorf("question %s needs at least two options", q.ID)
			}
		case KindScale:
			if q.ScaleMin >= q.ScaleMax {
				return fmt.Errorf("question %s has an empty scale range", q.ID)
			}
		default:
			return fmt.Errorf("question %s has unknown kind %q", q.ID, q.Kind)
		}
	}
	return nil
}

// BuiltinTemplates returns the question sets seeded at startup.
func BuiltinTemplates() []Template {
	return []Template{
		{
			ID:   "partnership-foundations",
			Name: "Partnership Foundations",
			Questions: []Question{
				{ID: "pf-goals", Prompt: "What are your top goals for this partnership over the next year?", Kind: KindLongText, Required: true},
				{ID: "pf-values", Prompt: "Which value matters most to you in a shared decision?", Kind: KindSingleChoice, Options: []string{"transparency", "autonomy", "stability", "growth"}, Required: true},
				{ID: "pf-decision-style", Prompt: "Which decision areas must always be joint decisions?", Kind: KindMultiChoice, Options: []string{"finances", "housing", "career moves", "family", "health"}, Required: true},
				{ID: "pf-weekly-hours", Prompt: "How many hours per week can you commit to shared responsibilities?", Kind: KindNumber, Required: true},
				{ID: "pf-conflict-comfort", Prompt: "How comfortable are you raising disagreements directly?", Kind: KindScale, ScaleMin: 1, ScaleMax: 10, Required: true},
				{ID: "pf-dealbreaker", Prompt: "Name one non-negotiable for you.", Kind: KindShortText, Required: true},
				{ID: "pf-notes", Prompt: "Anything else your partner should know before you align?", Kind: KindLongText, Required: false},
			},
		},
		{
			ID:   "household-finances",
			Name: "Household Finances",
			Questions: []Question{
				{ID: "hf-split", Prompt: "How should recurring expenses be split?", Kind: KindSingleChoice, Options: []string{"50/50", "proportional to income", "single payer", "item by item"}, Required: true},
				{ID: "hf-shared-accounts", Prompt: "Which accounts should be shared?", Kind: KindMultiChoice, Options: []string{"checking", "savings", "investments", "none"}, Required: true},
				{ID: "hf-monthly-budget", Prompt: "What monthly discretionary budget feels right for each person?", Kind: KindNumber, Required: true},
				{ID: "hf-risk", Prompt: "How much investment risk are you comfortable with?", Kind: KindScale, ScaleMin: 1, ScaleMax: 5, Required: true},
				{ID: "hf-priority", Prompt: "What is the single most important financial priority right now?", Kind: KindShortText, Required: true},
				{ID: "hf-history", Prompt: "Describe any financial obligations or history your partner should understand.", Kind: KindLongText, Required: false},
			},
		},
	}
}
