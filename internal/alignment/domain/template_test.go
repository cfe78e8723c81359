package domain

import (
	"strings"
	"testing"
)

func TestParseQuestionKind(t *testing.T) {
	valid := []string{"short_text", "long_text", "single_choice", "multi_choice", "number", "scale"}
	for _, value := range valid {
		if _, ok := ParseQuestionKind(value); !ok {
			t.Errorf("ParseQuestionKind(%q) should succeed", value)
		}
	}
	for _, value := range []string{"", "text", "SHORT_TEXT", "boolean"} {
		if _, ok := ParseQuestionKind(value); ok {
			t.Errorf("ParseQuestionKind(%q) should fail", value)
		}
	}
}

func TestBuiltinTemplatesAreValid(t *testing.T) {
	templates := BuiltinTemplates()
	if len(templates) == 0 {
		t.Fatal("no builtin templates")
	}

	ids := make(map[string]bool, len(templates))
	for _, template := range templates {
		if err := template.Validate(); err != nil {
			t.Errorf("template %s invalid: %v", template.ID, err)
		}
		if ids[template.ID] {
			t.Errorf("duplicate template id %s", template.ID)
		}
		ids[template.ID] = true
	}
}

func TestTemplateQuestionLookup(t *testing.T) {
	template := BuiltinTemplates()[0]

	question, ok := template.Question("pf-goals")
	if !ok {
		t.Fatal("pf-goals not found")
	}
	if question.Kind != KindLongText || !question.Required {
		t.Errorf("unexpected question: %+v", question)
	}

	if _, ok := template.Question("nope"); ok {
		t.Error("lookup of unknown id should fail")
	}
}

func TestTemplateValidate(t *testing.T) {
	base := func() Template {
		return Template{
			ID:   "t",
			Name: "T",
			Questions: []Question{
				{ID: "q1", Prompt: "One?", Kind: KindShortText, Required: true},
				{ID: "q2", Prompt: "Two?", Kind: KindSingleChoice, Options: []string{"a", "b"}},
			},
		}
	}

	tests := []struct {
		name     string
		mutate   func(*Template)
		wantPart string
	}{
		{name: "valid", mutate: func(*Template) {}},
		{name: "missing id", mutate: func(tpl *Template) { tpl.ID = " " }, wantPart: "id is required"},
		{name: "missing name", mutate: func(tpl *Template) { tpl.Name = "" }, wantPart: "name is required"},
		{name: "no questions", mutate: func(tpl *Template) { tpl.Questions = nil }, wantPart: "no questions"},
		{name: "duplicate question id", mutate: func(tpl *Template) { tpl.Questions[1].ID = "q1" }, wantPart: "repeats question id"},
		{name: "empty prompt", mutate: func(tpl *Template) { tpl.Questions[0].Prompt = "  " }, wantPart: "no prompt"},
		{name: "choice with one option", mutate: func(tpl *Template) { tpl.Questions[1].Options = []string{"a"} }, wantPart: "at least two options"},
		{name: "empty scale range", mutate: func(tpl *Template) {
			tpl.Questions[0] = Question{ID: "q1", Prompt: "One?", Kind: KindScale, ScaleMin: 5, ScaleMax: 5}
		}, wantPart: "empty scale range"},
		{name: "unknown kind", mutate: func(tpl *Template) { tpl.Questions[0].Kind = "boolean" }, wantPart: "unknown kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			template := base()
			tt.mutate(&template)
			err := template.Validate()
			if tt.wantPart == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantPart) {
				t.Fatalf("error %q does not mention %q", err, tt.wantPart)
			}
		})
	}
}
