package i18n

import (
	"strings"
	"testing"
)

func TestGetCatalogFallback(t *testing.T) {
	base := GetCatalog("en-US")
	if base == nil {
		t.Fatal("expected base catalog")
	}
	fallback := GetCatalog("missing-locale")
	if fallback != base {
		t.Fatal("expected fallback to en-US catalog")
	}
	if GetCatalog("") != base {
		t.Fatal("expected empty locale to resolve to en-US catalog")
	}
}

func TestGetCatalogLanguageMatch(t *testing.T) {
	brazilian := GetCatalog("pt-BR")
	if brazilian == nil || brazilian.Locale() != "pt-BR" {
		t.Fatalf("brazilian catalog locale = %v, want pt-BR", brazilian)
	}
	if GetCatalog("pt") != brazilian {
		t.Fatal("expected pt to resolve to pt-BR catalog")
	}
	if GetCatalog("pt-PT") != brazilian {
		t.Fatal("expected pt-PT to resolve to pt-BR catalog")
	}
}

func TestFormatRendersMetadata(t *testing.T) {
	cat := GetCatalog("en-US")
	got := cat.Format(CodeAlignmentInvalidStatusTransition, map[string]string{
		"FromStatus": "draft",
		"ToStatus":   "complete",
	})
	if !strings.Contains(got, "draft") || !strings.Contains(got, "complete") {
		t.Fatalf("Format() = %q, want both statuses rendered", got)
	}
}

func TestFormatFallbacks(t *testing.T) {
	cat := NewCatalog("test", map[Code]string{
		"code": "hello {{.Name}}",
	})

	if cat.Format("unknown", nil) != "unknown" {
		t.Fatal("expected code fallback when template missing")
	}
	if cat.Format("code", nil) != "hello <no value>" {
		t.Fatal("expected template to render missing metadata")
	}
}

func TestFormatTemplateErrorFallback(t *testing.T) {
	cat := NewCatalog("test", map[Code]string{
		"code": "{{ if .Name }}",
	})
	if cat.Format("code", map[string]string{"Name": "X"}) != "{{ if .Name }}" {
		t.Fatal("expected template fallback on parse error")
	}
}

func TestRegisterCatalog(t *testing.T) {
	custom := NewCatalog("custom", map[Code]string{"code": "ok"})
	RegisterCatalog("custom", custom)
	if got := GetCatalog("custom"); got != custom {
		t.Fatal("expected registered catalog to be returned")
	}
}

func TestCatalogParity(t *testing.T) {
	for code := range enUSCatalog.messages {
		if _, ok := ptBRCatalog.messages[code]; !ok {
			t.Errorf("pt-BR catalog is missing code %s", code)
		}
	}
	for code := range ptBRCatalog.messages {
		if _, ok := enUSCatalog.messages[code]; !ok {
			t.Errorf("en-US catalog is missing code %s", code)
		}
	}
}
