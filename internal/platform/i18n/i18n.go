// Package i18n negotiates the response locale for incoming requests.
// Error messages are localized against the negotiated locale before
// they cross the API boundary.
package i18n

import (
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

// DefaultLocale is used when no supported language matches the request.
const DefaultLocale = "en-US"

var supported = []language.Tag{
	language.MustParse("en-US"),
	language.MustParse("pt-BR"),
}

var matcher = language.NewMatcher(supported)

// SupportedLocales returns the locales messages are available in.
func SupportedLocales() []string {
	locales := make([]string, len(supported))
	for i, tag := range supported {
		locales[i] = tag.String()
	}
	return locales
}

// MatchLocale maps an arbitrary BCP 47 value to a supported locale.
func MatchLocale(value string) string {
	tag, err := language.Parse(strings.TrimSpace(value))
	if err != nil {
		return DefaultLocale
	}
	_, index, confidence := matcher.Match(tag)
	if confidence == language.No {
		return DefaultLocale
	}
	return supported[index].String()
}

// ResolveFromRequest picks the best supported locale for the request
// based on its Accept-Language header.
func ResolveFromRequest(r *http.Request) string {
	if r == nil {
		return DefaultLocale
	}
	accept := strings.TrimSpace(r.Header.Get("Accept-Language"))
	if accept == "" {
		return DefaultLocale
	}
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return DefaultLocale
	}
	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return DefaultLocale
	}
	return supported[index].String()
}
