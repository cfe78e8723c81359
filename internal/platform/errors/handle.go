package errors

import (
	stderrors "errors"

	"github.com/concordhq/concord/internal/platform/errors/i18n"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultLocale is the default locale for error messages.
const DefaultLocale = "en-US"

// HandleError converts domain errors to a google.rpc status for client
// responses. It formats the user-facing message using the i18n catalog for
// the given locale, defaulting to en-US if the locale is empty.
func HandleError(err error, locale string) *status.Status {
	if err == nil {
		return nil
	}

	if locale == "" {
		locale = DefaultLocale
	}

	var appErr *Error
	if stderrors.As(err, &appErr) {
		catalog := i18n.GetCatalog(locale)
		userMsg := catalog.Format(string(appErr.Code), appErr.Metadata)
		return appErr.ToStatus(catalog.Locale(), userMsg)
	}

	// Unknown error - return internal with a generic message.
	return status.New(codes.Internal, "an unexpected error occurred")
}
