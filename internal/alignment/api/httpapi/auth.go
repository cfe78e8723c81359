package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/concordhq/concord/internal/alignment/access"
	apperrors "github.com/concordhq/concord/internal/platform/errors"
	"github.com/concordhq/concord/internal/platform/httpx"
	"github.com/concordhq/concord/internal/platform/requestctx"
)

type grantContextKey struct{}

// authenticate resolves the Authorization bearer grant and stores it in
// the request context. Routes behind it can assume a verified grant;
// alignment scoping stays with the handlers because the alignment id
// lives in the path.
func (s *Server) authenticate(next http.Handler) http.Handler {
	if next == nil {
		next = http.NotFoundHandler()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			httpx.WriteStatusError(w, r, apperrors.New(apperrors.CodeUnauthenticated, "bearer access grant is required"))
			return
		}
		grant, err := access.VerifyGrant(token, s.verifier)
		if err != nil {
			httpx.WriteStatusError(w, r, err)
			return
		}
		ctx := requestctx.WithUserID(r.Context(), grant.UserID)
		ctx = context.WithValue(ctx, grantContextKey{}, grant)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the Authorization bearer value.
func bearerToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// socketGrantToken extracts the grant for the websocket route. Browser
// websocket clients cannot set request headers, so the token may also
// arrive as an access_token query parameter.
func socketGrantToken(r *http.Request) string {
	if token := bearerToken(r); token != "" {
		return token
	}
	if r == nil || r.URL == nil {
		return ""
	}
	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}

func grantFromContext(ctx context.Context) (access.Grant, bool) {
	if ctx == nil {
		return access.Grant{}, false
	}
	grant, ok := ctx.Value(grantContextKey{}).(access.Grant)
	return grant, ok
}

// alignmentScope reads the {id} path value and checks the caller's
// grant covers that alignment.
func (s *Server) alignmentScope(r *http.Request) (string, access.Grant, error) {
	alignmentID := strings.TrimSpace(r.PathValue("id"))
	if alignmentID == "" {
		return "", access.Grant{}, apperrors.New(apperrors.CodeRequestInvalid, "alignment id is required")
	}
	grant, ok := grantFromContext(r.Context())
	if !ok {
		return "", access.Grant{}, apperrors.New(apperrors.CodeUnauthenticated, "bearer access grant is required")
	}
	if err := grant.ForAlignment(alignmentID); err != nil {
		return "", access.Grant{}, err
	}
	return alignmentID, grant, nil
}
