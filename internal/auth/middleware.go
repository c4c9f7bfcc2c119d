package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/intake-desk/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	Username string
	Role     string
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens *TokenManager
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle enforces authentication for protected routes. The principal is
// stored in the fiber locals and its name in the request's user context.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	principal := &Principal{Username: claims.Username, Role: claims.Role}
	c.Locals(principalKey, principal)
	c.SetUserContext(WithActor(c.UserContext(), principal.Username))
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
