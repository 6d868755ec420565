package usercontext

import "github.com/gofiber/fiber/v2"

// Locals key shared across middlewares and controllers
const KeyUserContext = "USER_CONTEXT"

// UserContext is the authorization context attached to a request after a
// successful bearer verification. Downstream handlers read identity and
// policy attributes from here and never see the raw key.
type UserContext struct {
	UserID          string `json:"user_id"`
	Email           string `json:"email"`
	Tier            string `json:"tier"`
	Status          string `json:"status"`
	CredentialID    string `json:"credential_id"`
	IsAuthenticated bool   `json:"is_authenticated"`
}

// SetUserContext stores the user context on the fiber request
func SetUserContext(c *fiber.Ctx, ctx UserContext) {
	c.Locals(KeyUserContext, ctx)
}

// GetUserContext retrieves the user context from fiber context.
// Returns a default anonymous context if none is set.
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx := c.Locals(KeyUserContext); ctx != nil {
		if uc, ok := ctx.(UserContext); ok {
			return uc
		}
	}
	return UserContext{IsAuthenticated: false}
}

// GetUserID returns the current user's ID, or empty string if unauthenticated
func GetUserID(c *fiber.Ctx) string {
	return GetUserContext(c).UserID
}
