package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/postfeed/utils"
)

const (
	// ContextUserIDKey holds the authenticated user id in the Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey holds the username in the Gin context.
	ContextUsernameKey = "username"
)

// AuthRequired resolves the actor from a Bearer JWT signed with secret.
func AuthRequired(secret []byte) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, code, msg := bearerToken(ctx.GetHeader("Authorization"))
		if code != 0 {
			utils.Abort(ctx, http.StatusUnauthorized, code, msg)
			return
		}

		claims, err := utils.ParseToken(secret, token)
		if err != nil {
			utils.Sugar.Debugw("rejected token", "ip", ctx.ClientIP(), "err", err)
			utils.Abort(ctx, http.StatusUnauthorized, 40105, "invalid token")
			return
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextUsernameKey, claims.Username)
		ctx.Next()
	}
}

// bearerToken extracts the token, or returns the business code explaining why it could not.
func bearerToken(header string) (string, int, string) {
	if header == "" {
		return "", 40101, "authorization header missing"
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", 40102, "invalid authorization header format"
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", 40103, "empty bearer token"
	}
	return token, 0, ""
}
