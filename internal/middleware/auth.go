package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const (
	// ContextMemberID the authenticated member id, int64.
	ContextMemberID = "member_id"
	// ContextMemberDid the authenticated member's identity-provider did.
	ContextMemberDid = "member_did"
)

// MemberClaims the JWT claims this service trusts. Tokens are minted by the
// account system; member_id is the only field business logic keys on.
type MemberClaims struct {
	MemberID int64  `json:"member_id"`
	Did      string `json:"did"`
	jwt.RegisteredClaims
}

// AuthMiddleware JWT bearer auth.
type AuthMiddleware struct {
	secret []byte
	logger *logrus.Logger
}

// NewAuthMiddleware creates the middleware with the shared signing secret.
func NewAuthMiddleware(secret string, logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret), logger: logger}
}

func (a *AuthMiddleware) parse(tokenString string) (*MemberClaims, error) {
	claims := &MemberClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"code":    code,
		"message": message,
	})
	c.Abort()
}

// RequireAuth rejects requests without a valid bearer token and stores the
// member identity on the context.
func (a *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "MISSING_AUTH_HEADER", "missing Authorization header")
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "INVALID_AUTH_FORMAT", "Authorization header must be: Bearer <token>")
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := a.parse(tokenString)
		if err != nil {
			a.logger.WithFields(logrus.Fields{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			}).Warn("jwt validation failed")
			abortUnauthorized(c, "INVALID_TOKEN", "invalid or expired token")
			return
		}
		if claims.MemberID == 0 {
			abortUnauthorized(c, "INVALID_TOKEN", "token carries no member id")
			return
		}

		c.Set(ContextMemberID, claims.MemberID)
		c.Set(ContextMemberDid, claims.Did)
		c.Next()
	}
}

// MemberID reads the authenticated member id from the context.
func MemberID(c *gin.Context) int64 {
	if v, ok := c.Get(ContextMemberID); ok {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return 0
}
