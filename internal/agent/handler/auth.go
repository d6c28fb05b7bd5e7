package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"github.com/kart-io/rag-agent/internal/model"
	"github.com/kart-io/rag-agent/internal/pkg/httputils"
	apierrors "github.com/kart-io/rag-agent/pkg/utils/errors"
)

const (
	principalKey = "principal"

	// demoTokenPrefix marks unauthenticated demo identities:
	// "Bearer demo_alice" acts as user alice.
	demoTokenPrefix = "demo_"
)

// Authenticator resolves the caller identity. This is a demo surface:
// identity is taken at face value from a demo bearer token, an HMAC-signed
// JWT, or plain headers. Authorization is a different story entirely and
// always goes through the relationship engine.
type Authenticator struct {
	jwtSecret []byte
}

// NewAuthenticator creates an Authenticator. secret enables JWT bearer
// tokens; empty disables them.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{jwtSecret: []byte(secret)}
}

// Middleware extracts the principal and aborts with 401 when none is
// presented.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := a.resolve(c)
		if !ok {
			httputils.WriteResponse(c, apierrors.ErrUnauthorized.WithMessage("missing or invalid credentials"), nil)
			c.Abort()
			return
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

func (a *Authenticator) resolve(c *gin.Context) (model.Principal, bool) {
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		token := strings.TrimPrefix(auth, "Bearer ")
		if strings.HasPrefix(token, demoTokenPrefix) {
			id := strings.TrimPrefix(token, demoTokenPrefix)
			if id != "" {
				return model.Principal{ID: id, Email: id + "@example.com", Role: "member"}, true
			}
			return model.Principal{}, false
		}
		if len(a.jwtSecret) > 0 {
			return a.fromJWT(token)
		}
		return model.Principal{}, false
	}

	if id := c.GetHeader("X-User-ID"); id != "" {
		p := model.Principal{
			ID:    id,
			Email: c.GetHeader("X-User-Email"),
			Role:  c.GetHeader("X-User-Role"),
		}
		if p.Role == "" {
			p.Role = "member"
		}
		return p, true
	}
	return model.Principal{}, false
}

func (a *Authenticator) fromJWT(raw string) (model.Principal, bool) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return model.Principal{}, false
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return model.Principal{}, false
	}
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	if role == "" {
		role = "member"
	}
	return model.Principal{ID: sub, Email: email, Role: role}, true
}

// PrincipalFrom returns the authenticated principal set by Middleware.
func PrincipalFrom(c *gin.Context) model.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(model.Principal); ok {
			return p
		}
	}
	return model.Principal{}
}
