package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/authority"
	"github.com/opsmatrix/governance/internal/interfaces/http/dto"
)

// Context keys for the authenticated principal
const (
	PrincipalKey  = "principal"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// PrincipalClaims are the JWT claims the engine reads. The surrounding
// identity provider issues the token; this middleware only validates and
// projects it into a Principal.
type PrincipalClaims struct {
	Name                string   `json:"name"`
	Admin               bool     `json:"admin"`
	PersonaIDs          []string `json:"persona_ids"`
	Groups              []string `json:"groups"`
	BranchIDs           []string `json:"branch_ids"`
	BusinessUnitIDs     []string `json:"business_unit_ids"`
	CrossBranchBULeader bool     `json:"cross_branch_bu_leader"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates the bearer token and stores the resulting
// Principal in the gin context
func AuthMiddleware(secret, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(AuthHeaderKey)
		if !strings.HasPrefix(header, BearerPrefix) {
			abortUnauthorized(c, "Missing bearer token")
			return
		}
		tokenString := strings.TrimPrefix(header, BearerPrefix)

		claims := &PrincipalClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(secret), nil
		}, jwt.WithIssuer(issuer))
		if err != nil || !token.Valid {
			abortUnauthorized(c, "Invalid token")
			return
		}

		principal, err := claims.toPrincipal()
		if err != nil {
			abortUnauthorized(c, "Malformed token claims")
			return
		}
		c.Set(PrincipalKey, principal)
		c.Next()
	}
}

func (c *PrincipalClaims) toPrincipal() (*authority.User, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return nil, err
	}
	personas, err := parseUUIDs(c.PersonaIDs)
	if err != nil {
		return nil, err
	}
	branches, err := parseUUIDs(c.BranchIDs)
	if err != nil {
		return nil, err
	}
	units, err := parseUUIDs(c.BusinessUnitIDs)
	if err != nil {
		return nil, err
	}
	return &authority.User{
		ID:                  id,
		Name:                c.Name,
		Administrator:       c.Admin,
		Personas:            personas,
		Groups:              c.Groups,
		BranchIDs:           branches,
		BusinessUnitIDs:     units,
		CrossBranchBULeader: c.CrossBranchBULeader,
	}, nil
}

func parseUUIDs(values []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(values))
	for _, v := range values {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// GetPrincipal retrieves the authenticated principal from the gin context
func GetPrincipal(c *gin.Context) (authority.Principal, bool) {
	value, exists := c.Get(PrincipalKey)
	if !exists {
		return nil, false
	}
	principal, ok := value.(authority.Principal)
	return principal, ok
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponse(dto.ErrCodeUnauthorized, message))
}
