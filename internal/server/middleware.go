package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/menuya/internal/authorization"
	discountdomain "github.com/smallbiznis/menuya/internal/discount/domain"
	"github.com/smallbiznis/menuya/internal/identity"
	obscontext "github.com/smallbiznis/menuya/internal/observability/context"
)

const (
	HeaderActorRole     = "X-Actor-Role"
	HeaderCustomerEmail = "X-Customer-Email"
	HeaderCustomerKey   = "X-Customer-Key"
	HeaderCustomerName  = "X-Customer-Name"
	HeaderCustomerDNI   = "X-Customer-DNI"

	contextActorKey     = "actor"
	contextActorRoleKey = "actor_role"
)

// Actor is the caller as resolved by the authentication layer in front of
// the service: a role plus, for customer-side calls, who the customer is.
type Actor struct {
	Role     authorization.Role
	Customer discountdomain.CustomerIdentity
}

// ActorRequired resolves the actor from the request headers.
func (s *Server) ActorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := authorization.ParseRole(c.GetHeader(HeaderActorRole))
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		actor := Actor{
			Role: role,
			Customer: discountdomain.CustomerIdentity{
				Email:        strings.TrimSpace(c.GetHeader(HeaderCustomerEmail)),
				AnonymousKey: strings.TrimSpace(c.GetHeader(HeaderCustomerKey)),
				Name:         strings.TrimSpace(c.GetHeader(HeaderCustomerName)),
				DNI:          identity.NormalizeDNI(c.GetHeader(HeaderCustomerDNI)),
			},
		}

		c.Set(contextActorKey, actor)
		c.Set(contextActorRoleKey, string(role))
		ctx := obscontext.WithActorRole(c.Request.Context(), string(role))
		if key := actor.Customer.Key(); key != "" {
			ctx = obscontext.WithCustomerKey(ctx, key)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) authorize(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.authorizeAction(c, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) authorizeAction(c *gin.Context, object string, action string) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return ErrUnauthorized
	}
	if s.authzSvc == nil {
		return ErrForbidden
	}
	return s.authzSvc.Authorize(c.Request.Context(), actor.Role, object, action)
}

func actorFromContext(c *gin.Context) (Actor, bool) {
	value, ok := c.Get(contextActorKey)
	if !ok {
		return Actor{}, false
	}
	actor, ok := value.(Actor)
	return actor, ok
}

// customerFromContext is the customer the request acts for; empty when the
// caller sent no customer headers.
func customerFromContext(c *gin.Context) discountdomain.CustomerIdentity {
	actor, _ := actorFromContext(c)
	return actor.Customer
}
