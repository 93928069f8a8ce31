package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/claimflow/internal/application/port"
	"github.com/garyjia/claimflow/internal/domain/apperr"
	"github.com/garyjia/claimflow/internal/domain/entity"
)

// ActorHeader carries the id of the acting user. Authentication happens upstream.
const ActorHeader = "X-Actor-ID"

type actorKey struct{}

// WithActor returns a context carrying actor
func WithActor(ctx context.Context, actor *entity.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor placed by IdentityMiddleware, or nil
func ActorFromContext(ctx context.Context) *entity.Actor {
	actor, _ := ctx.Value(actorKey{}).(*entity.Actor)
	return actor
}

// RequestIdentity implements port.IdentityProvider over the request context
type RequestIdentity struct{}

var _ port.IdentityProvider = RequestIdentity{}

// CurrentActor returns the actor of the current request
func (RequestIdentity) CurrentActor(ctx context.Context) (*entity.Actor, error) {
	actor := ActorFromContext(ctx)
	if actor == nil {
		return nil, apperr.Unauthorized("no actor on request")
	}
	return actor, nil
}

// IdentityMiddleware resolves ActorHeader through the directory. Missing or unknown
// actors get 401.
func IdentityMiddleware(actors port.ActorDirectory, logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(ActorHeader))
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "missing " + ActorHeader + " header",
			})
			return
		}

		actor, err := actors.GetActor(c.Request.Context(), id)
		if err != nil {
			logger.Error("Failed to resolve actor", "actor_id", id, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, Response{
				Success: false,
				Error:   "internal error",
			})
			return
		}
		if actor == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "unknown actor " + id,
			})
			return
		}

		c.Request = c.Request.WithContext(WithActor(c.Request.Context(), actor))
		c.Next()
	}
}
