package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"passdist/entity"
	"passdist/lib/api/cont"
	"passdist/lib/sl"
)

var ErrForbidden = errors.New("admin user required")

type Allocator interface {
	Allocate(ctx context.Context) (*entity.Allocation, error)
	Stats(ctx context.Context) (*entity.Stats, error)
	Reset(ctx context.Context) (*entity.ResetResult, error)
}

type AuthService interface {
	AdminByToken(token string) (*entity.User, error)
}

type AuditService interface {
	SaveEvent(ctx context.Context, event *entity.AllocationEvent) error
}

type Core struct {
	alloc Allocator
	auth  AuthService
	audit AuditService
	log   *slog.Logger
}

func New(alloc Allocator, log *slog.Logger) *Core {
	if alloc == nil {
		panic("allocator is nil")
	}
	return &Core{
		alloc: alloc,
		log:   log.With(sl.Module("core")),
	}
}

func (c *Core) SetAuthService(auth AuthService) {
	c.auth = auth
}

func (c *Core) SetAuditService(audit AuditService) {
	c.audit = audit
}

func (c *Core) AuthenticateByToken(token string) (*entity.User, error) {
	if c.auth == nil {
		return nil, fmt.Errorf("auth service not connected")
	}
	return c.auth.AdminByToken(token)
}

func (c *Core) AllocateCode(ctx context.Context) (*entity.Allocation, error) {
	allocation, err := c.alloc.Allocate(ctx)
	if err != nil {
		return nil, err
	}
	c.record(ctx, &entity.AllocationEvent{
		Kind:     entity.EventAllocate,
		CodeID:   allocation.ID,
		Attempts: allocation.Attempts,
		At:       allocation.UsedAt,
	})
	return allocation, nil
}

func (c *Core) GetStats(ctx context.Context) (*entity.Stats, error) {
	return c.alloc.Stats(ctx)
}

// ResetAll releases every code; the context must carry an authenticated admin.
func (c *Core) ResetAll(ctx context.Context) (*entity.ResetResult, error) {
	user := cont.GetUser(ctx)
	if user == nil || !user.IsAdmin() {
		return nil, ErrForbidden
	}
	result, err := c.alloc.Reset(ctx)
	if err != nil {
		return nil, err
	}
	c.log.With(
		slog.String("user", user.Username),
		slog.Int("released", result.Released),
	).Info("document reset")
	c.record(ctx, &entity.AllocationEvent{
		Kind:     entity.EventReset,
		Released: result.Released,
		Attempts: result.Attempts,
		At:       time.Now().UTC(),
	})
	return result, nil
}

// record stores an audit event; failures are logged and never surface to the caller.
func (c *Core) record(ctx context.Context, event *entity.AllocationEvent) {
	if c.audit == nil {
		return
	}
	event.EventID = uuid.NewString()
	event.RequestID = middleware.GetReqID(ctx)
	if user := cont.GetUser(ctx); user != nil {
		event.User = user.Username
	}
	if err := c.audit.SaveEvent(ctx, event); err != nil {
		c.log.With(
			slog.String("event_id", event.EventID),
			slog.String("kind", event.Kind),
		).Error("save audit event", sl.Err(err))
	}
}
