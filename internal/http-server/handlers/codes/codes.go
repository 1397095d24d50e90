package codes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"passdist/entity"
	"passdist/impl/core"
	"passdist/internal/allocator"
	"passdist/internal/store"
	"passdist/lib/api/response"
	"passdist/lib/sl"
)

const (
	msgAllocated   = "code allocated"
	msgNoCodes     = "no codes available"
	msgConflict    = "allocation conflict, try again"
	msgUnavailable = "code store unavailable"
	msgCorrupted   = "code document is malformed"
	msgTimeout     = "request timed out"
	msgServer      = "server error"
	msgReset       = "all codes reset"
	msgForbidden   = "admin user required"
)

type Core interface {
	AllocateCode(ctx context.Context) (*entity.Allocation, error)
	GetStats(ctx context.Context) (*entity.Stats, error)
	ResetAll(ctx context.Context) (*entity.ResetResult, error)
}

func GetPassword(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.With(
			sl.Module("http.handlers.codes"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			log.Error("code service not available")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.NoPassword(msgServer))
			return
		}

		allocation, err := handler.AllocateCode(r.Context())
		if errors.Is(err, allocator.ErrNoCodesAvailable) {
			log.Info("no codes available")
			render.JSON(w, r, response.NoPassword(msgNoCodes))
			return
		}
		if err != nil {
			log.Error("allocate code", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.NoPassword(failureMessage(err)))
			return
		}
		log.With(
			slog.Int("code_id", allocation.ID),
			sl.Secret("code", allocation.Code),
		).Debug("code handed out")

		render.JSON(w, r, response.Password(msgAllocated, allocation.Code))
	}
}

func Stats(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.With(
			sl.Module("http.handlers.codes"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			log.Error("code service not available")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error(msgServer))
			return
		}

		stats, err := handler.GetStats(r.Context())
		if err != nil {
			log.Error("get stats", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error(failureMessage(err)))
			return
		}

		render.JSON(w, r, response.Stats(stats))
	}
}

func Reset(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.With(
			sl.Module("http.handlers.codes"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			log.Error("code service not available")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error(msgServer))
			return
		}

		result, err := handler.ResetAll(r.Context())
		if err != nil {
			if errors.Is(err, core.ErrForbidden) {
				log.Warn("reset refused", sl.Err(err))
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error(msgForbidden))
				return
			}
			log.Error("reset codes", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error(failureMessage(err)))
			return
		}

		render.JSON(w, r, response.Ok(fmt.Sprintf("%s, %d released", msgReset, result.Released)))
	}
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, allocator.ErrAllocationConflict):
		return msgConflict
	case errors.Is(err, store.ErrDecode):
		return msgCorrupted
	case errors.Is(err, store.ErrStoreUnavailable):
		return msgUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return msgTimeout
	}
	return msgServer
}
