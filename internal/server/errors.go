package server

import (
	"context"
	"errors"
	"guild-battle-tracker/internal/analysis"
	"guild-battle-tracker/internal/api"
	"guild-battle-tracker/internal/middleware"
	"guild-battle-tracker/internal/repository"
	"guild-battle-tracker/internal/service"
	"guild-battle-tracker/internal/validation"
	"time"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"
)

// toConnectError maps service errors onto connect codes. Messages stay the
// wrapped error text so clients see what failed without a stack trace.
func toConnectError(err error) error {
	var verr *validation.Error
	var statusErr *api.StatusError

	switch {
	case errors.As(err, &verr),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, analysis.ErrUnknownPeriod):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, repository.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, api.ErrNotConfigured):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, api.ErrServiceUnavailable), errors.As(err, &statusErr):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

func loggingInterceptor(logger zerolog.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			level := zerolog.InfoLevel
			if err != nil {
				level = zerolog.WarnLevel
				if connect.CodeOf(err) == connect.CodeInternal {
					level = zerolog.ErrorLevel
				}
			}

			event := middleware.Logger(ctx, logger).WithLevel(level)
			if err != nil {
				event = event.Err(err).Str("code", connect.CodeOf(err).String())
			}
			event.
				Str("procedure", req.Spec().Procedure).
				Int64("duration_ms", time.Since(start).Milliseconds()).
				Msg("rpc handled")
			return resp, err
		}
	}
}
