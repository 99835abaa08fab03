package logging

import (
	"context"

	"github.com/rs/zerolog"

	eventbus "github.com/hanpama/minigql/internal/eventbus"
	events "github.com/hanpama/minigql/internal/events"
	reqid "github.com/hanpama/minigql/internal/reqid"
)

// Subscribe logs request, operation, resolver and startup events from b.
// The returned func detaches every handler.
func Subscribe(b *eventbus.Bus, l zerolog.Logger) (unsubscribe func()) {
	offs := []func(){
		eventbus.On(b, func(ctx context.Context, e events.HTTPFinish) {
			ev := l.Info()
			if e.Status >= 500 {
				ev = l.Error()
			}
			ev.Str("rid", requestID(ctx)).
				Str("method", e.Request.Method).
				Str("path", e.Request.URL.Path).
				Int("status", e.Status).
				Dur("duration", e.Duration).
				Msg("http request")
		}),
		eventbus.On(b, func(ctx context.Context, e events.GraphQLFinish) {
			l.Debug().
				Str("rid", requestID(ctx)).
				Str("operation", e.OperationName).
				Str("type", e.OperationType).
				Int("errors", len(e.Errors)).
				Dur("duration", e.Duration).
				Msg("graphql operation")
		}),
		eventbus.On(b, func(ctx context.Context, e events.ResolverFinish) {
			ev := l.Debug()
			if e.Err != nil {
				ev = l.Warn().Err(e.Err)
			}
			ev.Str("rid", requestID(ctx)).
				Str("resolver", e.Name).
				Str("operation", e.Operation).
				Dur("duration", e.Duration).
				Msg("resolver call")
		}),
		eventbus.On(b, func(ctx context.Context, e events.PreStartFinish) {
			if e.Err != nil {
				l.Error().Err(e.Err).Int("hooks", e.Hooks).Msg("pre-start hooks failed")
				return
			}
			l.Info().Int("hooks", e.Hooks).Dur("duration", e.Duration).Msg("pre-start hooks completed")
		}),
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}

func requestID(ctx context.Context) string {
	id, _ := reqid.FromContext(ctx)
	return id
}
