// Package otel turns eventbus events into OpenTelemetry spans.
package otel

import (
	"context"
	"sync"
	"time"

	eventbus "github.com/hanpama/minigql/internal/eventbus"
	events "github.com/hanpama/minigql/internal/events"
	reqid "github.com/hanpama/minigql/internal/reqid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Setup configures an OTLP gRPC exporter and attaches subscribers to b.
// If endpoint is empty, no telemetry is configured.
func Setup(ctx context.Context, b *eventbus.Bus, endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	off := Register(b, tp.Tracer("minigql"))
	return func(ctx context.Context) error {
		off()
		return tp.Shutdown(ctx)
	}, nil
}

// Register subscribes span handlers on b using tracer. The returned func
// detaches them.
func Register(b *eventbus.Bus, tracer trace.Tracer) (unsubscribe func()) {
	s := &subscriber{tracer: tracer}
	return s.register(b)
}

// spanKey scopes open spans by request id. Resolver and service spans add
// the call name so concurrent root fields do not collide.
type spanKey struct {
	rid  string
	kind string
	name string
}

type subscriber struct {
	tracer trace.Tracer
	spans  sync.Map // spanKey -> trace.Span
}

func (s *subscriber) start(ctx context.Context, key spanKey, name string, parents ...string) trace.Span {
	parent := ctx
	for _, kind := range parents {
		if v, ok := s.spans.Load(spanKey{rid: key.rid, kind: kind}); ok {
			parent = trace.ContextWithSpan(ctx, v.(trace.Span))
			break
		}
	}
	_, span := s.tracer.Start(parent, name)
	s.spans.Store(key, span)
	return span
}

func (s *subscriber) finish(key spanKey) (trace.Span, bool) {
	v, ok := s.spans.LoadAndDelete(key)
	if !ok {
		return nil, false
	}
	return v.(trace.Span), true
}

func endWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func rid(ctx context.Context) string {
	id, _ := reqid.FromContext(ctx)
	return id
}

func (s *subscriber) register(b *eventbus.Bus) func() {
	offs := []func(){
		eventbus.On(b, func(ctx context.Context, e events.HTTPStart) {
			span := s.start(ctx, spanKey{rid: rid(ctx), kind: "http"}, "http.request")
			span.SetAttributes(
				semconv.HTTPMethodKey.String(e.Request.Method),
				attribute.String("http.target", e.Request.URL.Path),
			)
		}),
		eventbus.On(b, func(ctx context.Context, e events.HTTPFinish) {
			span, ok := s.finish(spanKey{rid: rid(ctx), kind: "http"})
			if !ok {
				return
			}
			span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
			span.End()
		}),
		eventbus.On(b, func(ctx context.Context, e events.GraphQLStart) {
			span := s.start(ctx, spanKey{rid: rid(ctx), kind: "graphql"}, "graphql.operation", "http")
			span.SetAttributes(
				attribute.String("graphql.operation.name", e.OperationName),
				attribute.String("graphql.operation.type", e.OperationType),
			)
		}),
		eventbus.On(b, func(ctx context.Context, e events.GraphQLFinish) {
			span, ok := s.finish(spanKey{rid: rid(ctx), kind: "graphql"})
			if !ok {
				return
			}
			span.SetAttributes(attribute.Int("graphql.error_count", len(e.Errors)))
			span.End()
		}),
		eventbus.On(b, func(ctx context.Context, e events.ResolverStart) {
			span := s.start(ctx, spanKey{rid: rid(ctx), kind: "resolver", name: e.Name}, "graphql.resolve", "graphql", "http")
			span.SetAttributes(
				attribute.String("graphql.field.name", e.Name),
				attribute.String("graphql.operation.type", e.Operation),
			)
		}),
		eventbus.On(b, func(ctx context.Context, e events.ResolverFinish) {
			if span, ok := s.finish(spanKey{rid: rid(ctx), kind: "resolver", name: e.Name}); ok {
				endWithError(span, e.Err)
			}
		}),
		eventbus.On(b, func(ctx context.Context, e events.ServiceCallStart) {
			span := s.start(ctx, spanKey{rid: rid(ctx), kind: "service", name: e.Service + "." + e.Method}, "service.call", "graphql", "http")
			span.SetAttributes(
				attribute.String("service.name", e.Service),
				attribute.String("service.method", e.Method),
				attribute.String("net.peer.name", e.Target),
			)
		}),
		eventbus.On(b, func(ctx context.Context, e events.ServiceCallFinish) {
			span, ok := s.finish(spanKey{rid: rid(ctx), kind: "service", name: e.Service + "." + e.Method})
			if !ok {
				return
			}
			if e.Status != 0 {
				span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
			}
			endWithError(span, e.Err)
		}),
		eventbus.On(b, func(ctx context.Context, e events.PreStartFinish) {
			_, span := s.tracer.Start(ctx, "minigql.prestart", trace.WithTimestamp(time.Now().Add(-e.Duration)))
			span.SetAttributes(attribute.Int("minigql.prestart.hooks", e.Hooks))
			endWithError(span, e.Err)
		}),
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}
