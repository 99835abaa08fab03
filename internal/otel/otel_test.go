package otel

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	eventbus "github.com/hanpama/minigql/internal/eventbus"
	events "github.com/hanpama/minigql/internal/events"
	reqid "github.com/hanpama/minigql/internal/reqid"
)

func TestSetupWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), eventbus.New(), "", "svc")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestRegister_SpanTree(t *testing.T) {
	bus := eventbus.New()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	off := Register(bus, tp.Tracer("test"))
	defer off()

	ctx, _ := reqid.WithID(eventbus.NewContext(context.Background(), bus), "rid-1")
	r := httptest.NewRequest("POST", "/graphql", nil)

	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	eventbus.Publish(ctx, events.GraphQLStart{OperationName: "Q", OperationType: "query"})
	eventbus.Publish(ctx, events.ResolverStart{Name: "users", Operation: "Query"})
	eventbus.Publish(ctx, events.ServiceCallStart{Service: "billing", Method: "charge", Target: "http://b/service"})
	eventbus.Publish(ctx, events.ServiceCallFinish{Service: "billing", Method: "charge", Status: 200})
	eventbus.Publish(ctx, events.ResolverFinish{Name: "users", Operation: "Query", Err: errors.New("boom")})
	eventbus.Publish(ctx, events.GraphQLFinish{OperationName: "Q"})
	eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: 200})

	ended := sr.Ended()
	require.Len(t, ended, 4)
	byName := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range ended {
		byName[s.Name()] = s
	}
	httpSpan := byName["http.request"]
	gqlSpan := byName["graphql.operation"]
	require.NotNil(t, httpSpan)
	require.NotNil(t, gqlSpan)
	require.Equal(t, httpSpan.SpanContext().SpanID(), gqlSpan.Parent().SpanID())
	require.Equal(t, gqlSpan.SpanContext().SpanID(), byName["graphql.resolve"].Parent().SpanID())
	require.Equal(t, gqlSpan.SpanContext().SpanID(), byName["service.call"].Parent().SpanID())
	require.Equal(t, codes.Error, byName["graphql.resolve"].Status().Code)
}

func TestRegister_PreStart(t *testing.T) {
	bus := eventbus.New()
	ctx := eventbus.NewContext(context.Background(), bus)
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	off := Register(bus, tp.Tracer("test"))

	eventbus.Publish(ctx, events.PreStartFinish{Hooks: 2})
	off()
	eventbus.Publish(ctx, events.PreStartFinish{Hooks: 3})

	require.Len(t, sr.Ended(), 1)
	require.Equal(t, "minigql.prestart", sr.Ended()[0].Name())
}
