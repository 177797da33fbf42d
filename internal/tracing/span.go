package tracing

import (
	"context"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/promptfire/promptfire/internal/metrics"
)

// StartTrialSpan opens a client span covering one trial. The span name is
// the run mode; per-trial identity goes into attributes to keep names low
// cardinality.
func StartTrialSpan(ctx context.Context, tracer trace.Tracer, mode string, trial metrics.Trial) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, mode+" trial",
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("promptfire.mode", mode),
		attribute.String("promptfire.trial.id", trial.ID),
		attribute.Int("gen_ai.request.max_tokens", trial.Sampling.MaxTokens),
		attribute.Float64("gen_ai.request.temperature", trial.Sampling.Temperature),
		attribute.Bool("promptfire.stream", trial.Sampling.Stream),
	)
	if trial.Group != "" {
		span.SetAttributes(attribute.String("promptfire.trial.group", trial.Group))
	}
	return ctx, span
}

// EndTrialSpan records the trial outcome on the span and finishes it.
func EndTrialSpan(span trace.Span, res metrics.Result) {
	span.SetAttributes(
		attribute.Int64("promptfire.total_ms", res.Total.Milliseconds()),
		attribute.Int("gen_ai.usage.prompt_tokens", res.PromptTokens),
		attribute.Int("gen_ai.usage.completion_tokens", res.CompletionTokens),
	)
	if res.ObservedTTFT() {
		span.SetAttributes(attribute.Int64("promptfire.ttft_ms", res.TTFT.Milliseconds()))
	}
	if res.TokensPerSec > 0 {
		span.SetAttributes(attribute.Float64("promptfire.tokens_per_sec", res.TokensPerSec))
	}
	if res.Status != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", res.Status))
	}

	if res.Success {
		span.SetStatus(codes.Ok, "")
	} else {
		span.RecordError(errors.New(res.Err))
		span.SetStatus(codes.Error, res.Err)
	}
	span.End()
}

type injectTransport struct {
	base http.RoundTripper
}

func (t injectTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	otel.GetTextMapPropagator().Inject(req.Context(), propagation.HeaderCarrier(req.Header))
	return t.base.RoundTrip(req)
}

// Transport wraps base so every outgoing request carries W3C trace context
// headers. A nil base falls back to http.DefaultTransport.
func Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return injectTransport{base: base}
}
