package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.False(t, cfg.Enabled)
	require.Equal(t, "stdout", cfg.Exporter)
	require.Equal(t, DefaultServiceName, cfg.ServiceName)
}

func TestNewProviderDisabled(t *testing.T) {
	provider, err := NewProvider(Config{})
	require.NoError(t, err)
	require.False(t, provider.Enabled())

	_, span := provider.Tracer().Start(context.Background(), "noop")
	require.False(t, span.SpanContext().IsValid())
	span.End()
	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProviderStdout(t *testing.T) {
	var buf bytes.Buffer
	provider, err := NewProvider(Config{Enabled: true, Exporter: "stdout", Output: &buf, ServiceName: "formflow-test"})
	require.NoError(t, err)
	require.True(t, provider.Enabled())

	_, span := provider.Tracer().Start(context.Background(), "formflow.test.span")
	require.True(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, provider.Shutdown(context.Background()))
	require.Contains(t, buf.String(), "formflow.test.span")
	require.Contains(t, buf.String(), "formflow-test")
}

func TestNewProviderUnknownExporter(t *testing.T) {
	_, err := NewProvider(Config{Enabled: true, Exporter: "carrier-pigeon"})
	require.Error(t, err)
}
