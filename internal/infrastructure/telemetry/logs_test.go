package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/erp/fulfillment-sync/internal/infrastructure/telemetry"
)

func TestNewLoggerProviderDisabled(t *testing.T) {
	ctx := context.Background()

	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           false,
		CollectorEndpoint: "localhost:4317",
		ServiceName:       "test-service",
	}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, lp)

	assert.False(t, lp.IsEnabled())
	assert.NoError(t, lp.Shutdown(ctx))
}

func TestNewZapOTELCoreDisabledIsNop(t *testing.T) {
	core := telemetry.NewZapOTELCore("test-service", nil)
	require.NotNil(t, core)
	assert.False(t, core.Enabled(zapcore.ErrorLevel))

	lp, err := telemetry.NewLoggerProvider(context.Background(), telemetry.LogsConfig{}, zap.NewNop())
	require.NoError(t, err)
	core = telemetry.NewZapOTELCore("test-service", lp)
	assert.False(t, core.Enabled(zapcore.ErrorLevel))
}
