package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceIDRoundTrip(t *testing.T) {
	ctx := WithTraceID(context.Background(), "abc-123")

	assert.Equal(t, "abc-123", TraceIDFromContext(ctx))
	assert.Empty(t, TraceIDFromContext(context.Background()))
}

func TestWithRegionWritesField(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout) })

	WithRegion("asia-southeast1").WithField("status", "updated").Info("applied")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "asia-southeast1", entry["region"])
	assert.Equal(t, "updated", entry["status"])
	assert.Equal(t, "applied", entry["msg"])
}

func TestFromContextCarriesTraceID(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout) })

	FromContext(WithTraceID(context.Background(), "trace-9")).Info("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "trace-9", entry["trace_id"])
}

func TestSetStaticFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetStaticFields(map[string]interface{}{"service": "cold-autoscaler", "project": "uporto-cd"})
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		SetStaticFields(nil)
	})

	WithField("project", "override").Info("tagged")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "cold-autoscaler", entry["service"])
	assert.Equal(t, "override", entry["project"])
}

func TestSetupKeepsJSONOutsideDevelopment(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		Setup("info", "production")
	})

	Setup("debug", "development")
	Setup("warn", "production")
	assert.False(t, IsDebug())

	Warn("json again")
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warning", entry["level"])
}
