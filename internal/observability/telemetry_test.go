package observability

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestTelemetryStartStopWithoutEndpoint(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	telemetry := NewTelemetry("")
	if err := telemetry.Start(ctx); err != nil {
		t.Fatalf("start telemetry: %v", err)
	}

	_, span := Tracer().Start(ctx, "test")
	span.End()

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := telemetry.Stop(stopCtx); err != nil {
		t.Fatalf("stop telemetry: %v", err)
	}
}

func TestRecordersIncrementCounters(t *testing.T) {
	t.Parallel()

	before := testutil.ToFloat64(failedDeliveriesTotal)
	RecordFailedDelivery()
	if got := testutil.ToFloat64(failedDeliveriesTotal); got != before+1 {
		t.Fatalf("unexpected failed deliveries: got %v want %v", got, before+1)
	}

	RecordModerationAction("ban")
	if got := testutil.ToFloat64(moderationActionsTotal.WithLabelValues("ban")); got < 1 {
		t.Fatalf("moderation action was not counted")
	}

	done := StartUpdateProcessing()
	done("ok")
	if count := testutil.CollectAndCount(updateProcessingDuration); count < 1 {
		t.Fatalf("expected observed update duration")
	}
}
