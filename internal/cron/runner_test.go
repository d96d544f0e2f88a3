package cronrunner

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRunner_AddRejectsBadSpec(t *testing.T) {
	r := New(nil, context.Background())
	if _, err := r.Add("not a spec", func(context.Context) {}); err == nil {
		t.Fatalf("expected error for invalid spec")
	}
	if _, err := r.Add("@every 1m", func(context.Context) {}); err != nil {
		t.Fatalf("err=%v", err)
	}
}

func TestCronLogger_ForwardsErrors(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := cronLogger{logger: zap.New(core)}
	l.Info("wake", "now", 1)
	l.Error(errors.New("boom"), "panic", "job", "sweep")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("entries=%d want=2", len(entries))
	}
	if entries[1].Level != zap.ErrorLevel || entries[1].Message != "cron: panic" {
		t.Fatalf("entry=%+v", entries[1])
	}
	if entries[1].ContextMap()["error"] != "boom" {
		t.Fatalf("fields=%v", entries[1].ContextMap())
	}
}
