package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"adsoptimizer/internal/config"
)

func TestBuildConfig_FallsBackOnUnknownValues(t *testing.T) {
	zc := buildConfig(config.LogConfig{Level: "loud", Encoding: "xml"}, "")
	if zc.Level.Level() != zapcore.InfoLevel {
		t.Fatalf("level=%s want=info", zc.Level.Level())
	}
	if zc.Encoding != "console" {
		t.Fatalf("encoding=%q want=console", zc.Encoding)
	}
	if _, ok := zc.InitialFields["env"]; ok {
		t.Fatalf("env field should be omitted when empty")
	}
}

func TestBuildConfig_JSONWithSampling(t *testing.T) {
	zc := buildConfig(config.LogConfig{Level: "DEBUG", Encoding: "json", Sampling: true}, "prod")
	if zc.Level.Level() != zapcore.DebugLevel {
		t.Fatalf("level=%s want=debug", zc.Level.Level())
	}
	if zc.Encoding != "json" {
		t.Fatalf("encoding=%q want=json", zc.Encoding)
	}
	if zc.Sampling == nil {
		t.Fatalf("sampling not configured")
	}
	if zc.InitialFields["env"] != "prod" || zc.InitialFields["service"] != serviceName {
		t.Fatalf("initial fields=%v", zc.InitialFields)
	}
}
