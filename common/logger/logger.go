package logger

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process-wide logger. It is a no-op logger until Initialize runs.
var Log = zap.NewNop()

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"

type requestIDCtxKey struct{}

// Initialize builds Log for env ("production" gives JSON output).
func Initialize(env string) *zap.Logger {
	return InitializeWithWriter(env, nil)
}

// InitializeWithWriter builds Log and, when extra is non-nil, tees JSON
// output into it (used for CloudWatch Logs shipping).
func InitializeWithWriter(env string, extra io.Writer) *zap.Logger {
	var config zap.Config
	if env == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if extra == nil {
		l, err := config.Build()
		if err != nil {
			fmt.Printf("Failed to initialize logger: %v\n", err)
			os.Exit(1)
		}
		Log = l
		return Log
	}

	level := zap.NewAtomicLevelAt(config.Level.Level())
	consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(config.EncoderConfig), zapcore.AddSync(os.Stdout), level)

	jsonConfig := config.EncoderConfig
	jsonConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	shipCore := zapcore.NewCore(zapcore.NewJSONEncoder(jsonConfig), zapcore.AddSync(extra), level)

	Log = zap.New(zapcore.NewTee(consoleCore, shipCore), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return Log
}

// WithRequestID returns a copy of ctx carrying requestID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDCtxKey{}, requestID)
}

// RequestID extracts the request id from a gin or plain context.
func RequestID(ctx context.Context) string {
	if ginCtx, ok := ctx.(*gin.Context); ok {
		if rid := ginCtx.GetString(RequestIDKey); rid != "" {
			return rid
		}
		ctx = ginCtx.Request.Context()
	}
	if rid, ok := ctx.Value(requestIDCtxKey{}).(string); ok && rid != "" {
		return rid
	}
	return "unknown"
}

func Error(ctx context.Context, msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("request_id", RequestID(ctx)))
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	Log.Error(msg, fields...)
}

func Warn(ctx context.Context, msg string, fields ...zap.Field) {
	Log.Warn(msg, append(fields, zap.String("request_id", RequestID(ctx)))...)
}

func Info(ctx context.Context, msg string, fields ...zap.Field) {
	Log.Info(msg, append(fields, zap.String("request_id", RequestID(ctx)))...)
}

func Debug(ctx context.Context, msg string, fields ...zap.Field) {
	Log.Debug(msg, append(fields, zap.String("request_id", RequestID(ctx)))...)
}
