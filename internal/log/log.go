package log

import (
	"io"
	"os"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var base atomic.Pointer[zap.Logger]

func init() {
	base.Store(New(os.Stdout, "info"))
}

// New builds a JSON zap logger writing one line per entry to w.
func New(w io.Writer, level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "action",
		CallerKey:      "caller",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.RFC3339TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	})
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), lvl))
}

// SetOutput swaps the process logger. Tests use it to capture entries.
func SetOutput(w io.Writer) {
	base.Store(New(w, "debug"))
}

func SetLogger(l *zap.Logger) { base.Store(l) }

// L returns the process logger for code that has no request in scope.
func L() *zap.Logger { return base.Load() }

func Sync() { _ = base.Load().Sync() }

func requestFields(c *fiber.Ctx) []zap.Field {
	if c == nil {
		return nil
	}
	fs := []zap.Field{
		zap.String("ip", c.IP()),
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
	}
	if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
		fs = append(fs, zap.String("req_id", rid))
	}
	if uid, ok := c.Locals("user_id").(string); ok && uid != "" {
		fs = append(fs, zap.String("user_id", uid))
	}
	return fs
}

func write(lvl zapcore.Level, kind string, c *fiber.Ctx, action string, err error, fields map[string]any) {
	fs := requestFields(c)
	if kind != "" {
		fs = append(fs, zap.String("kind", kind))
	}
	if err != nil {
		fs = append(fs, zap.String("err", err.Error()))
	}
	if len(fields) > 0 {
		fs = append(fs, zap.Any("fields", fields))
	}
	if ce := base.Load().Check(lvl, action); ce != nil {
		ce.Write(fs...)
	}
}

func Info(c *fiber.Ctx, action string, fields map[string]any) {
	write(zapcore.InfoLevel, "", c, action, nil, fields)
}

func Audit(c *fiber.Ctx, action string, fields map[string]any) {
	write(zapcore.InfoLevel, "audit", c, action, nil, fields)
}

func Security(c *fiber.Ctx, action string, fields map[string]any) {
	write(zapcore.WarnLevel, "security", c, action, nil, fields)
}

func Error(c *fiber.Ctx, action string, err error, fields map[string]any) {
	write(zapcore.ErrorLevel, "", c, action, err, fields)
}
