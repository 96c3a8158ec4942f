package server

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/omalloc/relay/conf"
	"github.com/omalloc/relay/contrib/log"
	"github.com/omalloc/relay/proxy"
)

const accessLogTimeLayout = "[02/Jan/2006:15:04:05 -0700]"

// NewAccessLog builds the per-request sink the proxy reports finished
// requests to. Returns nil when access logging is turned off.
func NewAccessLog(opt *conf.ServerAccessLog) func(proxy.Record) {
	if opt == nil || !opt.Enabled {
		log.Infof("access-log is turned off")
		return nil
	}

	var sink *zap.Logger
	if opt.Path == "" {
		log.Warnf("access-log `path` is empty, will be written to stdout")
		sink = newAccessLogger(zapcore.Lock(os.Stdout))
	} else {
		_ = os.MkdirAll(filepath.Dir(opt.Path), 0o755)
		sink = newAccessLogger(zapcore.AddSync(&lumberjack.Logger{
			Filename:   opt.Path,
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     1,
			LocalTime:  true,
		}))
	}

	return func(rec proxy.Record) {
		sink.Info(formatRecord(rec))
	}
}

// newAccessLogger is a bare-line zap logger: no level, no timestamp prefix;
// the record carries its own time field.
func newAccessLogger(sink zapcore.WriteSyncer) *zap.Logger {
	cfg := zap.NewProductionConfig().EncoderConfig
	cfg.ConsoleSeparator = " "
	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {}
	cfg.EncodeLevel = func(_ zapcore.Level, _ zapcore.PrimitiveArrayEncoder) {}

	return zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(cfg),
		sink,
		zapcore.InfoLevel,
	))
}

func formatRecord(rec proxy.Record) string {
	var b strings.Builder

	status := "-"
	if rec.Status > 0 {
		status = strconv.Itoa(rec.Status)
	}

	appendField(&b, rec.Peer)
	appendField(&b, time.Now().Format(accessLogTimeLayout))
	appendField(&b, quoted(rec.Method+" "+rec.URI))
	appendField(&b, status)
	appendField(&b, rec.CacheStatus)
	appendField(&b, strconv.Itoa(rec.Bytes))
	appendField(&b, strconv.FormatInt(rec.Duration.Milliseconds(), 10))
	appendField(&b, rec.RequestID)

	return b.String()
}

func appendField(b *strings.Builder, field string) {
	if b.Len() > 0 {
		b.WriteByte(' ')
	}
	if field == "" {
		field = "-"
	}
	b.WriteString(field)
}

func quoted(s string) string {
	if strings.TrimSpace(s) == "" {
		return `"-"`
	}
	return `"` + s + `"`
}
