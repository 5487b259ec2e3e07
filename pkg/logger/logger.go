package logger

import (
	"fmt"
	"os"
	"strings"

	waLog "go.mau.fi/whatsmeow/util/log"
)

type Logger struct {
	App  waLog.Logger
	HTTP waLog.Logger
}

func New(level string) *Logger {
	level = strings.ToUpper(strings.TrimSpace(level))
	if level == "" {
		level = "INFO"
	}
	app := waLog.Stdout("App", level, os.Getenv("NO_COLOR") == "")
	return &Logger{
		App:  app,
		HTTP: app.Sub("HTTP"),
	}
}

// Leveled adapta um waLog.Logger para a interface LeveledLogger do retryablehttp.
// ERROR vira WARN porque falhas intermediárias são esperadas durante retries.
type Leveled struct {
	inner waLog.Logger
}

func NewLeveled(log waLog.Logger) Leveled {
	if log == nil {
		log = waLog.Noop
	}
	return Leveled{inner: log}
}

func (l Leveled) Error(msg string, keysAndValues ...interface{}) {
	l.inner.Warnf("%s", format(msg, keysAndValues))
}

func (l Leveled) Warn(msg string, keysAndValues ...interface{}) {
	l.inner.Warnf("%s", format(msg, keysAndValues))
}

func (l Leveled) Info(msg string, keysAndValues ...interface{}) {
	l.inner.Infof("%s", format(msg, keysAndValues))
}

func (l Leveled) Debug(msg string, keysAndValues ...interface{}) {
	l.inner.Debugf("%s", format(msg, keysAndValues))
}

func format(msg string, kv []interface{}) string {
	if len(kv) == 0 {
		return msg
	}
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i < len(kv); i += 2 {
		b.WriteByte(' ')
		if i+1 < len(kv) {
			fmt.Fprintf(&b, "%v=%v", kv[i], kv[i+1])
		} else {
			fmt.Fprintf(&b, "%v", kv[i])
		}
	}
	return b.String()
}
