package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// #region new
// New builds a logger writing to stdout. format is "json" (default) or "text";
// an unparseable level falls back to info.
func New(level, format string) *logrus.Logger {
	return NewTo(os.Stdout, level, format)
}

// NewTo is New with an explicit output.
func NewTo(w io.Writer, level, format string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	if strings.EqualFold(format, "text") {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}
// #endregion new

// #region log-error
// LogError writes one structured error line tagged with the module and
// function it came from. data is omitted when nil.
func LogError(logger logrus.FieldLogger, module, funcName, context string, data any, err error) {
	fields := logrus.Fields{
		"module":   module,
		"funcName": funcName,
		"context":  context,
	}
	if data != nil {
		fields["data"] = data
	}
	msg := context
	if err != nil {
		msg = err.Error()
	}
	logger.WithFields(fields).Error(msg)
}
// #endregion log-error
