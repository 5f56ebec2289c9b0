// Package logging provides the six-severity leveled logger used throughout
// hfrnet-totals: debug < info < notice < warning < error < alert.
//
// logrus only has five standard levels, so notice and alert are carried as
// logrus.Info/Error entries tagged with a "severity" field. Two independent
// minimum-severity gates are supported -- one for the log file, one for the
// terminal -- matching the filtering behavior of the system this pipeline
// was distilled from.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Severity is an ordered logging level, debug (lowest) through off (highest).
type Severity int

const (
	Debug Severity = iota
	Info
	Notice
	Warning
	Error
	Alert
	Off
)

func (s Severity) String() string {
	switch s {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Notice:
		return "notice"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Alert:
		return "alert"
	case Off:
		return "off"
	default:
		return "unknown"
	}
}

// ParseSeverity parses a severity name, case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(s) {
	case "debug":
		return Debug, nil
	case "info":
		return Info, nil
	case "notice":
		return Notice, nil
	case "warning":
		return Warning, nil
	case "error":
		return Error, nil
	case "alert":
		return Alert, nil
	case "off":
		return Off, nil
	default:
		return Off, &InvalidSeverityError{Value: s}
	}
}

// InvalidSeverityError is returned by ParseSeverity for an unrecognized name.
type InvalidSeverityError struct{ Value string }

func (e *InvalidSeverityError) Error() string {
	return "logging: invalid severity level " + e.Value
}

// levelHook filters log entries by minimum severity before writing to w.
type levelHook struct {
	min Severity
	w   io.Writer
}

func severityOf(level logrus.Level, fields logrus.Fields) Severity {
	if sev, ok := fields["severity"]; ok {
		if s, ok := sev.(Severity); ok {
			return s
		}
	}
	switch level {
	case logrus.DebugLevel:
		return Debug
	case logrus.InfoLevel:
		return Info
	case logrus.WarnLevel:
		return Warning
	case logrus.ErrorLevel:
		return Error
	default:
		return Error
	}
}

func (h *levelHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *levelHook) Fire(e *logrus.Entry) error {
	if h.min == Off {
		return nil
	}
	if severityOf(e.Level, logrus.Fields(e.Data)) < h.min {
		return nil
	}
	line, err := e.Logger.Formatter.Format(e)
	if err != nil {
		return err
	}
	_, err = h.w.Write(line)
	return err
}

// Logger wraps logrus with the six HF-Radar Network severities and two
// independently filterable sinks (file, terminal).
type Logger struct {
	base       *logrus.Logger
	fields     logrus.Fields
	fileHook   *levelHook
	cmdHook    *levelHook
	logFile    *os.File
	runID      string
}

// New opens logFile (appending, created if necessary) and returns a Logger
// with file severity "info" and terminal severity "off", matching the
// defaults of the system this pipeline is distilled from. Pass an empty
// logFile to log only to the terminal.
func New(logFile string) (*Logger, error) {
	base := logrus.New()
	base.Out = io.Discard
	base.SetLevel(logrus.DebugLevel)
	base.Formatter = &logrus.TextFormatter{FullTimestamp: true}

	l := &Logger{base: base, fields: logrus.Fields{}}

	l.fileHook = &levelHook{min: Info, w: io.Discard}
	l.cmdHook = &levelHook{min: Off, w: os.Stdout}
	base.AddHook(l.fileHook)
	base.AddHook(l.cmdHook)

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, &fileOpenError{path: logFile, err: err}
		}
		l.logFile = f
		l.fileHook.w = f
	}
	return l, nil
}

type fileOpenError struct {
	path string
	err  error
}

func (e *fileOpenError) Error() string {
	return "logging.New: failed to open log file " + e.path + ": " + e.err.Error()
}
func (e *fileOpenError) Unwrap() error { return e.err }

// SetLogLevel sets the minimum severity written to the log file.
func (l *Logger) SetLogLevel(s Severity) { l.fileHook.min = s }

// SetCmdWinLogLevel sets the minimum severity written to the terminal.
func (l *Logger) SetCmdWinLogLevel(s Severity) { l.cmdHook.min = s }

// Close releases the underlying log file, if any.
func (l *Logger) Close() error {
	if l.logFile != nil {
		return l.logFile.Close()
	}
	return nil
}

// WithFields returns a derived Logger carrying additional structured
// fields on every subsequent call, e.g. a per-run correlation id.
func (l *Logger) WithFields(fields logrus.Fields) *Logger {
	merged := logrus.Fields{}
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{base: l.base, fields: merged, fileHook: l.fileHook, cmdHook: l.cmdHook, logFile: l.logFile}
}

func (l *Logger) entry() *logrus.Entry { return l.base.WithFields(l.fields) }

func (l *Logger) Debug(msg string)   { l.entry().Debug(msg) }
func (l *Logger) Info(msg string)    { l.entry().Info(msg) }
func (l *Logger) Warning(msg string) { l.entry().Warn(msg) }

func (l *Logger) Notice(msg string) {
	l.entry().WithField("severity", Notice).Info(msg)
}

func (l *Logger) Error(msg string) { l.entry().Error(msg) }

func (l *Logger) Alert(msg string) {
	l.entry().WithField("severity", Alert).Error(msg)
}

// Debugf, Infof, Warningf, Errorf, and Alertf are the fmt.Sprintf-style
// counterparts of the plain-string methods above, so *Logger satisfies the
// narrower Debugf/Infof/.../-style Logger interfaces declared by rtv, merge,
// stc, and lta without an adapter type.
func (l *Logger) Debugf(format string, args ...interface{})   { l.Debug(fmt.Sprintf(format, args...)) }
func (l *Logger) Infof(format string, args ...interface{})    { l.Info(fmt.Sprintf(format, args...)) }
func (l *Logger) Warningf(format string, args ...interface{}) { l.Warning(fmt.Sprintf(format, args...)) }
func (l *Logger) Errorf(format string, args ...interface{})   { l.Error(fmt.Sprintf(format, args...)) }
func (l *Logger) Alertf(format string, args ...interface{})   { l.Alert(fmt.Sprintf(format, args...)) }
