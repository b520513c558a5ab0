package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log is usable before Init so that packages can log from tests.
var Log = logrus.New()

// callerField carries the call site of the package-level helpers; it is
// rendered in the [file:line] slot instead of as a key=value pair.
const callerField = "caller"

type lineFormatter struct{}

// Format renders: [TIME] [LEVL] [file:line] msg key=value ...
func (f *lineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	fileLine, _ := entry.Data[callerField].(string)
	if fileLine == "" && entry.HasCaller() {
		fileLine = fmt.Sprintf("%s:%d", filepath.Base(entry.Caller.File), entry.Caller.Line)
	}

	level := strings.ToUpper(entry.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] [%s] %s", entry.Time.Format("2006-01-02 15:04:05"), level, fileLine, entry.Message)
	for _, k := range sortedKeys(entry.Data) {
		if k == callerField {
			continue
		}
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// Init sets the level (debug, info, warn, error) and optionally tees output into a file.
func Init(levelStr, filePath string) error {
	Log = logrus.New()
	Log.SetFormatter(&lineFormatter{})

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	Log.SetLevel(level)

	writers := []io.Writer{os.Stdout}
	if filePath != "" {
		if dir := filepath.Dir(filePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create log directory: %w", err)
			}
		}
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, file)
	}
	Log.SetOutput(io.MultiWriter(writers...))
	return nil
}

func Info(msg string, args ...any) {
	withCaller(args).Info(msg)
}

func Error(msg string, args ...any) {
	withCaller(args).Error(msg)
}

func Debug(msg string, args ...any) {
	withCaller(args).Debug(msg)
}

func Warn(msg string, args ...any) {
	withCaller(args).Warn(msg)
}

// withCaller must be called directly from the exported helpers: frame 2 is their caller.
func withCaller(args []any) *logrus.Entry {
	f := fields(args)
	if _, file, line, ok := runtime.Caller(2); ok {
		f[callerField] = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}
	return Log.WithFields(f)
}

// fields turns slog-style alternating key/value args into logrus fields.
// A trailing key without value is kept under "!BADKEY".
func fields(args []any) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		if i+1 >= len(args) {
			f["!BADKEY"] = key
			break
		}
		f[key] = args[i+1]
	}
	return f
}

func sortedKeys(data logrus.Fields) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
