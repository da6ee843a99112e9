// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

type Logger struct {
	prefix string
	logger *log.Logger
}

var (
	baseLogger   *log.Logger
	tail         = newTailBuffer(250)
	once         sync.Once
	debugEnabled bool
	debugMu      sync.RWMutex
)

// Init initializes the base logger. Lines go to out (the console) and to an
// in-memory tail served by the web service. Nothing is written to disk.
func Init(out io.Writer, debug bool) {
	once.Do(func() {
		if out == nil {
			out = os.Stdout
		}
		baseLogger = log.New(io.MultiWriter(out, tail), "", log.LstdFlags)
		EnableDebug(debug)
	})
}

// EnableDebug dynamically turns debug logging on/off
func EnableDebug(on bool) {
	debugMu.Lock()
	debugEnabled = on
	debugMu.Unlock()
}

// IsDebug returns current debug state
func IsDebug() bool {
	debugMu.RLock()
	defer debugMu.RUnlock()
	return debugEnabled
}

func New(prefix string) *Logger {
	Init(os.Stdout, false)
	return &Logger{
		prefix: prefix,
		logger: log.New(baseLogger.Writer(), "", log.LstdFlags),
	}
}

func (l *Logger) Info(fmtstr string, v ...any) {
	formatted := fmt.Sprintf(fmtstr, v...)
	l.logger.Printf("[%s] INFO: %v", l.prefix, formatted)
}

func (l *Logger) Error(fmtstr string, v ...any) {
	formatted := fmt.Sprintf(fmtstr, v...)
	_, file, line, ok := runtime.Caller(1)
	if ok {
		file = filepath.Base(file)
		l.logger.Printf("[%s] ERROR: (%s:%d) %s", l.prefix, file, line, formatted)
	} else {
		l.logger.Printf("[%s] ERROR: %v", l.prefix, formatted)
	}
}

func (l *Logger) Fatal(fmtstr string, v ...any) {
	formatted := fmt.Sprintf(fmtstr, v...)
	_, file, line, ok := runtime.Caller(1)
	if ok {
		file = filepath.Base(file)
		l.logger.Printf("[%s] FATAL: (%s:%d) %s", l.prefix, file, line, formatted)
	} else {
		l.logger.Printf("[%s] FATAL: %v", l.prefix, formatted)
	}
	panic(formatted)
}

func (l *Logger) Debug(fmtstr string, v ...any) {
	if !IsDebug() {
		return
	}
	formatted := fmt.Sprintf(fmtstr, v...)
	l.logger.Printf("[%s] DEBUG: %v", l.prefix, formatted)
}

// tailBuffer keeps the last n complete log lines.
type tailBuffer struct {
	mu      sync.Mutex
	lines   []string
	max     int
	partial []byte
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, b := range p {
		if b != '\n' {
			t.partial = append(t.partial, b)
			continue
		}
		t.lines = append(t.lines, string(t.partial))
		t.partial = t.partial[:0]
		if len(t.lines) > t.max {
			t.lines = t.lines[len(t.lines)-t.max:]
		}
	}
	return len(p), nil
}

func (t *tailBuffer) snapshot(n int) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	lines := t.lines
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	out := make([]string, len(lines))
	copy(out, lines)
	return out
}

func (t *tailBuffer) reset() {
	t.mu.Lock()
	t.lines = nil
	t.partial = t.partial[:0]
	t.mu.Unlock()
}
