/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package audit records the human-readable narrative of a polling cycle:
// which dependencies were checked, what changed, old and new values.
// The narrative is for operators only and never drives control flow.
package audit

import (
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"bennypowers.dev/ivywatch/fs"
)

// LogFileName is the name of the per-job polling log written by FileSink.
const LogFileName = "ivy-polling.log"

// Logger receives narrative lines.
type Logger interface {
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Log is an append-only narrative for one polling cycle of one job.
// It is safe for concurrent use.
type Log struct {
	mu     sync.Mutex
	out    io.Writer
	lines  []string
	debug  bool
	flush  func(content string) error
	closed bool
}

// New creates a Log that also writes every line to w as it is appended.
// w may be nil.
func New(w io.Writer) *Log {
	return &Log{out: w}
}

// SetDebug enables Debug lines.
func (l *Log) SetDebug(debug bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debug = debug
}

// Info appends an informational line.
func (l *Log) Info(format string, args ...any) {
	l.append("", format, args...)
}

// Error appends an error line.
func (l *Log) Error(format string, args ...any) {
	l.append("[ERROR] ", format, args...)
}

// Warning appends a warning line.
func (l *Log) Warning(format string, args ...any) {
	l.append("[WARNING] ", format, args...)
}

// Debug appends a line only when debug output is enabled.
func (l *Log) Debug(format string, args ...any) {
	l.mu.Lock()
	debug := l.debug
	l.mu.Unlock()
	if debug {
		l.append("[DEBUG] ", format, args...)
	}
}

func (l *Log) append(prefix, format string, args ...any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	// Multi-line messages become one entry per line
	for line := range strings.SplitSeq(msg, "\n") {
		entry := prefix + line
		if line == "" {
			entry = ""
		}
		l.lines = append(l.lines, entry)
		if l.out != nil {
			_, _ = io.WriteString(l.out, entry+"\n")
		}
	}
}

// Lines returns a copy of the lines appended so far.
func (l *Log) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.lines)
}

// String returns the whole narrative, one line per entry.
func (l *Log) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.lines) == 0 {
		return ""
	}
	return strings.Join(l.lines, "\n") + "\n"
}

// Close finishes the narrative. Lines appended afterwards are dropped.
// Logs opened by a FileSink are persisted on Close.
func (l *Log) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	flush := l.flush
	content := ""
	if len(l.lines) > 0 {
		content = strings.Join(l.lines, "\n") + "\n"
	}
	l.mu.Unlock()

	if flush != nil {
		return flush(content)
	}
	return nil
}

// Sink hands out a Log for each polling cycle of a job.
type Sink interface {
	Open(job string) (*Log, error)
}

// WriterSink streams every job's narrative to a single writer,
// prefixing each line with the job name.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink creates a sink writing to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Open implements Sink.
func (s *WriterSink) Open(job string) (*Log, error) {
	return New(&prefixWriter{sink: s, prefix: "[" + job + "] "}), nil
}

type prefixWriter struct {
	sink   *WriterSink
	prefix string
}

func (p *prefixWriter) Write(b []byte) (int, error) {
	p.sink.mu.Lock()
	defer p.sink.mu.Unlock()
	if _, err := io.WriteString(p.sink.w, p.prefix); err != nil {
		return 0, err
	}
	return p.sink.w.Write(b)
}

// FileSink writes each job's latest narrative to <dir>/<job>/ivy-polling.log.
// Every cycle replaces the previous cycle's log.
type FileSink struct {
	fs     fs.FileSystem
	dir    string
	mirror *WriterSink
}

// NewFileSink creates a sink persisting logs under dir. Lines are also
// streamed to mirror when it is non-nil.
func NewFileSink(fsys fs.FileSystem, dir string, mirror io.Writer) *FileSink {
	s := &FileSink{fs: fsys, dir: dir}
	if mirror != nil {
		s.mirror = NewWriterSink(mirror)
	}
	return s
}

// Path returns the log file used for job, under its percent-escaped name.
func (s *FileSink) Path(job string) string {
	return filepath.Join(s.dir, url.PathEscape(job), LogFileName)
}

// Open implements Sink.
func (s *FileSink) Open(job string) (*Log, error) {
	path := s.Path(job)
	if err := s.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory for %s: %w", job, err)
	}
	var mirror io.Writer
	if s.mirror != nil {
		mirror = &prefixWriter{sink: s.mirror, prefix: "[" + job + "] "}
	}
	l := New(mirror)
	l.flush = func(content string) error {
		if err := s.fs.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write polling log for %s: %w", job, err)
		}
		return nil
	}
	return l, nil
}
