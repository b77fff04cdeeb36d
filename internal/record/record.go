package record

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const timestampLayout = "2006-01-02 15:04:05"

// Record is one pass's question → answer mapping, preserving the order in
// which questions were answered. Setting an existing question overwrites its
// answer without moving it.
type Record struct {
	keys   []string
	values map[string]string
}

func New() *Record {
	return &Record{values: map[string]string{}}
}

func (r *Record) Set(question, answer string) {
	if _, ok := r.values[question]; !ok {
		r.keys = append(r.keys, question)
	}
	r.values[question] = answer
}

func (r *Record) Get(question string) (string, bool) {
	v, ok := r.values[question]
	return v, ok
}

func (r *Record) Len() int {
	return len(r.keys)
}

func (r *Record) Keys() []string {
	return append([]string(nil), r.keys...)
}

// SummaryText renders the record as human-readable lines for the per-pass
// console summary.
func (r *Record) SummaryText() string {
	var b strings.Builder
	for _, k := range r.keys {
		fmt.Fprintf(&b, "%s: %s\n", k, r.values[k])
	}
	return strings.TrimSpace(b.String())
}

// Log is the append-only CSV store of records. The column set is fixed when
// the file is first created: Timestamp followed by the first record's
// question keys. Later records with questions missing from that header have
// those answers dropped with a warning; header columns missing from a record
// are written empty. Rows are only ever appended, never rewritten.
type Log struct {
	path string
}

func NewLog(path string) *Log {
	return &Log{path: path}
}

func (l *Log) Path() string {
	return l.path
}

func (l *Log) Append(rec *Record) error {
	if rec == nil || rec.Len() == 0 {
		return fmt.Errorf("refusing to log an empty record")
	}

	header, err := l.readHeader()
	if err != nil {
		return err
	}
	fresh := header == nil
	if fresh {
		header = append([]string{"Timestamp"}, rec.Keys()...)
	}

	known := map[string]bool{}
	for _, col := range header {
		known[col] = true
	}
	for _, k := range rec.Keys() {
		if !known[k] {
			fmt.Printf("warning: question %q is not in the log schema, dropping its answer\n", k)
		}
	}

	row := make([]string, 0, len(header))
	row = append(row, time.Now().Format(timestampLayout))
	for _, col := range header[1:] {
		v, _ := rec.Get(col)
		row = append(row, v)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open response log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("write response log header: %w", err)
		}
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("append response row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush response log: %w", err)
	}
	return nil
}

// readHeader returns the existing column set, or nil when the file does not
// exist yet or is empty.
func (l *Log) readHeader() ([]string, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open response log: %w", err)
	}
	defer f.Close()

	header, err := csv.NewReader(f).Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read response log header: %w", err)
	}
	return header, nil
}
