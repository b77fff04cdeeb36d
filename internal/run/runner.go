package run

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/igolaizola/formfill/internal/browser"
	"github.com/igolaizola/formfill/internal/policy"
	"github.com/igolaizola/formfill/internal/record"
)

// maxConsecutiveFailures aborts the run when this many passes fail in a row.
const maxConsecutiveFailures = 3

type Runner struct {
	cfg      Config
	source   browser.Source
	selector *policy.Selector
	log      *record.Log
}

type PassLog struct {
	Pass        int               `json:"pass"`
	Answers     map[string]string `json:"answers,omitempty"`
	Error       string            `json:"error,omitempty"`
	StartedAt   time.Time         `json:"startedAt"`
	CompletedAt time.Time         `json:"completedAt"`
}

type RunLog struct {
	RunID         string    `json:"runId"`
	URL           string    `json:"url"`
	Probability   float64   `json:"probability"`
	Passes        []PassLog `json:"passes"`
	StoppedReason string    `json:"stoppedReason"`
	StartedAt     time.Time `json:"startedAt"`
	CompletedAt   time.Time `json:"completedAt"`
}

type Result struct {
	Completed     int
	Failed        int
	StoppedReason string
}

func NewRunner(cfg Config, source browser.Source) *Runner {
	return &Runner{
		cfg:    cfg,
		source: source,
		selector: policy.NewSelector(
			policy.NewPreferences(cfg.Preferences),
			cfg.Probability,
			rand.New(rand.NewSource(time.Now().UnixNano())),
		),
		log: record.NewLog(cfg.CSVPath),
	}
}

// Execute runs the configured number of passes sequentially. Each pass opens
// the form, answers every field, submits, and appends one row to the
// response log. An interrupt stops the run at the next pass boundary; a
// failure to append to the response log stops it immediately.
func (r *Runner) Execute(ctx context.Context) (Result, error) {
	runLog := RunLog{
		RunID:       uuid.NewString(),
		URL:         r.cfg.URL,
		Probability: r.cfg.Probability,
		StartedAt:   time.Now(),
	}

	stopped := "all passes completed"
	completed := 0
	failed := 0
	consecutive := 0

	for pass := 1; pass <= r.cfg.Count; pass++ {
		if ctx.Err() != nil {
			stopped = "interrupted"
			fmt.Println("interrupt received, stopping")
			break
		}
		if r.cfg.Verbose {
			fmt.Printf("[pass %d/%d] opening %s\n", pass, r.cfg.Count, r.cfg.URL)
		}

		passLog := PassLog{Pass: pass, StartedAt: time.Now()}
		rec, err := r.runPass(ctx, pass)
		if err != nil {
			if ctx.Err() != nil {
				stopped = "interrupted"
				fmt.Println("interrupt received, stopping")
				break
			}
			failed++
			consecutive++
			passLog.Error = err.Error()
			passLog.CompletedAt = time.Now()
			runLog.Passes = append(runLog.Passes, passLog)
			fmt.Printf("[pass %d/%d] failed: %v\n", pass, r.cfg.Count, err)
			if consecutive >= maxConsecutiveFailures {
				stopped = fmt.Sprintf("%d consecutive passes failed", maxConsecutiveFailures)
				break
			}
			continue
		}
		consecutive = 0

		if err := r.log.Append(rec); err != nil {
			return Result{}, fmt.Errorf("append response log: %w", err)
		}
		completed++
		passLog.Answers = answersMap(rec)
		passLog.CompletedAt = time.Now()
		runLog.Passes = append(runLog.Passes, passLog)

		fmt.Printf("\n--- Form Data Summary (pass %d) ---\n%s\n", pass, rec.SummaryText())
		fmt.Printf("Data saved to %s\n", r.cfg.CSVPath)

		if pass < r.cfg.Count {
			r.settle(ctx)
		}
	}

	runLog.StoppedReason = stopped
	runLog.CompletedAt = time.Now()
	if r.cfg.RunLogPath != "" {
		if err := writeJSON(r.cfg.RunLogPath, runLog); err != nil {
			return Result{}, fmt.Errorf("write run log: %w", err)
		}
	}

	return Result{Completed: completed, Failed: failed, StoppedReason: stopped}, nil
}

func (r *Runner) runPass(ctx context.Context, pass int) (*record.Record, error) {
	form, err := r.source.Open(ctx, r.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open form: %w", err)
	}
	fields, err := form.Fields()
	if err != nil {
		return nil, fmt.Errorf("list fields: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("form has no fields")
	}

	rec := record.New()
	for i, field := range fields {
		title := field.Title()
		sel, err := r.answerField(field)
		if err != nil {
			// A field with no selectable options is answered empty and the
			// pass continues; anything else is structural.
			if errors.Is(err, policy.ErrNoOptions) {
				fmt.Printf("warning: question %d (%s) has no selectable options\n", i+1, title)
				rec.Set(title, "")
				continue
			}
			return nil, fmt.Errorf("answer question %d (%s): %w", i+1, title, err)
		}
		if r.cfg.Verbose {
			marker := ""
			if sel.Preferred {
				marker = " [preferred]"
			}
			fmt.Printf("[pass %d/%d] question %d (%s): %s%s\n", pass, r.cfg.Count, i+1, title, sel.Answer, marker)
		}
		rec.Set(title, sel.Answer)
	}

	if err := form.Submit(); err != nil {
		return nil, fmt.Errorf("submit form: %w", err)
	}
	return rec, nil
}

func (r *Runner) answerField(field browser.Field) (policy.Selection, error) {
	switch field.Kind() {
	case browser.SingleSelect:
		opts, err := field.SingleOptions()
		if err != nil {
			return policy.Selection{}, err
		}
		return r.selector.SelectSingle(opts)
	case browser.MultiSelect:
		opts, err := field.MultiOptions()
		if err != nil {
			return policy.Selection{}, err
		}
		return r.selector.SelectMulti(opts)
	default:
		return policy.Selection{}, policy.ErrNoOptions
	}
}

// settle gives the confirmation page a moment before the next navigation.
func (r *Runner) settle(ctx context.Context) {
	if r.cfg.SettleSeconds <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(time.Duration(r.cfg.SettleSeconds) * time.Second):
	}
}

func answersMap(rec *record.Record) map[string]string {
	out := make(map[string]string, rec.Len())
	for _, k := range rec.Keys() {
		v, _ := rec.Get(k)
		out[k] = v
	}
	return out
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}
