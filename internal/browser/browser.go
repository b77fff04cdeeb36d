// Package browser drives the survey form in a real browser via playwright-go
// and exposes it as fields, options, and a submit action.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/igolaizola/formfill/internal/policy"
)

// UnknownQuestion is the sentinel title used when extraction fails.
const UnknownQuestion = "Unknown Question"

// FieldKind tags how a field renders its options.
type FieldKind int

const (
	Unknown FieldKind = iota
	SingleSelect
	MultiSelect
)

func (k FieldKind) String() string {
	switch k {
	case SingleSelect:
		return "single-select"
	case MultiSelect:
		return "multi-select"
	default:
		return "unknown"
	}
}

// Selectors identifies the form controls on the page.
type Selectors struct {
	Fields        string `yaml:"fields"`
	Option        string `yaml:"option"`
	MultiOption   string `yaml:"multi_option"`
	QuestionTitle string `yaml:"question_title"`
	SendButton    string `yaml:"send_button"`
}

// DefaultSelectors targets the current Google Forms markup.
func DefaultSelectors() Selectors {
	return Selectors{
		Fields:        ".geS5n",
		Option:        ".nWQGrd.zwllIb",
		MultiOption:   ".eBFwI",
		QuestionTitle: ".M7eMe",
		SendButton:    ".l4V7wb.Fxmcue",
	}
}

// Source yields one loaded form per pass.
type Source interface {
	Open(ctx context.Context, url string) (Form, error)
	Close() error
}

// Form is one loaded form instance.
type Form interface {
	Fields() ([]Field, error)
	Submit() error
}

// Field is one question on the form. Kind is an explicit capability probe:
// it reports which option rendering the field actually exposes instead of
// inferring the type from a failed lookup.
type Field interface {
	Title() string
	Kind() FieldKind
	SingleOptions() ([]policy.Option, error)
	MultiOptions() ([]policy.Option, error)
}

type Options struct {
	Headless       bool
	TimeoutSeconds int
	Selectors      Selectors
}

// Playwright implements Source on a Chromium page.
type Playwright struct {
	pw        *playwright.Playwright
	browser   playwright.Browser
	page      playwright.Page
	selectors Selectors
	timeout   time.Duration
}

func New(opts Options) (*Playwright, error) {
	sel := opts.Selectors
	if sel == (Selectors{}) {
		sel = DefaultSelectors()
	}
	timeout := time.Duration(opts.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	page, err := browser.NewPage(playwright.BrowserNewPageOptions{
		Viewport: &playwright.Size{Width: 1280, Height: 800},
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("create page: %w", err)
	}
	page.SetDefaultTimeout(float64(timeout.Milliseconds()))

	return &Playwright{
		pw:        pw,
		browser:   browser,
		page:      page,
		selectors: sel,
		timeout:   timeout,
	}, nil
}

func (p *Playwright) Open(ctx context.Context, url string) (Form, error) {
	if _, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(p.timeout.Milliseconds())),
	}); err != nil {
		return nil, fmt.Errorf("open form %s: %w", url, err)
	}
	if err := p.waitForFields(ctx); err != nil {
		return nil, err
	}
	return &pageForm{p: p}, nil
}

// waitForFields polls until the field count is non-zero and stable across
// two consecutive polls, instead of sleeping a fixed duration and hoping the
// page has rendered.
func (p *Playwright) waitForFields(ctx context.Context) error {
	deadline := time.Now().Add(p.timeout)
	last := -1
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		count, err := p.page.Locator(p.selectors.Fields).Count()
		if err != nil {
			count = -1
		}
		if count > 0 && count == last {
			return nil
		}
		last = count
		if time.Now().After(deadline) {
			return fmt.Errorf("form fields did not stabilize within %s", p.timeout)
		}
		time.Sleep(250 * time.Millisecond)
	}
}

func (p *Playwright) Close() error {
	var errs []error
	if p.page != nil {
		if err := p.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close page: %w", err))
		}
	}
	if p.browser != nil {
		if err := p.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if p.pw != nil {
		if err := p.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop playwright: %w", err))
		}
	}
	return errors.Join(errs...)
}

type pageForm struct {
	p *Playwright
}

func (f *pageForm) Fields() ([]Field, error) {
	root := f.p.page.Locator(f.p.selectors.Fields)
	count, err := root.Count()
	if err != nil {
		return nil, fmt.Errorf("count form fields: %w", err)
	}
	out := make([]Field, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, &pageField{p: f.p, loc: root.Nth(i)})
	}
	return out, nil
}

func (f *pageForm) Submit() error {
	if err := f.p.page.Locator(f.p.selectors.SendButton).First().Click(); err != nil {
		return fmt.Errorf("click send button: %w", err)
	}
	return nil
}

type pageField struct {
	p   *Playwright
	loc playwright.Locator
}

func (f *pageField) Title() string {
	title := f.loc.Locator(f.p.selectors.QuestionTitle)
	count, err := title.Count()
	if err != nil || count == 0 {
		return UnknownQuestion
	}
	text, err := title.First().TextContent()
	if err != nil || strings.TrimSpace(text) == "" {
		return UnknownQuestion
	}
	return strings.TrimSpace(text)
}

func (f *pageField) Kind() FieldKind {
	single, err := f.loc.Locator(f.p.selectors.Option).Count()
	if err != nil {
		single = 0
	}
	multi, err := f.loc.Locator(f.p.selectors.MultiOption).Count()
	if err != nil {
		multi = 0
	}
	return classifyKind(single, multi)
}

func (f *pageField) SingleOptions() ([]policy.Option, error) {
	return f.options(f.p.selectors.Option)
}

func (f *pageField) MultiOptions() ([]policy.Option, error) {
	return f.options(f.p.selectors.MultiOption)
}

func (f *pageField) options(selector string) ([]policy.Option, error) {
	root := f.loc.Locator(selector)
	count, err := root.Count()
	if err != nil {
		return nil, fmt.Errorf("count options: %w", err)
	}
	out := make([]policy.Option, 0, count)
	for i := 0; i < count; i++ {
		loc := root.Nth(i)
		text, err := loc.TextContent()
		if err != nil {
			text = ""
		}
		out = append(out, &pageOption{loc: loc, text: strings.TrimSpace(text)})
	}
	return out, nil
}

func classifyKind(single, multi int) FieldKind {
	switch {
	case single > 0:
		return SingleSelect
	case multi > 0:
		return MultiSelect
	default:
		return Unknown
	}
}

type pageOption struct {
	loc  playwright.Locator
	text string
}

func (o *pageOption) Text() string { return o.text }

func (o *pageOption) Activate() error {
	if err := o.loc.Click(); err != nil {
		return fmt.Errorf("click option: %w", err)
	}
	return nil
}
