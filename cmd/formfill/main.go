package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/igolaizola/formfill/internal/browser"
	"github.com/igolaizola/formfill/internal/run"
)

func main() {
	var cfg run.Config
	var configPath string
	var preferences string

	flag.StringVar(&cfg.URL, "url", "", "Survey form URL")
	flag.IntVar(&cfg.Count, "count", 0, "Number of passes to run (0 = ask interactively)")
	flag.StringVar(&cfg.CSVPath, "csv", "form_responses.csv", "Path to the append-only response log")
	flag.StringVar(&configPath, "config", "", "Optional YAML config file (url, csv, preferences, probability, selectors)")
	flag.StringVar(&preferences, "preferences", "", "Comma-separated preferred answers (overrides config file)")
	flag.Float64Var(&cfg.Probability, "probability", run.DefaultProbability, "Chance of honoring a matched preference")
	flag.BoolVar(&cfg.Headless, "headless", true, "Run the browser headless")
	flag.IntVar(&cfg.TimeoutSeconds, "timeout-seconds", 30, "Per-navigation timeout")
	flag.IntVar(&cfg.SettleSeconds, "settle-seconds", 2, "Pause after each submit before the next pass")
	flag.StringVar(&cfg.RunLogPath, "run-log", "", "Optional path for a JSON run log artifact")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "Enable verbose logs")
	flag.Parse()

	if configPath != "" {
		if err := cfg.LoadFile(configPath); err != nil {
			log.Fatalf("load config: %v", err)
		}
	}
	if preferences != "" {
		cfg.Preferences = splitComma(preferences)
	}
	if len(cfg.Preferences) == 0 {
		cfg.Preferences = run.DefaultPreferences()
	}

	if cfg.URL == "" {
		fmt.Fprintln(os.Stderr, "error: --url (or a config file with url) is required")
		flag.Usage()
		os.Exit(2)
	}

	if cfg.Count <= 0 {
		count, err := promptCount(os.Stdin)
		if err != nil {
			log.Fatalf("read pass count: %v", err)
		}
		cfg.Count = count
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid flags: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Println("Starting browser...")
	source, err := browser.New(browser.Options{
		Headless:       cfg.Headless,
		TimeoutSeconds: cfg.TimeoutSeconds,
		Selectors:      cfg.Selectors,
	})
	if err != nil {
		log.Fatalf("start browser: %v", err)
	}

	runner := run.NewRunner(cfg, source)
	result, err := runner.Execute(ctx)
	closeErr := source.Close()
	if err != nil {
		log.Fatalf("run failed: %v", err)
	}
	if closeErr != nil {
		fmt.Printf("warning: browser shutdown: %v\n", closeErr)
	}

	fmt.Printf("passes completed: %d\n", result.Completed)
	fmt.Printf("passes failed: %d\n", result.Failed)
	fmt.Printf("stopped: %s\n", result.StoppedReason)
	fmt.Printf("responses: %s\n", cfg.CSVPath)
	fmt.Printf("completed at: %s\n", time.Now().Format(time.RFC3339))
}

func promptCount(in io.Reader) (int, error) {
	fmt.Print("How many forms to fill? ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return 0, err
	}
	count, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", strings.TrimSpace(line))
	}
	return count, nil
}

func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
