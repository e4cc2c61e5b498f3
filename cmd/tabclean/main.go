// Command tabclean loads a CSV, TXT or PDF table, optionally cleans its
// missing values, renders a chart and saves the result.
//
// Usage:
//
//	tabclean -in data.csv -clean -policy ask -out cleaned.csv
//	tabclean -in report.pdf -chart "Box Plot" -chart-out box.png
//	tabclean -in data.txt -clean -policy fill -chart Heatmap > heatmap.json
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"

	"github.com/brunobiangulo/tabclean"
	"github.com/brunobiangulo/tabclean/chart"
	"github.com/brunobiangulo/tabclean/clean"
	"github.com/brunobiangulo/tabclean/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Load .env file if it exists.
	_ = godotenv.Load()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type options struct {
	config   string
	in       string
	clean    bool
	policy   string
	chart    string
	chartOut string
	out      string
	history  bool
}

var errUsage = errors.New("usage")

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("tabclean", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.config, "config", "", "Path to config file (YAML or JSON)")
	fs.StringVar(&o.in, "in", "", "Input file (.csv, .txt or .pdf)")
	fs.BoolVar(&o.clean, "clean", false, "Resolve missing values")
	fs.StringVar(&o.policy, "policy", "", "Cleaning policy: drop, fill or ask (default from config)")
	fs.StringVar(&o.chart, "chart", "", "Chart type, e.g. \"Box Plot\" (see -chart list)")
	fs.StringVar(&o.chartOut, "chart-out", "", "Chart output file (.png, .svg or .json); stdout when empty")
	fs.StringVar(&o.out, "out", "", "Save the dataset to this file (.csv or .xlsx)")
	fs.BoolVar(&o.history, "history", false, "Record operations in the history database")
	if err := fs.Parse(args); err != nil {
		return o, errUsage
	}
	if o.in == "" && o.chart != "list" {
		fmt.Fprintln(stderr, "tabclean: -in is required")
		fs.Usage()
		return o, errUsage
	}
	return o, nil
}

// run executes one pipeline and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return 2
	}
	if o.chart == "list" {
		for _, k := range chart.Kinds() {
			fmt.Fprintln(stdout, k)
		}
		return 0
	}

	cfg, err := tabclean.LoadConfig(o.config)
	if err != nil {
		fmt.Fprintln(stderr, tabclean.Notice(err))
		return 1
	}
	cfg.History = o.history
	logging.Setup(cfg.LogLevel, cfg.LogFormat, stderr)

	sess, err := tabclean.New(cfg)
	if err != nil {
		fmt.Fprintln(stderr, tabclean.Notice(err))
		return 1
	}
	defer sess.Close()

	if err := pipeline(ctx, sess, cfg, o, stdin, stdout); err != nil {
		slog.Debug("pipeline failed", "error", err)
		fmt.Fprintln(stderr, tabclean.Notice(err))
		return 1
	}
	return 0
}

func pipeline(ctx context.Context, sess tabclean.Session, cfg tabclean.Config, o options, stdin io.Reader, stdout io.Writer) error {
	// Validate the chart before doing any work.
	var kind chart.Kind
	if o.chart != "" {
		k, err := chart.ParseKind(o.chart)
		if err != nil {
			return err
		}
		kind = k
	}

	info, err := sess.Load(ctx, o.in)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Dataset loaded: %d rows, %d columns, %d missing values\n",
		info.Summary.Rows, info.Summary.Cols, info.Summary.Missing)
	fmt.Fprintln(stdout, info.Head)

	if o.clean {
		decide, err := policyFunc(o.policy, cfg, stdin, stdout)
		if err != nil {
			return err
		}
		rep, err := sess.Clean(ctx, decide)
		if err != nil {
			return err
		}
		printReport(stdout, rep)
	}

	if o.chart != "" {
		if err := writeChart(ctx, sess, kind, o.chartOut, stdout); err != nil {
			return err
		}
	}

	if o.out != "" {
		if err := sess.Save(ctx, o.out); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Data saved to %s\n", o.out)
	}
	return nil
}

// policyFunc turns the -policy flag (or the configured default) into the
// hook Session.Clean consults.
func policyFunc(flagValue string, cfg tabclean.Config, stdin io.Reader, stdout io.Writer) (clean.PolicyFunc, error) {
	choice := flagValue
	if choice == "" {
		choice = cfg.DefaultPolicy
	}
	if strings.EqualFold(strings.TrimSpace(choice), "ask") || choice == "" {
		return promptPolicy(stdin, stdout), nil
	}
	p, err := clean.ParsePolicy(choice)
	if err != nil {
		return nil, err
	}
	return clean.Fixed(p), nil
}

func printReport(w io.Writer, rep clean.Report) {
	if rep.Skipped {
		fmt.Fprintln(w, "No missing values found.")
		return
	}
	switch rep.Policy {
	case clean.DropRows:
		fmt.Fprintf(w, "Dropped %d rows with missing values (%d rows left).\n", rep.RowsBefore-rep.RowsAfter, rep.RowsAfter)
	case clean.FillMeanMode:
		fmt.Fprintf(w, "Filled %d missing values with column mean/mode.\n", rep.MissingBefore-rep.MissingAfter)
	}
	for _, warn := range rep.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warn.Message)
	}
}

func writeChart(ctx context.Context, sess tabclean.Session, kind chart.Kind, path string, stdout io.Writer) error {
	if path == "" {
		_, err := sess.Visualize(ctx, kind, chart.FormatECharts, stdout)
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := sess.Visualize(ctx, kind, chart.FormatForPath(path), f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s written to %s\n", kind, path)
	return nil
}
