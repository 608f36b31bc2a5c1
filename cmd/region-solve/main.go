// Package main provides the region-solve debugging tool. It loads a
// YAML fixture describing one body's region inference inputs, runs the
// solver, and renders the resulting diagnostics. A watch mode re-solves
// whenever the fixture changes, and an interactive mode opens a small
// query shell over the solved context.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"

	"github.com/orizon-lang/regionck/internal/diag"
	"github.com/orizon-lang/regionck/internal/fixture"
	"github.com/orizon-lang/regionck/internal/region"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version information")
		dumpValues  = flag.Bool("dump", false, "dump the solved value of every region variable")
		watch       = flag.Bool("watch", false, "watch the fixture file and re-solve on change")
		interactive = flag.Bool("interactive", false, "open a query shell over the solved context")
		noColor     = flag.Bool("no-color", false, "disable colored output")
	)

	flag.Parse()

	if *showVersion {
		fmt.Printf("region-solve v%s (%s)\n", version, commit)
		return
	}

	if *noColor || !isatty.IsTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: region-solve [flags] <fixture.yaml>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	path := args[0]

	if *watch {
		if err := watchAndSolve(path, *dumpValues); err != nil {
			log.Fatalf("region-solve: %v", err)
		}
		return
	}

	cx, hadErrors, err := solveOnce(path, *dumpValues)
	if err != nil {
		log.Fatalf("region-solve: %v", err)
	}

	if *interactive {
		runShell(cx)
		return
	}

	if hadErrors {
		os.Exit(1)
	}
}

// solveOnce loads, solves, and renders one fixture. It returns the
// solved context for interactive querying.
func solveOnce(path string, dump bool) (*region.InferContext, bool, error) {
	f, err := fixture.Load(path)
	if err != nil {
		return nil, false, err
	}

	cx, err := f.Build()
	if err != nil {
		return nil, false, err
	}

	buf := diag.NewBuffer()
	requirements := cx.Solve(f.Closure, buf)

	for _, d := range buf.All() {
		renderDiagnostic(d)
	}

	if requirements != nil {
		heading := color.New(color.FgCyan, color.Bold)
		heading.Printf("promoted %d requirement(s) to the creator:\n", len(requirements.OutlivesRequirements))
		for _, req := range requirements.OutlivesRequirements {
			fmt.Printf("  %s (blamed at %s)\n", req, req.BlameSpan)
		}
	}

	if dump {
		for v := 0; v < cx.NumVars(); v++ {
			fmt.Printf("%s = %s\n", region.VarID(v), cx.RegionValueString(region.VarID(v)))
		}
	}

	if buf.Len() == 0 && requirements == nil {
		color.New(color.FgGreen).Println("ok: all obligations satisfied")
	}

	return cx, buf.HasErrors(), nil
}

func renderDiagnostic(d diag.Diagnostic) {
	level := color.New(color.FgRed, color.Bold)
	if d.Level != diag.LevelError {
		level = color.New(color.FgYellow, color.Bold)
	}
	level.Printf("%s[%s]", d.Level, d.Category)
	fmt.Printf(": %s", d.Message)
	if d.Span.IsValid() {
		fmt.Printf("\n  --> %s", d.Span)
	}
	for _, label := range d.Labels {
		fmt.Printf("\n  note: %s (%s)", label.Message, label.Span)
	}
	fmt.Println()
}

// watchAndSolve re-runs the solver whenever the fixture file is
// written. Solve failures are logged, not fatal, so edits with
// transient syntax errors keep the loop alive.
func watchAndSolve(path string, dump bool) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(path); err != nil {
		return err
	}

	log.Printf("watching %s", path)
	if _, _, err := solveOnce(path, dump); err != nil {
		log.Printf("solve failed: %v", err)
	}

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			log.Printf("%s changed; re-solving", path)
			if _, _, err := solveOnce(path, dump); err != nil {
				log.Printf("solve failed: %v", err)
			}
			// Some editors replace the file on save; re-arm the watch.
			_ = w.Add(path)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch error: %v", err)
		}
	}
}

// runShell answers queries over a solved context until EOF or quit.
func runShell(cx *region.InferContext) {
	l := liner.NewLiner()
	defer l.Close()
	l.SetCtrlCAborts(true)

	fmt.Println("commands: value <r> | universe <r> | outlives <sup> <sub> | contains <r> <other> | vid <name> | quit")

	for {
		line, err := l.Prompt("region> ")
		if err != nil {
			fmt.Println()
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		l.AppendHistory(line)
		if line == "quit" || line == "exit" {
			return
		}
		if out, err := evalQuery(cx, line); err != nil {
			fmt.Printf("error: %v\n", err)
		} else {
			fmt.Println(out)
		}
	}
}

func evalQuery(cx *region.InferContext, line string) (string, error) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	parseVar := func(s string) (region.VarID, error) {
		if v, ok := cx.ToRegionVid(s); ok {
			return v, nil
		}
		n, err := strconv.Atoi(strings.TrimPrefix(s, "'?"))
		if err != nil || n < 0 || n >= cx.NumVars() {
			return 0, fmt.Errorf("unknown region %q", s)
		}
		return region.VarID(n), nil
	}

	need := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%s takes %d argument(s)", cmd, n)
		}
		return nil
	}

	switch cmd {
	case "value":
		if err := need(1); err != nil {
			return "", err
		}
		v, err := parseVar(args[0])
		if err != nil {
			return "", err
		}
		return cx.RegionValueString(v), nil

	case "universe":
		if err := need(1); err != nil {
			return "", err
		}
		v, err := parseVar(args[0])
		if err != nil {
			return "", err
		}
		return cx.RegionUniverse(v).String(), nil

	case "outlives":
		if err := need(2); err != nil {
			return "", err
		}
		sup, err := parseVar(args[0])
		if err != nil {
			return "", err
		}
		sub, err := parseVar(args[1])
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(cx.EvalOutlives(sup, sub)), nil

	case "contains":
		if err := need(2); err != nil {
			return "", err
		}
		v, err := parseVar(args[0])
		if err != nil {
			return "", err
		}
		other, err := parseVar(args[1])
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(cx.RegionContains(v, region.RegionElement(other))), nil

	case "vid":
		if err := need(1); err != nil {
			return "", err
		}
		v, ok := cx.ToRegionVid(args[0])
		if !ok {
			return "", fmt.Errorf("no region named %q", args[0])
		}
		return v.String(), nil

	default:
		return "", fmt.Errorf("unknown command %q", cmd)
	}
}
