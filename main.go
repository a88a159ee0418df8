package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
)

// Version is set at build time via -ldflags
var Version = "dev"

// runner is the part of App that run drives.
type runner interface {
	ApplyOptions(opts AppOptions)
	Init(ctx context.Context) error
	RunImport(ctx context.Context, w io.Writer) error
	RunSummary(w io.Writer)
	RunService()
}

func main() {
	if err := run(os.Args[1:], os.Stdout, NewApp()); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		log.Fatalf("%v", err)
	}
}

// run parses args, initializes app and dispatches to the selected mode.
func run(args []string, out io.Writer, app runner) error {
	fs := flag.NewFlagSet("plannotate", flag.ContinueOnError)
	fs.SetOutput(out)
	configFile := fs.String("config", "config.yaml", "Path to configuration file")
	storePath := fs.String("store", "", "Snapshot file (overrides storage.path)")
	httpMode := fs.Bool("http", false, "Serve the annotation API over HTTP")
	httpPort := fs.Int("http-port", 0, "HTTP server port (overrides http.port)")
	importFile := fs.String("import", "", "Import rooms from a CSV file and exit")
	importFloor := fs.String("floor", "", "Floor id for --import (default: active floor)")
	summaryOnly := fs.Bool("summary", false, "Print the stored building summary and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintf(out, "plannotate version: %s\n", Version)

	explicit := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			explicit = true
		}
	})

	app.ApplyOptions(AppOptions{
		ConfigFile:     *configFile,
		ConfigExplicit: explicit,
		StorePath:      *storePath,
		HttpPort:       *httpPort,
		ImportFile:     *importFile,
		ImportFloor:    *importFloor,
	})

	ctx := context.Background()
	if err := app.Init(ctx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	switch {
	case *importFile != "":
		if err := app.RunImport(ctx, out); err != nil {
			return fmt.Errorf("import failed: %w", err)
		}
	case *summaryOnly:
		app.RunSummary(out)
	case *httpMode:
		app.RunService()
	default:
		fmt.Fprintln(out, "Use --http to serve the annotation API")
		fmt.Fprintln(out, "Use --import=FILE [--floor=ID] to import rooms from CSV")
		fmt.Fprintln(out, "Use --summary to print the stored building")
	}
	return nil
}
