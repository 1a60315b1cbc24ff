// Command slrextract runs a literature-review extraction from the command
// line, or serves the HTTP API with -serve.
//
//	slrextract -instruction-file prompt.md -text abstracts.txt
//	slrextract -instruction "Extract sample sizes" paper1.pdf paper2.pdf
//	slrextract -csv scopus.csv -dry-run
//	slrextract -serve
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
	"syscall"

	"github.com/joho/godotenv"
	"google.golang.org/genai"

	slr "github.com/vivaneiona/genkit-slr"
	"github.com/vivaneiona/genkit-slr/internal/config"
	"github.com/vivaneiona/genkit-slr/internal/logging"
	"github.com/vivaneiona/genkit-slr/internal/server"
)

type cliFlags struct {
	configPath      string
	instruction     string
	instructionFile string
	textPath        string
	csvPath         string
	out             string
	dryRun          bool
	serve           bool
	files           []string
}

func parseFlags(args []string, stderr io.Writer) (*cliFlags, error) {
	fs := flag.NewFlagSet("slrextract", flag.ContinueOnError)
	fs.SetOutput(stderr)

	f := &cliFlags{}
	fs.StringVar(&f.configPath, "config", "", "YAML config file")
	fs.StringVar(&f.instruction, "instruction", "", "extraction instruction (system prompt)")
	fs.StringVar(&f.instructionFile, "instruction-file", "", "read the instruction from a file")
	fs.StringVar(&f.textPath, "text", "", `file of "ID <n>:" records, "-" for stdin`)
	fs.StringVar(&f.csvPath, "csv", "", "CSV export with id/title/abstract columns")
	fs.StringVar(&f.out, "out", "", "bucket URL for exports (file:///dir, s3://..., gs://...)")
	fs.BoolVar(&f.dryRun, "dry-run", false, "print the request plan without calling the model")
	fs.BoolVar(&f.serve, "serve", false, "serve the HTTP API")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: slrextract [flags] [file ...]")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	f.files = fs.Args()
	return f, nil
}

func main() {
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		slog.Error("slrextract failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	f, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	if f.out != "" {
		cfg.Export.BucketURL = f.out
	}
	log := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, stderr)

	prompts, err := cfg.Prompts()
	if err != nil {
		return err
	}
	opts := append(cfg.ExtractorOptions(), slr.WithPrompts(prompts), slr.WithLogger(log))

	var sink *slr.Sink
	if cfg.Export.BucketURL != "" {
		sink, err = slr.OpenSink(ctx, cfg.Export.BucketURL, log)
		if err != nil {
			return err
		}
		defer sink.Close()
	}

	if f.serve {
		inv, err := newInvoker(ctx, cfg, log)
		if err != nil {
			return err
		}
		return serve(ctx, cfg, inv, opts, sink, log)
	}

	in, err := buildInput(ctx, f, stdin)
	if err != nil {
		return err
	}

	if f.dryRun {
		x := slr.NewWithInvoker(slr.InvokerFunc(func(context.Context, slr.Request) (string, error) {
			return "", errors.New("dry run: model calls are disabled")
		}), opts...)
		plan, err := x.Plan(in)
		if err != nil {
			return err
		}
		fmt.Fprint(stdout, plan.Text())
		return nil
	}

	inv, err := newInvoker(ctx, cfg, log)
	if err != nil {
		return err
	}
	x := slr.NewWithInvoker(inv, append(opts, slr.WithObserver(progressLogger(log)))...)

	res, runErr := x.Run(ctx, in)
	if res == nil {
		return runErr
	}
	fmt.Fprintln(stdout, res.Table)

	if sink != nil {
		prefix := fmt.Sprintf("%s/%s/table", cfg.Export.Prefix, res.RunID)
		keys, err := sink.ExportResult(context.WithoutCancel(ctx), prefix, res.Table, cfg.Export.Compress)
		if err != nil {
			log.Warn("Export incomplete", "keys", keys, "error", err)
		} else {
			log.Info("Exported results", "bucket", cfg.Export.BucketURL, "keys", keys)
		}
	}
	return runErr
}

// buildInput picks the run mode: positional files win, then -csv, then -text.
func buildInput(ctx context.Context, f *cliFlags, stdin io.Reader) (slr.Input, error) {
	instruction := f.instruction
	if f.instructionFile != "" {
		b, err := os.ReadFile(f.instructionFile)
		if err != nil {
			return slr.Input{}, fmt.Errorf("read instruction: %w", err)
		}
		instruction = string(b)
	}

	switch {
	case len(f.files) > 0:
		files, err := slr.LoadFiles(ctx, f.files)
		if err != nil {
			return slr.Input{}, err
		}
		return slr.Input{Mode: slr.ModeFile, Files: files, Instruction: instruction}, nil

	case f.csvPath != "":
		file, err := os.Open(f.csvPath)
		if err != nil {
			return slr.Input{}, fmt.Errorf("open csv: %w", err)
		}
		defer file.Close()
		text, err := slr.IngestCSVNamed(file, f.csvPath)
		if err != nil {
			return slr.Input{}, err
		}
		return slr.Input{Mode: slr.ModeText, Text: text, Instruction: instruction}, nil

	case f.textPath != "":
		var (
			b   []byte
			err error
		)
		if f.textPath == "-" {
			b, err = io.ReadAll(stdin)
		} else {
			b, err = os.ReadFile(f.textPath)
		}
		if err != nil {
			return slr.Input{}, fmt.Errorf("read text: %w", err)
		}
		return slr.Input{Mode: slr.ModeText, Text: string(b), Instruction: instruction}, nil
	}
	return slr.Input{}, errors.New("no input: pass files, -csv or -text")
}

func newInvoker(ctx context.Context, cfg *config.Config, log *slog.Logger) (slr.Invoker, error) {
	if strings.TrimSpace(cfg.Model.APIKey) == "" {
		return nil, errors.New("GEMINI_API_KEY is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  cfg.Model.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return slr.NewGenaiInvoker(client, log), nil
}

func serve(ctx context.Context, cfg *config.Config, inv slr.Invoker, opts []slr.Option, sink *slr.Sink, log *slog.Logger) error {
	srv := server.New(inv, server.Options{
		Extractor:      opts,
		Sink:           sink,
		ExportPrefix:   cfg.Export.Prefix,
		Compress:       cfg.Export.Compress,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		ReadTimeout:    cfg.Server.ReadTimeout,
		Logger:         log,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(cfg.Server.Addr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// progressLogger logs each unit transition once.
func progressLogger(log *slog.Logger) slr.Observer {
	seen := map[string]slr.Status{}
	return func(s slr.Snapshot) {
		for _, u := range s.Units {
			if seen[u.ID] == u.Status {
				continue
			}
			seen[u.ID] = u.Status
			log.Info("Progress", "unit", u.Name, "status", u.Status, "completed", s.Completed, "total", s.Total)
		}
	}
}
