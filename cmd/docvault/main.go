// Package main is the docvault CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/docvault/internal/cli"
	"github.com/hyperjump/docvault/internal/models"
	"github.com/hyperjump/docvault/internal/server"
	"github.com/hyperjump/docvault/internal/storage"
	"github.com/hyperjump/docvault/internal/watcher"
	"github.com/hyperjump/docvault/pkg/utils"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer(os.Args[2:])
	case "ingest":
		exitOnError(runIngest(os.Args[2:], os.Stdout))
	case "stats":
		exitOnError(runStats(os.Args[2:], os.Stdout))
	case "search":
		exitOnError(runSearch(os.Args[2:], os.Stdout))
	case "version", "--version", "-v":
		fmt.Printf("docvault version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServer(args []string) {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(args)

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if len(cfg.Inbox.Directories) > 0 {
		inbox := watcher.NewInbox(components.Uploads, cfg.Inbox.CompanyID, cfg.Inbox.UserID, logger)
		w := watcher.NewWatcher(cfg.Inbox.Directories, cfg.Upload.AllowedExtensions,
			func(path string) { inbox.Ingest(watchCtx, path) },
			watcher.WithLogger(logger),
		)
		if err := w.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start inbox watcher", zap.Error(err))
		}
		defer w.Stop()
		logger.Info("Inbox watcher started",
			zap.Strings("directories", w.Directories()),
			zap.Int64("company_id", cfg.Inbox.CompanyID),
		)
		go w.SyncExistingFiles()
	}

	srv := server.NewServer(
		components.Uploads,
		components.Engine,
		components.Storage,
		components.Blobs,
		components.KeywordIndex,
		&cfg.Server,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// commonFlags are shared by the one-shot commands.
type commonFlags struct {
	configPath string
	companyID  int64
	output     string
	debug      bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", defaultConfigPath, "config file path")
	fs.Int64Var(&c.companyID, "company", 0, "company ID (required)")
	fs.StringVar(&c.output, "output", "text", "output format: text or json")
	fs.BoolVar(&c.debug, "debug", false, "enable debug logging")
}

func (c *commonFlags) setup() (*Components, *zap.Logger, error) {
	if c.companyID <= 0 {
		return nil, nil, errors.New("--company must be a positive company ID")
	}
	cfg, _, err := loadConfig(c.configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := utils.NewCLILogger(cfg.Debug || c.debug)
	if err != nil {
		return nil, nil, err
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return components, logger, nil
}

// runIngest runs the upload pipeline on local files.
func runIngest(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	userID := fs.Int64("user", 0, "uploader user ID (required)")
	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}
	if *userID <= 0 {
		return errors.New("--user must be a positive user ID")
	}
	if fs.NArg() == 0 {
		return errors.New("usage: docvault ingest --company ID --user ID <file>...")
	}
	components, logger, err := common.setup()
	if err != nil {
		return err
	}
	defer components.Close()
	defer logger.Sync()

	result, err := components.Uploads.ProcessBatch(context.Background(), localFiles(fs.Args()), common.companyID, *userID)
	if err != nil {
		return err
	}
	return cli.WriteBatchResult(out, result, cli.ParseOutputFormat(common.output))
}

func localFiles(paths []string) []models.UploadedFile {
	files := make([]models.UploadedFile, 0, len(paths))
	for _, p := range paths {
		files = append(files, models.UploadedFile{
			Filename: filepath.Base(p),
			Open:     func() (io.ReadCloser, error) { return os.Open(p) },
		})
	}
	return files
}

func runStats(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	components, logger, err := common.setup()
	if err != nil {
		return err
	}
	defer components.Close()
	defer logger.Sync()

	stats, err := storage.Stats(context.Background(), components.Storage, common.companyID)
	if err != nil {
		return err
	}
	return cli.WriteStats(out, common.companyID, stats, cli.ParseOutputFormat(common.output))
}

func runSearch(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	limit := fs.Int("limit", 10, "number of results")
	offset := fs.Int("offset", 0, "number of results to skip")
	fuzzy := fs.Bool("fuzzy", false, "enable fuzzy matching for typo tolerance")
	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}
	queryText := buildSearchQuery(fs.Args())
	if queryText == "" {
		return errors.New("usage: docvault search --company ID <query>")
	}
	components, logger, err := common.setup()
	if err != nil {
		return err
	}
	defer components.Close()
	defer logger.Sync()

	response, err := components.Engine.Search(context.Background(), &models.SearchQuery{
		Query:        queryText,
		CompanyID:    common.companyID,
		Limit:        *limit,
		Offset:       *offset,
		FuzzyEnabled: *fuzzy,
	})
	if err != nil {
		return err
	}
	return cli.WriteSearchResults(out, response, cli.ParseOutputFormat(common.output))
}

func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// reorderArgs moves flags that follow positional arguments to the front,
// so "docvault search invoice --company 1" parses like "docvault search --company 1 invoice".
func reorderArgs(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func printUsage() {
	fmt.Println(`docvault - Multi-tenant document store with text extraction

Usage:
  docvault server [flags]                 Start the HTTP server (and inbox watcher)
  docvault ingest [flags] <file>...       Upload local files for a company
  docvault stats [flags]                  Show document counts for a company
  docvault search [flags] <query>         Search extracted content
  docvault version                        Show version
  docvault help                           Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/docvault/config.yaml)
  --debug            Enable debug logging

Ingest / Stats / Search Flags:
  --company int      Company ID (required)
  --output string    Output format: text or json (default: text)

Ingest Flags:
  --user int         Uploader user ID (required)

Search Flags:
  --limit int        Number of results (default: 10)
  --offset int       Results to skip (default: 0)
  --fuzzy            Enable fuzzy matching for typo tolerance

Examples:
  docvault server
  docvault ingest --company 1 --user 7 invoice.pdf scan.png
  docvault stats --company 1 --output json
  docvault search --company 1 "supplier contract"`)
}
