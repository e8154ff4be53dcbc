// Package main is the Ronbun CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
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

	"github.com/hyperjump/ronbun/internal/catalog"
	"github.com/hyperjump/ronbun/internal/cli"
	"github.com/hyperjump/ronbun/internal/config"
	"github.com/hyperjump/ronbun/internal/embedding"
	"github.com/hyperjump/ronbun/internal/figures"
	"github.com/hyperjump/ronbun/internal/ingest"
	"github.com/hyperjump/ronbun/internal/models"
	"github.com/hyperjump/ronbun/internal/parse"
	"github.com/hyperjump/ronbun/internal/retrieval"
	"github.com/hyperjump/ronbun/internal/server"
	"github.com/hyperjump/ronbun/internal/vectorstore"
	"github.com/hyperjump/ronbun/internal/watcher"
	"github.com/hyperjump/ronbun/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/ronbun/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so that "ronbun server" from the project dir uses the project's
// config. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "query":
		runQuery()
	case "watch":
		runWatch()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("ronbun version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Embedder     embedding.Embedder
	Store        *vectorstore.ChromemStore
	Catalog      *catalog.SQLiteCatalog
	Orchestrator *ingest.Orchestrator
	Engine       *retrieval.Engine
}

func (c *Components) Close() {
	if c.Catalog != nil {
		_ = c.Catalog.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	store, err := vectorstore.NewChromemStore(
		cfg.Paths.StoreDir,
		embedder.ModelID(),
		cfg.Embedding.Dimensions,
		vectorstore.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}

	cat, err := catalog.New(cfg.Paths.CatalogPath, catalog.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize catalog: %w", err)
	}

	parser := parse.NewParser()
	filter := figures.NewFilter(cfg.Figures)
	extractor := figures.NewExtractor(cfg.Paths.FiguresDir, filter, figures.WithExtractorLogger(logger))
	chunker := ingest.NewChunker(cfg.Chunking.MaxChars)

	orchOpts := []ingest.Option{ingest.WithLogger(logger)}
	if debug {
		orchOpts = append(orchOpts, ingest.WithDebugDumps())
	}
	orch := ingest.NewOrchestrator(ingest.Deps{
		Parser:    parser,
		Extractor: extractor,
		Chunker:   chunker,
		Embedder:  embedder,
		Store:     store,
		Catalog:   cat,
	}, cfg.Paths.InputDir, cfg.Paths.FiguresDir, cfg.Ingest.Workers, orchOpts...)

	resolver := figures.NewResolver(cat, cfg.Retrieval.AdjacencyWindow)
	engine := retrieval.NewEngine(embedder, store, resolver, cfg.Retrieval, retrieval.WithLogger(logger))

	return &Components{
		Embedder:     embedder,
		Store:        store,
		Catalog:      cat,
		Orchestrator: orch,
		Engine:       engine,
	}, nil
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging and parsed-content dumps")
	_ = fs.Parse(os.Args[2:])

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

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(
		components.Engine,
		components.Orchestrator,
		components.Catalog,
		components.Store,
		cfg.Paths.FiguresDir,
		&cfg.Server,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	debug := fs.Bool("debug", false, "enable debug logging and parsed-content dumps")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	report, err := components.Orchestrator.Run(context.Background(), fs.Args()...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteIngestReport(os.Stdout, report, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
	if len(report.Failed()) > 0 {
		os.Exit(2)
	}
}

// queryOptions are the query command's flags. Flags must precede the
// question: parsing stops at the first non-flag token, so hyphenated words
// inside the question ("attention -based models") stay part of the query.
type queryOptions struct {
	configPath string
	serverURL  string
	topK       int
	maxFigures int
	output     string
}

func parseQueryArgs(args []string) (queryOptions, string, error) {
	var opts queryOptions
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", defaultConfigPath, "config file path")
	fs.StringVar(&opts.serverURL, "server", "http://localhost:8080", `server URL (empty = answer directly from the local store)`)
	fs.IntVar(&opts.topK, "top-k", 0, "number of chunks to retrieve (0 = config default)")
	fs.IntVar(&opts.maxFigures, "figures", 0, "maximum figures to attach (0 = config default)")
	fs.StringVar(&opts.output, "output", "text", "output format: text or json")
	if err := fs.Parse(args); err != nil {
		return opts, "", err
	}
	return opts, strings.TrimSpace(strings.Join(fs.Args(), " ")), nil
}

func runQuery() {
	opts, queryStr, err := parseQueryArgs(os.Args[2:])
	if err != nil {
		// The flag package already printed the problem.
		os.Exit(1)
	}
	if queryStr == "" {
		fmt.Println("Usage: ronbun query [flags] <question>")
		os.Exit(1)
	}
	format, err := cli.ParseFormat(opts.output)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	request := &models.QueryRequest{Query: queryStr, TopK: opts.topK, MaxFigures: opts.maxFigures}

	if opts.serverURL != "" {
		// Use the HTTP API when the server is running (avoids opening the
		// store twice).
		response, err := queryViaHTTP(opts.serverURL, request)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteQueryResponse(os.Stdout, response, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, _, err := loadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	response, err := components.Engine.Answer(context.Background(), request.Query, request.TopK, request.MaxFigures)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteQueryResponse(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func queryViaHTTP(serverURL string, request *models.QueryRequest) (*models.QueryResponse, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/query", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runWatch() {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging and parsed-content dumps")
	skipInitial := fs.Bool("skip-initial", false, "do not run a full ingest on startup")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
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

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	reingest := func() {
		report, err := components.Orchestrator.Run(context.Background())
		if err != nil {
			logger.Error("re-ingest failed", zap.Error(err))
			return
		}
		logger.Info("re-ingest finished",
			zap.String("run_id", report.RunID),
			zap.Int("documents", len(report.Documents)),
			zap.Int("failed", len(report.Failed())))
	}

	if !*skipInitial {
		reingest()
	}

	w := watcher.NewWatcher(
		cfg.Paths.InputDir,
		reingest,
		watcher.WithDebounce(time.Duration(cfg.Watch.Debounce())*time.Millisecond),
		watcher.WithLogger(logger),
	)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := w.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	logger.Info("watching for changes", zap.String("input_dir", cfg.Paths.InputDir))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	w.Stop()
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = read the local store directly)`)
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	type statusPayload struct {
		Phase     string `json:"phase"`
		Documents int    `json:"documents"`
		Failed    int    `json:"failed"`
		Chunks    int    `json:"chunks"`
	}
	var status statusPayload

	if *serverURL != "" {
		resp, err := http.Get(*serverURL + "/api/v1/status")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger, cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()

		docs, err := components.Catalog.Documents(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "List documents failed: %v\n", err)
			os.Exit(1)
		}
		phase, _ := components.Orchestrator.Status()
		status.Phase = string(phase)
		for _, d := range docs {
			if d.State == models.DocumentFailed {
				status.Failed++
			} else {
				status.Documents++
			}
		}
		status.Chunks = components.Store.Count()
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("phase:      %s\n", status.Phase)
		fmt.Printf("documents:  %d   # ingested documents\n", status.Documents)
		fmt.Printf("failed:     %d   # documents that failed to ingest\n", status.Failed)
		fmt.Printf("chunks:     %d   # indexed chunks\n", status.Chunks)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`ronbun - Scientific-paper retrieval pipeline with figure linking

Usage:
  ronbun server [flags]              Start the HTTP API server
  ronbun ingest [flags] [paths...]   Rebuild the corpus from PDFs (input dir by default)
  ronbun query [flags] <question>    Retrieve chunks (and figures) for a question
  ronbun watch [flags]               Watch the input directory and re-ingest on changes
  ronbun status [flags]              Show corpus status
  ronbun version                     Show version
  ronbun help                        Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/ronbun/config.yaml)
  --debug            Enable debug logging and parsed-content dumps

Ingest Flags:
  --config string    Config file path
  --output string    Output format: text or json (default: text)
  --debug            Enable debug logging and parsed-content dumps

Query Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to answer directly from the local store.
  --top-k int        Number of chunks to retrieve (default from config)
  --figures int      Maximum figures to attach (default from config)
  --output string    Output format: text or json (default: text)

Watch Flags:
  --config string    Config file path
  --debug            Enable debug logging and parsed-content dumps
  --skip-initial     Do not run a full ingest on startup

Status Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct mode.
  --output string    Output format: text or json (default: text)

Examples:
  ronbun ingest ~/papers
  ronbun query "show me the architecture diagram of the transformer"
  ronbun query --top-k 10 --output json "attention mechanism"
  ronbun server
  ronbun watch
  ronbun status`)
}
