// Package main is the umekomi CLI entry point.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/gops/agent"
	"github.com/hyperjump/umekomi/internal/api"
	"github.com/hyperjump/umekomi/internal/cli"
	"github.com/hyperjump/umekomi/internal/config"
	"github.com/hyperjump/umekomi/internal/model"
	"github.com/hyperjump/umekomi/internal/server"
	"github.com/hyperjump/umekomi/internal/service"
	"github.com/hyperjump/umekomi/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/umekomi/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default, config.yaml in
// the current directory wins if present (for development), and a missing
// default file falls back to environment and built-in defaults.
// Returns the config and the path that was actually loaded ("" for none).
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
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			cfg, err := config.Default()
			return cfg, "", err
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
	case "serve", "server":
		runServe()
	case "embed":
		runEmbed()
	case "health":
		runHealth()
	case "info":
		runInfo()
	case "config":
		runConfig()
	case "version", "--version", "-v":
		fmt.Printf("umekomi version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode, zap.String("service", "umekomi"), zap.String("version", version))
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.String("model", cfg.Model.Name),
		zap.String("backend", cfg.Model.Backend),
	)

	if cfg.Server.Gops {
		if err := agent.Listen(agent.Options{}); err != nil {
			logger.Warn("gops agent failed to start", zap.Error(err))
		} else {
			defer agent.Close()
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := serve(ctx, cfg, logger, nil); err != nil {
		// A model that cannot be loaded aborts startup; the process never serves.
		logger.Fatal("Server failed", zap.Error(err))
	}
}

// serve loads the model, then serves HTTP on ln (or cfg.Server.Addr() when ln
// is nil) until ctx is done, and shuts down gracefully. A model load failure
// is returned before any listener is opened.
func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger, ln net.Listener) error {
	loader, err := model.NewBackendLoader(cfg.Model, logger)
	if err != nil {
		return err
	}
	manager := model.NewManager(cfg.Model.Name, loader, logger)
	defer func() {
		if closeErr := manager.Close(); closeErr != nil {
			logger.Warn("model close failed", zap.Error(closeErr))
		}
	}()
	if _, err := manager.Initialize(ctx); err != nil {
		return err
	}

	if ln == nil {
		ln, err = net.Listen("tcp", cfg.Server.Addr())
		if err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.Server.Addr(), err)
		}
	}
	logger.Info("Serving", zap.String("model", manager.ModelID()), zap.String("addr", ln.Addr().String()))

	svc := service.New(manager, logger, version)
	srv := server.NewServer(svc, &cfg.Server, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})
	return g.Wait()
}

// argsReorder moves any flags (and their values) that appear after the
// positional arguments to the front so that flag.Parse() sees them.
func argsReorder(args []string) []string {
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

// readLines returns each line of r as one text. Blank lines are kept since
// "" is a valid input.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10<<20)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	return lines, scanner.Err()
}

func runEmbed() {
	fs := flag.NewFlagSet("embed", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	fromStdin := fs.Bool("stdin", false, "read texts from stdin, one per line")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: umekomi embed [flags] <text>...\n\nEach argument is embedded as a separate text.\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(argsReorder(os.Args[2:]))

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	texts := fs.Args()
	if *fromStdin {
		lines, err := readLines(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Read stdin failed: %v\n", err)
			os.Exit(1)
		}
		texts = append(texts, lines...)
	}
	if len(texts) == 0 {
		fs.Usage()
		os.Exit(1)
	}

	resp, err := embedViaHTTP(*serverURL, texts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embed failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteEmbeddings(os.Stdout, texts, resp, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runHealth() {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	_ = fs.Parse(os.Args[2:])

	status, err := healthViaHTTP(*serverURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(status)
}

func runInfo() {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	info, err := infoViaHTTP(*serverURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Info failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteInfo(os.Stdout, info, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runConfig() {
	if len(os.Args) < 3 || os.Args[2] != "init" {
		fmt.Fprintln(os.Stderr, "Usage: umekomi config init [--path file] [--force]")
		os.Exit(1)
	}
	fs := flag.NewFlagSet("config init", flag.ExitOnError)
	path := fs.String("path", "config.yaml", "where to write the config file")
	force := fs.Bool("force", false, "overwrite an existing file")
	_ = fs.Parse(os.Args[3:])

	if err := initConfig(*path, *force); err != nil {
		fmt.Fprintf(os.Stderr, "Config init failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", *path)
}

// initConfig writes the effective defaults (built-ins plus environment) to
// path. An existing file is left alone unless force is set.
func initConfig(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !os.IsNotExist(err) {
			return err
		}
	}
	cfg, err := config.Default()
	if err != nil {
		return err
	}
	return config.Save(path, cfg)
}

var httpClient = &http.Client{Timeout: 2 * time.Minute}

func embedViaHTTP(serverURL string, texts []string) (*api.EmbedResponse, error) {
	body, err := json.Marshal(api.EmbedRequest{Texts: texts})
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Post(strings.TrimRight(serverURL, "/")+"/embed", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, serverError(resp)
	}
	var out api.EmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func healthViaHTTP(serverURL string) (api.HealthStatus, error) {
	resp, err := httpClient.Get(strings.TrimRight(serverURL, "/") + "/health")
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", serverError(resp)
	}
	var out api.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return out.Status, nil
}

func infoViaHTTP(serverURL string) (*api.InfoResponse, error) {
	resp, err := httpClient.Get(strings.TrimRight(serverURL, "/") + "/info")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, serverError(resp)
	}
	var out api.InfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// serverError reports a non-200 response, preferring the {"detail": ...} body.
func serverError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var e api.ErrorResponse
	if json.Unmarshal(b, &e) == nil && e.Detail != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Detail)
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
}

func printUsage() {
	fmt.Println(`umekomi - Sentence embedding HTTP service

Usage:
  umekomi serve [flags]           Load the model and start the HTTP server
  umekomi embed [flags] <text>... Embed texts via a running server
  umekomi health [flags]          Check server health (exit 1 when not ready)
  umekomi info [flags]            Show the loaded model
  umekomi config init [flags]     Write a config file with the defaults
  umekomi version                 Show version
  umekomi help                    Show this help

Serve Flags:
  --config string    Config file path (default: /usr/local/etc/umekomi/config.yaml)
  --debug            Enable debug logging

Embed Flags:
  --server string    Server URL (default: http://localhost:8080)
  --stdin            Read additional texts from stdin, one per line
  --output string    Output format: text or json (default: text)

Health/Info Flags:
  --server string    Server URL (default: http://localhost:8080)
  --output string    Output format for info: text or json (default: text)

Config Init Flags:
  --path string      File to write (default: config.yaml)
  --force            Overwrite an existing file

Environment:
  MODEL_NAME          Model identifier (default: sentence-transformers/all-MiniLM-L6-v2)
  UMEKOMI_BACKEND     onnx, ollama or mock (default: onnx)
  UMEKOMI_MODELS_DIR  Directory holding exported models
  UMEKOMI_HOST        Listen host (default: 0.0.0.0)
  UMEKOMI_PORT        Listen port (default: 8080)
  ONNXRUNTIME_LIB     Path to the onnxruntime shared library
  OLLAMA_BASE_URL     Ollama server URL for the ollama backend

Examples:
  umekomi serve
  MODEL_NAME=sentence-transformers/all-MiniLM-L6-v2 umekomi serve --debug
  umekomi embed "hello world" "another sentence"
  umekomi embed --output json "hello world"
  cat sentences.txt | umekomi embed --stdin
  umekomi health`)
}
