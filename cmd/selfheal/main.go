// Self-healing tool execution runner.
//
// Reads a single execution request as JSON, runs it through the engine, and
// prints the response envelope to stdout.
//
// Usage:
//
//	go run ./cmd/selfheal -request request.json
//	cat request.json | go run ./cmd/selfheal -request -
//	go run ./cmd/selfheal -config selfheal.yaml -oracle-url http://localhost:8800/plan -request request.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jeeves-cluster-organization/selfheal/commbus"
	"github.com/jeeves-cluster-organization/selfheal/coreengine/analysis"
	"github.com/jeeves-cluster-organization/selfheal/coreengine/autofix"
	"github.com/jeeves-cluster-organization/selfheal/coreengine/config"
	"github.com/jeeves-cluster-organization/selfheal/coreengine/contract"
	"github.com/jeeves-cluster-organization/selfheal/coreengine/executor"
	"github.com/jeeves-cluster-organization/selfheal/coreengine/observability"
	"github.com/jeeves-cluster-organization/selfheal/coreengine/oracle"
	"github.com/jeeves-cluster-organization/selfheal/coreengine/proposals"
	"github.com/jeeves-cluster-organization/selfheal/coreengine/telemetry"
	"github.com/jeeves-cluster-organization/selfheal/coreengine/tools"
	"github.com/jeeves-cluster-organization/selfheal/coreengine/validators"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapLogger adapts a zap sugared logger to the per-package Logger interfaces.
type zapLogger struct {
	s *zap.SugaredLogger
}

func (l *zapLogger) Debug(msg string, keysAndValues ...any) { l.s.Debugw(msg, keysAndValues...) }
func (l *zapLogger) Info(msg string, keysAndValues ...any)  { l.s.Infow(msg, keysAndValues...) }
func (l *zapLogger) Warn(msg string, keysAndValues ...any)  { l.s.Warnw(msg, keysAndValues...) }
func (l *zapLogger) Error(msg string, keysAndValues ...any) { l.s.Errorw(msg, keysAndValues...) }

func newLogger(level string) (*zapLogger, func()) {
	zapLevel := zapcore.InfoLevel
	if parsed, err := zapcore.ParseLevel(level); err == nil {
		zapLevel = parsed
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.OutputPaths = []string{"stderr"}

	base, err := cfg.Build()
	if err != nil {
		base = zap.NewNop()
	}
	return &zapLogger{s: base.Sugar()}, func() { _ = base.Sync() }
}

// executionRequest is the JSON shape accepted on -request.
type executionRequest struct {
	UserRequest string         `json:"user_request"`
	Tool        string         `json:"tool"`
	Params      map[string]any `json:"params"`
	Complexity  string         `json:"complexity"`
}

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	requestPath := flag.String("request", "-", "path to request JSON, or - for stdin")
	workspace := flag.String("workspace", ".", "source root that patch proposals may touch")
	oracleURL := flag.String("oracle-url", "", "planning oracle endpoint (empty disables planning)")
	oracleKey := flag.String("oracle-key", os.Getenv("SELFHEAL_ORACLE_API_KEY"), "planning oracle API key")
	metricsAddr := flag.String("metrics-addr", "", "address for the Prometheus /metrics endpoint (empty disables)")
	otlpEndpoint := flag.String("otlp-endpoint", "", "OTLP gRPC endpoint for traces (empty disables)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, flush := newLogger(cfg.LogLevel)
	defer flush()
	logger.Info("selfheal_starting", "version", "1.0.0", "workspace", *workspace)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *otlpEndpoint != "" {
		shutdown, err := observability.InitTracer("selfheal", *otlpEndpoint)
		if err != nil {
			logger.Warn("tracer_init_failed", "error", err.Error())
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdown(shutdownCtx)
			}()
		}
	}

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Warn("metrics_server_stopped", "error", err.Error())
			}
		}()
		logger.Info("metrics_server_started", "address", *metricsAddr)
	}

	req, err := readRequest(*requestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read request: %v\n", err)
		os.Exit(1)
	}

	engine := buildEngine(cfg, logger, *workspace, *oracleURL, *oracleKey)

	resp := engine.Execute(ctx, executor.Request{
		UserRequest: req.UserRequest,
		Tool:        req.Tool,
		Params:      req.Params,
		Complexity:  req.Complexity,
	})

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode response: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))

	logger.Info("selfheal_done", "status", resp["status"])
	if resp["status"] != "success" {
		os.Exit(1)
	}
}

func buildEngine(cfg *config.EngineConfig, logger *zapLogger, workspace, oracleURL, oracleKey string) *executor.Engine {
	var transport oracle.Oracle = oracle.NullOracle{}
	if oracleURL != "" {
		transport = oracle.NewHTTPOracle(oracleURL, oracleKey)
	}

	provider := config.NewStaticConfigProvider(cfg)
	planner := oracle.NewPlanner(transport, logger, time.Duration(cfg.OracleTimeoutSeconds)*time.Second)
	registry := proposals.NewFileRegistry(workspace, logger)
	gate := autofix.NewGate(provider, registry, autofix.NewInMemoryKnowledgeStore(), workspace, logger)

	bus := commbus.NewInMemoryCommBus(10 * time.Second)
	bus.AddMiddleware(commbus.NewLoggingMiddleware(cfg.LogLevel))
	_ = bus.RegisterHandler("GetProposalStatus", proposalStatusHandler(registry))

	toolExec := tools.NewToolExecutor()
	vals := validators.NewRegistry()
	registerBuiltins(toolExec, vals)

	return executor.NewEngine(executor.Deps{
		Builder:        contract.NewBuilder(planner, logger),
		Analyzer:       analysis.NewAnalyzer(planner, telemetry.NewFailureHistory(), logger),
		Proposer:       proposals.NewProposer(planner, logger),
		Scorer:         proposals.NewScorer(cfg.CriticalPathMarkers),
		Gate:           gate,
		Registry:       registry,
		Validators:     vals,
		Callback:       toolExec,
		ConfigProvider: provider,
		Logger:         logger,
		Bus:            bus,
	})
}

// proposalStatusHandler answers GetProposalStatus queries from the registry.
// An unknown ID is not an error; the registry returns no proposal and the
// response reports not found.
func proposalStatusHandler(registry proposals.Registry) commbus.HandlerFunc {
	return func(ctx context.Context, msg commbus.Message) (any, error) {
		q, ok := msg.(*commbus.GetProposalStatus)
		if !ok {
			return nil, fmt.Errorf("unexpected message type for GetProposalStatus")
		}
		p, err := registry.GetProposal(ctx, q.ProposalID)
		if err != nil || p == nil {
			return &commbus.ProposalStatusResponse{Found: false}, nil
		}
		return &commbus.ProposalStatusResponse{Found: true, Status: string(p.Status)}, nil
	}
}

// registerBuiltins wires the demo tools and their ground-truth validators.
func registerBuiltins(toolExec *tools.ToolExecutor, vals *validators.Registry) {
	_ = toolExec.Register(&tools.ToolDefinition{
		Name:        "read_file",
		Description: "Read a file and return its content",
		Handler: func(ctx context.Context, payload map[string]any) (map[string]any, error) {
			path, _ := payload["path"].(string)
			if path == "" {
				return map[string]any{"status": "error", "error": "path is required"}, nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return map[string]any{"status": "error", "error": err.Error()}, nil
			}
			return map[string]any{"path": path, "content": string(data), "size": len(data)}, nil
		},
	})

	_ = toolExec.Register(&tools.ToolDefinition{
		Name:        "write_file",
		Description: "Write content to a file",
		Handler: func(ctx context.Context, payload map[string]any) (map[string]any, error) {
			path, _ := payload["path"].(string)
			content, _ := payload["content"].(string)
			if path == "" {
				return map[string]any{"status": "error", "error": "path is required"}, nil
			}
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return map[string]any{"status": "error", "error": err.Error()}, nil
			}
			return map[string]any{"path": path, "bytes_written": len(content)}, nil
		},
	})

	// Ground truth for write_file: the file must actually exist with the
	// reported size.
	vals.Register("write_file", func(result map[string]any) []string {
		path, _ := result["path"].(string)
		if path == "" {
			return []string{"result missing path"}
		}
		info, err := os.Stat(path)
		if err != nil {
			return []string{fmt.Sprintf("written file not found: %s", path)}
		}
		if reported, ok := result["bytes_written"].(int); ok && info.Size() != int64(reported) {
			return []string{fmt.Sprintf("file size %d does not match reported %d", info.Size(), reported)}
		}
		return nil
	})
}

func readRequest(path string) (*executionRequest, error) {
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	var req executionRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("invalid request JSON: %w", err)
	}
	if req.Tool == "" {
		return nil, fmt.Errorf("request missing tool")
	}
	return &req, nil
}
