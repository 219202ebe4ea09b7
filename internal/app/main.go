package app

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avainsure/internal/config"
	"github.com/vyrodovalexey/avainsure/internal/observability"
)

// BuildInfo identifies the running binary. It is set at build time.
type BuildInfo struct {
	Version   string
	BuildTime string
	GitCommit string
}

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	envFile     string
	showVersion bool
}

func parseFlags(name string, args []string, stderr io.Writer) (cliFlags, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	var f cliFlags
	fs.StringVar(&f.configPath, "config", os.Getenv(config.ConfigFileEnv), "Path to YAML configuration file")
	fs.StringVar(&f.envFile, "env-file", ".env", "Path to dotenv file")
	fs.BoolVar(&f.showVersion, "version", false, "Show version information")

	if err := fs.Parse(args); err != nil {
		return f, err
	}
	return f, nil
}

// Main runs svc until SIGINT or SIGTERM and returns the process exit
// code.
func Main(svc config.Service, build BuildInfo, args []string) int {
	flags, err := parseFlags(string(svc), args, os.Stderr)
	if err != nil {
		return 2
	}

	if flags.showVersion {
		fmt.Printf("%s version %s\n", svc, build.Version)
		fmt.Printf("  Build time: %s\n", build.BuildTime)
		fmt.Printf("  Git commit: %s\n", build.GitCommit)
		return 0
	}

	cfg, err := config.Load(svc,
		config.WithConfigFile(flags.configPath),
		config.WithEnvFiles(flags.envFile),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		return 1
	}
	if build.Version != "" && os.Getenv("SERVICE_VERSION") == "" {
		cfg.App.Version = build.Version
	}

	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: "stdout",
		InitialFields: map[string]string{
			"service": cfg.App.Name,
			"env":     cfg.App.Env,
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	if cfg.App.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := New(ctx, svc, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize service", observability.Error(err))
		return 1
	}

	logger.Info("service starting",
		observability.String("version", cfg.App.Version),
		observability.String("address", cfg.Server.Address()),
		observability.Bool("redis", cfg.Redis.Enabled),
		observability.Bool("auth", cfg.Auth.Enabled),
	)

	if err := application.Run(ctx); err != nil {
		logger.Error("service stopped with error", observability.Error(err))
		return 1
	}

	logger.Info("service stopped")
	return 0
}
