package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ironsheep/image-budget-mcp/internal/compress"
	"github.com/ironsheep/image-budget-mcp/internal/config"
	"github.com/ironsheep/image-budget-mcp/internal/httpapi"
	"github.com/ironsheep/image-budget-mcp/internal/imaging"
	"github.com/ironsheep/image-budget-mcp/internal/logging"
	"github.com/ironsheep/image-budget-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	cfgFile string
	envFile string

	inputPath  string
	inputURL   string
	outputPath string
)

// v carries flag bindings into config.LoadWith.
var v = viper.New()

var rootCmd = &cobra.Command{
	Use:   "image-budget-mcp",
	Short: "Shrink images to a kilobyte budget",
	Long: `image-budget-mcp re-encodes images as JPEG no larger than a target size,
keeping the largest resolution that fits.

Without a subcommand it runs the MCP server on stdin/stdout.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdin/stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var httpCmd = &cobra.Command{
	Use:   "http",
	Short: "Run the HTTP upload API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHTTP()
	},
}

var compressCmd = &cobra.Command{
	Use:   "compress",
	Short: "Compress one image and print the result summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCompress(cmd.Context())
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print image metadata",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInfo(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("image-budget-mcp %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ./image-budget.yaml)")
	pf.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	pf.Float64("target-kb", compress.DefaultTargetKB, "output budget in kilobytes")
	pf.Int("quality", compress.DefaultQuality, "JPEG quality 1-100")
	pf.Float64("min-scale", compress.DefaultMinScale, "smallest allowed scale factor")
	pf.String("log-level", "info", "log level: debug, info, warn, error")

	mustBind("target_kb", "target-kb")
	mustBind("quality", "quality")
	mustBind("min_scale", "min-scale")
	mustBind("log_level", "log-level")

	httpCmd.Flags().String("addr", ":8080", "listen address")
	if err := v.BindPFlag("http_addr", httpCmd.Flags().Lookup("addr")); err != nil {
		panic(err)
	}

	for _, c := range []*cobra.Command{compressCmd, infoCmd} {
		c.Flags().StringVarP(&inputPath, "input", "i", "", "input image path")
		c.Flags().StringVar(&inputURL, "url", "", "input image URL")
		c.MarkFlagsMutuallyExclusive("input", "url")
		c.MarkFlagsOneRequired("input", "url")
	}
	compressCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output path (default <input>_budget.jpg)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(httpCmd)
	rootCmd.AddCommand(compressCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(versionCmd)
}

func mustBind(key, flag string) {
	if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger. Logs always go to stderr
// since stdout carries the MCP protocol or command output.
func setup() (*config.Config, *zap.Logger, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, nil, err
	}

	cfg, err := config.LoadWith(v, cfgFile)
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func runServe() error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	norm, err := cfg.NormalizeOptions()
	if err != nil {
		return err
	}

	logger.Debug("starting MCP server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("commit", GitCommit))

	server.Version = Version
	srv := server.New(server.Options{
		Defaults:     cfg.Params(),
		Normalize:    norm,
		FetchTimeout: cfg.FetchTimeout,
		Logger:       logger,
	})
	if err := srv.Run(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runHTTP() error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	norm, err := cfg.NormalizeOptions()
	if err != nil {
		return err
	}

	app := httpapi.NewApp(httpapi.Options{
		Defaults:          cfg.Params(),
		Normalize:         norm,
		AllowedImageTypes: cfg.AllowedImageTypes,
		MaxUploadBytes:    cfg.MaxUploadBytes,
		Logger:            logger,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutting down HTTP API")
		if err := app.Shutdown(); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("HTTP API listening", zap.String("addr", cfg.HTTPAddr))
	return app.Listen(cfg.HTTPAddr)
}

func inputSource(cfg *config.Config) imaging.Source {
	if inputURL != "" {
		return imaging.URLSource{URL: inputURL, Timeout: cfg.FetchTimeout}
	}
	return imaging.FileSource{Path: inputPath}
}

func defaultOutputPath() string {
	if inputPath == "" {
		return "budget.jpg"
	}
	ext := filepath.Ext(inputPath)
	return strings.TrimSuffix(inputPath, ext) + "_budget.jpg"
}

func runCompress(ctx context.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	norm, err := cfg.NormalizeOptions()
	if err != nil {
		return err
	}

	c := compress.New(compress.WithLogger(logger), compress.WithNormalizeOptions(norm))
	res, err := c.Compress(ctx, compress.Request{Source: inputSource(cfg), Params: cfg.Params()})
	if err != nil {
		return err
	}

	out := outputPath
	if out == "" {
		out = defaultOutputPath()
	}
	if err := os.WriteFile(out, res.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	summary := struct {
		*compress.Result
		OutputPath string `json:"output_path"`
	}{Result: res, OutputPath: out}
	return printJSON(summary)
}

func runInfo(ctx context.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	info, err := imaging.InspectSource(ctx, inputSource(cfg))
	if err != nil {
		return err
	}
	return printJSON(info)
}

func printJSON(val interface{}) error {
	b, err := json.MarshalIndent(val, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
