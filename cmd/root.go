package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/viper"

	"github.com/lepinkainen/shelf/cmd/search"
	"github.com/lepinkainen/shelf/internal/cache"
	"github.com/lepinkainen/shelf/internal/config"
	shelferrors "github.com/lepinkainen/shelf/internal/errors"
	"github.com/lepinkainen/shelf/internal/fields"
	"github.com/lepinkainen/shelf/internal/providers"
	"github.com/lepinkainen/shelf/internal/query"
)

var (
	runSearch            = search.Run
	runBatch             = search.RunBatch
	stdout     io.Writer = os.Stdout
	logOutput  io.Writer = os.Stderr
	exit                 = os.Exit
	configPath           = "."
)

// CLI represents the complete command structure for the shelf application
type CLI struct {
	// Global flags
	Verbose bool `short:"v" help:"Enable debug logging"`

	// Cache flags
	NoCache     bool   `help:"Disable the provider response cache"`
	CacheDBFile string `help:"Path to cache SQLite database file" default:"./cache.db"`
	CacheTTL    string `help:"Cache time-to-live duration (e.g., 720h for 30 days)" default:"720h"`

	Search    SearchCmd    `cmd:"" help:"Search book metadata providers"`
	Batch     BatchCmd     `cmd:"" help:"Run one search per row of a CSV file"`
	Providers ProvidersCmd `cmd:"" help:"List the registered metadata providers"`
	Fields    FieldsCmd    `cmd:"" help:"List the known result fields"`
	Cache     CacheCmd     `cmd:"" help:"Manage the provider response cache"`
}

// SearchFlags are the options shared by the search and batch commands
type SearchFlags struct {
	Providers    []string      `short:"p" sep:"," help:"Only query these providers (comma separated codes)"`
	Exclude      []string      `short:"x" sep:"," help:"Skip these providers (comma separated codes)"`
	ProviderFile string        `help:"Read provider configurations from this YAML file instead of config.yaml"`
	Sequential   bool          `help:"Query providers one at a time"`
	Timeout      time.Duration `help:"Per-provider timeout" default:"30s"`
	Format       string        `short:"f" help:"Output format" enum:"json,yaml,text" default:"json"`
	Merge        bool          `short:"m" help:"Merge all results into a single record"`
	Interactive  bool          `short:"i" help:"Pick one result in an interactive list"`
	Store        bool          `help:"Store results in the configured datastore"`
	DB           string        `help:"Store results in this SQLite database file"`
	Covers       string        `help:"Download result covers into this directory"`
	Output       string        `short:"o" help:"Write output to a file instead of stdout"`
	Overwrite    bool          `help:"Overwrite an existing output file"`
}

func (f SearchFlags) options() search.Options {
	if f.DB != "" {
		viper.Set("datastore.mode", "local")
		viper.Set("datastore.dbfile", f.DB)
	}
	return search.Options{
		Providers:    f.Providers,
		Exclude:      f.Exclude,
		ProviderFile: f.ProviderFile,
		Sequential:   f.Sequential,
		Timeout:      f.Timeout,
		Format:       f.Format,
		Merge:        f.Merge,
		Interactive:  f.Interactive,
		Store:        f.Store || f.DB != "",
		CoversDir:    f.Covers,
		Output:       f.Output,
		Overwrite:    f.Overwrite,
	}
}

// SearchCmd represents the search command
type SearchCmd struct {
	Terms       []string `arg:"" help:"Search terms as field=value (isbn=..., title=..., author=...)"`
	SearchFlags `embed:""`
}

// BatchCmd represents the batch command
type BatchCmd struct {
	Input       string `arg:"" type:"existingfile" help:"CSV file with a header row of field names and one search per row"`
	SearchFlags `embed:""`
}

// ProvidersCmd represents the providers command
type ProvidersCmd struct {
	ProviderFile string `help:"Read provider configurations from this YAML file instead of config.yaml"`
}

// FieldsCmd represents the fields command
type FieldsCmd struct{}

// CacheCmd represents the cache command and its subcommands
type CacheCmd struct {
	Invalidate cache.InvalidateCacheCmd `cmd:"" help:"Clear cached responses of a provider"`
}

// Execute runs the Kong-based CLI
func Execute() {
	initLogging(false)
	if err := initConfig(); err != nil {
		slog.Error("Fatal error config file", "error", err)
		exit(1)
		return
	}

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("shelf"),
		kong.Description("Query book metadata providers and normalize what they return."),
		kong.UsageOnError(),
	)

	updateGlobalConfig(&cli)

	if err := ctx.Run(); err != nil {
		if shelferrors.IsStopProcessingError(err) {
			slog.Info("Stopped", "reason", err)
			return
		}
		slog.Error("Command failed", "error", err)
		exit(1)
	}
}

func initConfig() error {
	viper.SetDefault("cache.dbfile", "./cache.db")
	viper.SetDefault("cache.ttl", "720h") // 30 days
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("datastore.mode", "local")
	viper.SetDefault("datastore.dbfile", "./shelf.db")
	viper.SetDefault("providers", config.DefaultProviders())

	viper.AutomaticEnv()
	for key, env := range map[string]string{
		"cache.dbfile":         "SHELF_CACHE_DBFILE",
		"cache.ttl":            "SHELF_CACHE_TTL",
		"cache.enabled":        "SHELF_CACHE_ENABLED",
		"datastore.remote_url": "SHELF_DATASTORE_URL",
		"datastore.api_token":  "SHELF_DATASTORE_TOKEN",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			slog.Error("Failed to bind environment variable", "key", key, "error", err)
		}
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
		slog.Info("Config file not found, writing default config file...")
		if err := viper.SafeWriteConfigAs(configPath + "/config.yaml"); err != nil {
			slog.Error("Error writing config file", "error", err)
		}
	}

	config.InitConfig()
	fields.SetLabelOverrides(config.LabelOverrides)
	return nil
}

func updateGlobalConfig(cli *CLI) {
	config.SetVerbose(cli.Verbose)
	config.SetCacheEnabled(config.CacheEnabled && !cli.NoCache)
	if cli.Verbose {
		initLogging(true)
	}

	viper.Set("cache.dbfile", cli.CacheDBFile)
	viper.Set("cache.ttl", cli.CacheTTL)
}

func (s *SearchCmd) Run() error {
	opts := s.options()
	opts.Terms = s.Terms

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return runSearch(ctx, opts, stdout)
}

func (b *BatchCmd) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return runBatch(ctx, b.Input, b.options(), stdout)
}

func (p *ProvidersCmd) Run() error {
	var source query.ConfigSource = config.NewViperSource(nil)
	if p.ProviderFile != "" {
		source = config.FileSource{Path: p.ProviderFile}
	}
	configs, err := source.Configurations()
	if err != nil {
		return err
	}
	active := make(map[string]bool, len(configs))
	for _, c := range configs {
		active[strings.ToLower(c.Code)] = active[strings.ToLower(c.Code)] || c.Active
	}

	registry := providers.Registry()
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tLABEL\tFIELDS\tACTIVE")
	for _, code := range registry.Codes() {
		reg, _ := registry.Lookup(code)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", reg.Code, reg.Label, strings.Join(reg.Fields, ","), active[code])
	}
	return tw.Flush()
}

func (f *FieldsCmd) Run() error {
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tLABEL\tTYPE\tFUSION")
	for _, spec := range fields.Catalog() {
		spec = fields.Lookup(spec.Key)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", spec.Key, spec.Label, spec.Type, spec.Fusion)
	}
	return tw.Flush()
}

func initLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	handler := humanlog.NewHandler(logOutput, &humanlog.Options{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}
