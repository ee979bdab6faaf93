package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"docqa/internal/config"
)

// Execute runs the docqa command tree and exits non-zero on failure.
func Execute() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// settings carries the merged view of flags and DOCQA_* environment
// variables. Values set there override the YAML config.
type settings struct {
	v       *viper.Viper
	cfgFile string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	s := &settings{v: viper.New()}

	root := &cobra.Command{
		Use:           "docqa",
		Short:         "docqa answers questions about your documents using retrieval-augmented generation",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&s.cfgFile, "config", "c", "", "config file (default ./config.yaml or ~/.config/docqa/config.yaml)")
	pf.StringSlice("docs", nil, "files or glob patterns to ingest before running the command")
	pf.Bool("samples", false, "ingest the built-in sample documents")
	pf.Int("top-k", 0, "number of chunks used as context")
	pf.String("embedder", "", "embedder type (openai|hashing)")
	pf.String("log-level", "", "log level (debug|info|warn|error)")
	for _, name := range []string{"docs", "samples", "top-k", "embedder", "log-level"} {
		_ = s.v.BindPFlag(name, pf.Lookup(name))
	}
	s.v.SetEnvPrefix("DOCQA")
	s.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	s.v.AutomaticEnv()

	root.AddCommand(
		newAskCmd(s),
		newSearchCmd(s),
		newChatCmd(s),
		newIngestCmd(s),
		newRemoveCmd(s),
		newTUICmd(s),
		newServeMCPCmd(s),
		newConfigCmd(s),
	)
	return root
}

// load reads the YAML config and applies flag and environment overrides.
func (s *settings) load() (*config.AppConfig, string, error) {
	var (
		cfg  *config.AppConfig
		path string
		err  error
	)
	if s.cfgFile == "" {
		cfg, path, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(s.cfgFile)
		path = s.cfgFile
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}

	if k := s.v.GetInt("top-k"); k > 0 {
		cfg.Retrieval.TopK = k
	}
	if e := s.v.GetString("embedder"); e != "" {
		cfg.Embedder.Type = e
	}
	if l := s.v.GetString("log-level"); l != "" {
		cfg.Log.Level = l
	}
	if s.v.IsSet("samples") {
		cfg.Ingest.SeedSamples = s.v.GetBool("samples")
	}
	if err := cfg.Finalize(); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func (s *settings) docs() []string {
	return s.v.GetStringSlice("docs")
}
