// Command mcpbridge chats with a local Ollama model that can call the tools
// of an MCP server.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/cexll/mcpbridge/pkg/agent"
	"github.com/cexll/mcpbridge/pkg/bridge"
	"github.com/cexll/mcpbridge/pkg/config"
	"github.com/cexll/mcpbridge/pkg/console"
	"github.com/cexll/mcpbridge/pkg/mcp/adapter"
	"github.com/cexll/mcpbridge/pkg/model"
	"github.com/cexll/mcpbridge/pkg/model/ollama"
)

var version = "dev"

type flagValues struct {
	configPath   string
	envFile      string
	server       string
	provider     string
	model        string
	ollamaHost   string
	historyFile  string
	timeout      string
	autoConfirm  bool
	validateArgs bool
	options      map[string]string
	headers      map[string]string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags flagValues
	cmd := &cobra.Command{
		Use:           "mcpbridge",
		Short:         "Chat with an Ollama model that can call MCP server tools",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cc *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cc, flags)
			if err != nil {
				color.New(color.FgRed).Fprintf(cc.ErrOrStderr(), "Error: %v\n", err)
				return err
			}
			ctx, stop := signal.NotifyContext(cc.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			prompt, err := console.NewPrompt(cfg.HistoryFile)
			if err != nil {
				return err
			}
			defer prompt.Close()

			logger := log.New(cc.ErrOrStderr(), "mcpbridge: ", log.LstdFlags)
			if err := run(ctx, *cfg, prompt, cc.OutOrStdout(), logger); err != nil {
				color.New(color.FgRed).Fprintf(cc.ErrOrStderr(), "Error: %v\n", err)
				return err
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.configPath, "config", "c", "", "JSON settings file")
	f.StringVar(&flags.envFile, "env-file", "", "dotenv file to load before reading MCPBRIDGE_* variables")
	f.StringVarP(&flags.server, "server", "s", "", "tool server address (default "+config.DefaultServerURL+")")
	f.StringVar(&flags.provider, "provider", "", "inference provider (default "+config.DefaultProvider+")")
	f.StringVarP(&flags.model, "model", "m", "", "model name (default "+config.DefaultModel+")")
	f.StringVar(&flags.ollamaHost, "ollama-host", "", "Ollama address (defaults to OLLAMA_HOST)")
	f.StringVar(&flags.historyFile, "history-file", "", "readline history file")
	f.StringVar(&flags.timeout, "timeout", "", "per-query inference timeout, e.g. 90s")
	f.BoolVarP(&flags.autoConfirm, "yes", "y", false, "execute tool calls without asking")
	f.BoolVar(&flags.validateArgs, "validate-args", false, "check tool arguments against their schema before calling the server")
	f.StringToStringVar(&flags.options, "ollama-option", nil, "Ollama request option, e.g. temperature=0.2 or keep_alive=10m (repeatable)")
	f.StringToStringVar(&flags.headers, "ollama-header", nil, "header added to every Ollama request, e.g. Authorization=Bearer x (repeatable)")
	return cmd
}

// resolveConfig layers command-line flags over the loaded configuration.
func resolveConfig(cc *cobra.Command, flags flagValues) (*config.Config, error) {
	root, err := os.Getwd()
	if err != nil {
		root = ""
	}
	cfg, err := config.Load(config.LoadOptions{
		ProjectRoot: root,
		EnvFile:     flags.envFile,
		ConfigPath:  flags.configPath,
	})
	if err != nil {
		return nil, err
	}

	changed := cc.Flags().Changed
	if changed("server") {
		cfg.ServerURL = flags.server
	}
	if changed("provider") {
		cfg.Provider = flags.provider
	}
	if changed("model") {
		cfg.Model = flags.model
	}
	if changed("ollama-host") {
		cfg.OllamaHost = flags.ollamaHost
	}
	if changed("history-file") {
		cfg.HistoryFile = flags.historyFile
	}
	if changed("timeout") {
		d, err := config.ParseDuration(flags.timeout)
		if err != nil {
			return nil, fmt.Errorf("--timeout: %w", err)
		}
		cfg.InferenceTimeout = d
	}
	if changed("yes") {
		cfg.AutoConfirm = flags.autoConfirm
	}
	if changed("validate-args") {
		cfg.ValidateArguments = flags.validateArgs
	}
	if changed("ollama-option") {
		cfg.OllamaOptions = lo.Assign(cfg.OllamaOptions, lo.MapValues(flags.options, func(v string, _ string) any {
			return config.ParseOptionValue(v)
		}))
	}
	if changed("ollama-header") {
		cfg.OllamaHeaders = lo.Assign(cfg.OllamaHeaders, flags.headers)
	}
	if cfg.HistoryFile == "" {
		cfg.HistoryFile = console.DefaultHistoryFile()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// run connects to the tool server, registers its tools and hands control to
// the console until the operator quits.
func run(ctx context.Context, cfg config.Config, in console.LineReader, out io.Writer, logger *log.Logger) error {
	factory := model.NewFactory(&ollama.Provider{})
	chatModel, err := factory.NewModel(ctx, model.ModelConfig{
		Provider: cfg.Provider,
		Model:    cfg.Model,
		BaseURL:  cfg.OllamaHost,
		Headers:  cfg.OllamaHeaders,
		Extra:    cfg.OllamaOptions,
	})
	if err != nil {
		return err
	}

	server := adapter.NewClient(cfg.ServerURL,
		adapter.WithLogger(logger),
		adapter.WithImplementation("mcpbridge", version),
	)
	mgr, err := bridge.NewManager(server, chatModel, bridge.Options{
		Agent: agent.Config{
			SystemPrompt: cfg.SystemPrompt,
			Timeout:      cfg.InferenceTimeout.Std(),
			Logger:       logger,
		},
		ValidateArguments: cfg.ValidateArguments,
		Logger:            logger,
	})
	if err != nil {
		return err
	}
	if err := mgr.Connect(ctx); err != nil {
		return err
	}
	color.New(color.FgCyan).Fprintf(out, "Registered %d tools from MCP server.\n", len(mgr.Tools()))
	if info := mgr.ServerInfo(); info.Name != "" {
		fmt.Fprintf(out, "Server: %s %s (protocol %s)\n", info.Name, info.Version, info.ProtocolVersion)
	}
	fmt.Fprintf(out, "Session: %s\n", mgr.SessionID())

	return console.New(mgr, in, out, console.Options{
		QuitToken:   cfg.QuitToken,
		AutoConfirm: cfg.AutoConfirm,
	}).Run(ctx)
}
