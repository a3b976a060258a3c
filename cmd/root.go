// Package cmd implements the epicchat command line
package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"epictech-chat/chat"
	"epictech-chat/db"
	"epictech-chat/llm"
	"epictech-chat/utils"
)

var version = "0.1.0"

// app carries the state shared by every command
type app struct {
	configPath string
	verbose    bool

	cfg    *utils.Config
	logger *utils.Logger
	store  *db.DB
}

// Execute runs the root command
func Execute() {
	setupConsole()
	root, a := newRootCmd()
	err := root.Execute()
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "✗", err)
		os.Exit(1)
	}
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:   "epicchat",
		Short: "Epic Tech AI chat history",
		Long: `Epic Tech AI chat history

Manages the conversations, messages and attachments kept by the chat widget:
browse and search them, export or import backups, chat from the terminal,
or serve them to the widget over a local REST API.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default: user config dir)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log at the configured level instead of warnings only")

	root.AddCommand(
		newListCmd(a),
		newShowCmd(a),
		newNewCmd(a),
		newRenameCmd(a),
		newDeleteCmd(a),
		newSendCmd(a),
		newSearchCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newStatsCmd(a),
		newChatCmd(a),
		newServeCmd(a),
	)
	return root, a
}

// setup loads the config and prepares the logger and the store. The store opens
// lazily on first use.
func (a *app) setup(cmd *cobra.Command) error {
	path := a.configPath
	if path == "" {
		var err error
		path, err = utils.EnsureDefaultConfig("")
		if err != nil {
			return fmt.Errorf("failed to create default config: %w", err)
		}
	}

	cfg, err := utils.LoadConfig(path)
	if err != nil {
		return err
	}
	a.cfg = cfg

	opts := utils.LogOptions{Level: cfg.Log.Level, Format: cfg.Log.Format}
	if cmd.Name() == "serve" {
		a.logger, err = utils.NewLogger(utils.GetLogPath(cfg.Log.Dir), opts)
	} else {
		if !a.verbose {
			opts.Level = "warn"
		}
		a.logger, err = utils.NewConsoleLogger(cmd.ErrOrStderr(), opts)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a.logger.Debug("Using config file: %s", path)
	a.store = db.New(cfg.Data.DBPath, db.WithLogger(a.logger.Logger))
	return nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("Failed to close database: %v", err)
		}
	}
	if a.logger != nil {
		a.logger.Close()
	}
}

// chatService wires the configured provider into a chat service. Without an API key
// every reply comes from the offline responder.
func (a *app) chatService() *chat.Service {
	var provider llm.Provider
	if a.cfg.LLM.APIKey != "" {
		provider = llm.NewOpenAIProvider(llm.Config{
			APIKey:      a.cfg.LLM.APIKey,
			BaseURL:     a.cfg.LLM.BaseURL,
			Model:       a.cfg.LLM.Model,
			Timeout:     a.cfg.LLM.Timeout,
			MaxTokens:   a.cfg.LLM.MaxTokens,
			Temperature: a.cfg.LLM.Temperature,
		})
	}
	return chat.NewService(a.store, provider,
		chat.WithLogger(a.logger.Logger),
		chat.WithHistoryLimit(a.cfg.LLM.History),
	)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
