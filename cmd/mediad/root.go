package main

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/totegamma/mediadb/internal/config"
	"github.com/totegamma/mediadb/internal/present/rest"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "mediad",
		Short:         "Media record store",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	defaultConfig := os.Getenv("MEDIADB_CONFIG")
	if defaultConfig == "" {
		defaultConfig = "config.yaml"
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", defaultConfig, "Configuration file path (env MEDIADB_CONFIG)")

	rootCmd.AddCommand(newServeCommand(&configFlag))
	rootCmd.AddCommand(newMigrateCommand(&configFlag))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the API version",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), rest.Version)
			return err
		},
	}
}

func loadConfig(path string) (config.Config, hclog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, newLogger(cfg.Server), nil
}

func newLogger(server config.Server) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:       "mediad",
		Level:      hclog.LevelFromString(server.LogLevel),
		JSONFormat: server.LogJSON,
	})
}
