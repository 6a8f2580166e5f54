package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/dvcrn/ollama-proxy/internal/config"
	"github.com/dvcrn/ollama-proxy/internal/credentials"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ollama-proxy %s\n", version)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file in use",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}
		if path == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "(none)")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets redacted",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(redact(*cfg))
		if err != nil {
			return fmt.Errorf("failed to encode configuration: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func redact(cfg config.Config) config.Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "<redacted>"
	}
	cfg.Backend.APIKey = mask(cfg.Backend.APIKey)
	cfg.Reasoning.APIKey = mask(cfg.Reasoning.APIKey)
	cfg.Server.AdminAPIKey = mask(cfg.Server.AdminAPIKey)
	return cfg
}

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage the stored reasoning API key",
}

var credentialsSetCmd = &cobra.Command{
	Use:   "set [api-key]",
	Short: "Store the reasoning API key in the credentials file",
	Long:  "Store the reasoning API key in the credentials file. Without an argument the key is read from stdin.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var key string
		if len(args) == 1 {
			key = args[0]
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("failed to read API key: %w", err)
			}
			key = line
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("API key must not be empty")
		}

		path := resolveCredsPath()
		if err := credentials.SaveAPIKey(path, key); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved API key to %s\n", path)
		return nil
	},
}
