package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	configPath  string
	useKeychain bool
	credsPath   string
)

var rootCmd = &cobra.Command{
	Use:   "ollama-proxy",
	Short: "Serve the Ollama API in front of an OpenAI-compatible backend",
	Long: `ollama-proxy listens where Ollama clients expect Ollama and forwards their
requests to an OpenAI-compatible backend, translating the few endpoints whose
shapes differ. Chat requests for the configured sentinel model are answered by
an external reasoning service instead.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the configuration file (default: discovered ollamaproxy.{yaml,yml,json})")
	rootCmd.PersistentFlags().BoolVar(&useKeychain, "use-keychain", false, "also look up the reasoning API key in the macOS keychain")
	rootCmd.PersistentFlags().StringVar(&credsPath, "creds-path", "", "path to the credentials file (default: $XDG_CONFIG_HOME/ollama-proxy/credentials.json)")

	rootCmd.AddCommand(serveCmd, configCmd, credentialsCmd, versionCmd)
	configCmd.AddCommand(configPathCmd, configShowCmd)
	credentialsCmd.AddCommand(credentialsSetCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
