package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var (
	port       string
	configPath string
	apiURL     string
	stateDir   string
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().ExecuteContext(context.Background())
}

func newRootCmd() *cobra.Command {
	envPort := os.Getenv("PORT")
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:           "tracker",
		Short:         "DSA tracker: follow your progress through a catalog of practice problems",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&port, "port", envPort, "port for the API server to listen on")
	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "tracker API base URL (overrides config)")
	cmd.PersistentFlags().StringVar(&stateDir, "state-dir", "", "directory for the local session file (overrides config)")

	cmd.AddCommand(NewServeCmd(&configPath, &port))
	cmd.AddCommand(NewMigrateCmd(&configPath))
	for _, sub := range newClientCmds(&clientOptions{
		configPath: &configPath,
		apiURL:     &apiURL,
		stateDir:   &stateDir,
	}) {
		cmd.AddCommand(sub)
	}
	return cmd
}
