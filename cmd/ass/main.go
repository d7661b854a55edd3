package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tendant/smooth-storage/pkg/ass/client"
	"github.com/tendant/smooth-storage/pkg/ass/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ass",
		Short: "Smooth Storage command line client",
		Long: `Smooth Storage command line client

Uploads files and images, searches and inspects stored files and prints
signed public links. The account is read from --account-file, from
--url/--account/--apikey or from the ASS_* environment variables
(a .env file in the working directory is loaded first).`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringP("account-file", "a", "", "JSON account file with url, name and apikey")
	flags.String("url", "", "storage base URL")
	flags.String("account", "", "account name")
	flags.String("apikey", "", "account API key")
	flags.String("env-file", ".env", "dotenv file loaded before reading ASS_* variables")
	flags.Duration("timeout", client.DefaultTimeout, "request timeout")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.BoolP("verbose", "v", false, "verbose output (same as --log-level debug)")

	rootCmd.SetUsageTemplate(rootCmd.UsageTemplate() + "\n" + config.Usage() + "\n")

	// Add subcommands
	rootCmd.AddCommand(NewSearchCommand())
	rootCmd.AddCommand(NewUploadCommand())
	rootCmd.AddCommand(NewUploadImageCommand())
	rootCmd.AddCommand(NewFileInfoCommand())
	rootCmd.AddCommand(NewFileAnalysisCommand())
	rootCmd.AddCommand(NewFileRenderCommand())
	rootCmd.AddCommand(NewImageInfoCommand())
	rootCmd.AddCommand(NewFileURLCommand())
	rootCmd.AddCommand(NewImageURLCommand())
	rootCmd.AddCommand(NewSignCommand())
	rootCmd.AddCommand(NewVerifyCommand())
	rootCmd.AddCommand(NewInitCommand())

	return rootCmd
}

// loadConfig merges the .env file, ASS_* variables and explicitly set flags,
// in increasing order of precedence.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	envFile, _ := flags.GetString("env-file")

	opts := []config.Option{
		config.WithDotEnv(envFile),
		config.WithEnv(),
	}

	stringFlags := map[string]func(string) config.Option{
		"account-file": config.WithAccountFile,
		"url":          config.WithURL,
		"account":      config.WithAccount,
		"apikey":       config.WithAPIKey,
		"log-level":    config.WithLogLevel,
	}
	for name, opt := range stringFlags {
		if flags.Changed(name) {
			v, _ := flags.GetString(name)
			opts = append(opts, opt(v))
		}
	}

	if flags.Changed("timeout") {
		d, _ := flags.GetDuration("timeout")
		opts = append(opts, config.WithTimeout(d))
	}
	if verbose, _ := flags.GetBool("verbose"); verbose {
		opts = append(opts, config.WithLogLevel("debug"))
	}

	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newClient creates a storage client from command flags and environment variables
func newClient(cmd *cobra.Command) (*client.Client, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	c, err := cfg.NewClient(cfg.Logger(cmd.ErrOrStderr()))
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return c, nil
}
