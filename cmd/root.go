package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rasnes/healthcare-etl/config"
	"github.com/rasnes/healthcare-etl/extract"
	"github.com/rasnes/healthcare-etl/load"
	"github.com/rasnes/healthcare-etl/logger"
	"github.com/rasnes/healthcare-etl/pipeline"
	"github.com/spf13/cobra"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "healthcare-etl",
		Short:         "Healthcare ETL CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newFetchDataCmd(),
		newQueryDataCmd(),
		newListTablesCmd(),
		newDropTablesCmd(),
		newLoadVaccinationDataCmd(),
	)
	return root
}

func Execute() {
	os.Exit(run(rootCmd, os.Stderr))
}

// run executes root and maps the outcome to an exit code. Skipped steps and
// rolled-back batches are reported as warnings and exit 0.
func run(root *cobra.Command, stderr io.Writer) int {
	err := root.Execute()
	switch {
	case err == nil:
		return 0
	case isWarning(err):
		fmt.Fprintln(stderr, "WARNING:", err)
		return 0
	default:
		fmt.Fprintln(stderr, "ERROR:", err)
		return 1
	}
}

func isWarning(err error) bool {
	return errors.Is(err, pipeline.ErrEmptyResult) ||
		errors.Is(err, extract.ErrFetch) ||
		errors.Is(err, load.ErrInsertFailure)
}

func isRunningOnGitHubActions() bool {
	return os.Getenv("GITHUB_ACTIONS") == "true"
}

func initializeConfigAndLogger() (*config.Config, *slog.Logger, error) {
	log := logger.NewLogger("info")
	if !isRunningOnGitHubActions() {
		if err := godotenv.Load(); err != nil {
			log.Debug("No .env file loaded", "error", err)
		}
	}

	// 1. Open the base configuration file
	baseConfigFile, err := os.Open("config.base.yaml")
	if err != nil {
		log.Error(fmt.Sprintf("Error opening base config file: %v", err))
		return nil, nil, err
	}
	defer baseConfigFile.Close()

	// 2. Environment-specific overlay, if present
	env := os.Getenv("APP_ENV")
	var envConfig io.Reader
	envConfigFilename := fmt.Sprintf("config.%s.yaml", env)
	if _, err := os.Stat(envConfigFilename); err == nil {
		envConfigFile, err := os.Open(envConfigFilename)
		if err != nil {
			log.Error(fmt.Sprintf("Error opening environment config file: %v", err))
			return nil, nil, err
		}
		defer envConfigFile.Close()
		envConfig = envConfigFile
	}

	// 3. Create the config
	cfg, err := config.NewConfig(baseConfigFile, envConfig, env)
	if err != nil {
		log.Error(fmt.Sprintf("Error reading config: %v", err))
		return nil, nil, err
	}

	log = logger.NewLogger(cfg.Log.Level).With("run_id", uuid.NewString(), "env", cfg.Env)
	return cfg, log, nil
}

func openPipeline(ctx context.Context) (*pipeline.Pipeline, *slog.Logger, error) {
	cfg, log, err := initializeConfigAndLogger()
	if err != nil {
		return nil, nil, err
	}

	p, err := pipeline.NewPipeline(ctx, cfg, log)
	if err != nil {
		log.Error(fmt.Sprintf("Error creating pipeline: %v", err))
		return nil, nil, err
	}
	return p, log, nil
}
