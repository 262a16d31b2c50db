package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mickael31/location-benne-occitanie/internal/config"
	ilog "github.com/mickael31/location-benne-occitanie/internal/log"
)

// Version is set at build time with -ldflags "-X ...cmd.Version=...".
var Version = "dev"

var (
	configFile string
	verbose    bool

	settings config.Settings
	logger   *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "benneadmin",
	Short: "Administration tools for the Location Benne Occitanie site",
	Long: `benneadmin edits the data.config document of the site: it serves the
local admin console, manages the password gate, pulls and pushes the
document from its repository and imports Google reviews.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := config.Load(configFile)
		if err != nil {
			return err
		}
		if verbose {
			s.Verbose = true
		}
		settings = s
		logger = ilog.NewSecureLogger(cmd.ErrOrStderr(), s.Verbose)
		if s.ConfigFile != "" {
			logger.Debug("settings loaded", "file", s.ConfigFile)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("settings file (default %s/config.yaml)", config.ConfigDir()))
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug messages")
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
