package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mickael31/location-benne-occitanie/remote"
	"github.com/mickael31/location-benne-occitanie/siteconfig"
)

var (
	pullOut      string
	pushRevision string
	pushMessage  string
)

var documentCmd = &cobra.Command{
	Use:   "config",
	Short: "Site document tools",
	Long: `Commands for checking data.config and moving it between a local file
and its repository. The repository token comes from github.token in the
settings or BENNE_GITHUB_TOKEN.`,
}

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Merge a document over the defaults and check it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading document: %w", err)
		}
		cfg, err := validateDocument(text)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "valid: %s\n", cfg.Meta.SiteName)
		return nil
	},
}

var defaultCmd = &cobra.Command{
	Use:   "default",
	Short: "Print the built-in document",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := cmd.OutOrStdout().Write(siteconfig.DefaultJSON())
		return err
	},
}

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Download the document from its repository",
	Long: `Identifies the token owner, checks it against github.allowed_users and
writes the document to --out (standard output by default). The revision
to pass to push is printed on standard error.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(settings, logger)
		if err != nil {
			return err
		}
		loc := settings.Location()
		if err := loc.Validate(); err != nil {
			return err
		}
		id, doc, err := remote.FetchAuthorized(cmd.Context(), store, loc, settings.GitHub.Token, settings.GitHub.AllowedUsers)
		if err != nil {
			return err
		}
		if err := writeOutput(cmd.OutOrStdout(), pullOut, []byte(doc.Text)); err != nil {
			return err
		}
		logger.Info("document pulled", "location", loc.String(), "login", id.Login)
		fmt.Fprintf(cmd.ErrOrStderr(), "revision: %s\n", doc.Revision)
		return nil
	},
}

var pushCmd = &cobra.Command{
	Use:   "push [file]",
	Short: "Write a document back to its repository",
	Long: `Validates the file and writes it if the repository copy is still at
--revision. A conflict means somebody else saved in the meantime: pull
again and reapply the changes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if pushRevision == "" {
			return remote.ErrStaleOrMissingRevision
		}
		text, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading document: %w", err)
		}
		if _, err := validateDocument(text); err != nil {
			return err
		}
		store, err := openStore(settings, logger)
		if err != nil {
			return err
		}
		loc := settings.Location()
		if err := loc.Validate(); err != nil {
			return err
		}
		res, err := store.Write(cmd.Context(), loc, settings.GitHub.Token, remote.WriteRequest{
			Revision: pushRevision,
			Text:     string(text),
			Message:  pushMessage,
		})
		if errors.Is(err, remote.ErrConflict) {
			return fmt.Errorf("%w: pull the document again and reapply your changes", err)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "revision: %s\n", res.Revision)
		if res.CommitURL != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "commit: %s\n", res.CommitURL)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(documentCmd)
	documentCmd.AddCommand(validateCmd, defaultCmd, pullCmd, pushCmd)
	pullCmd.Flags().StringVarP(&pullOut, "out", "o", "", "file to write (default standard output)")
	pushCmd.Flags().StringVar(&pushRevision, "revision", "", "revision printed by pull (required)")
	pushCmd.Flags().StringVarP(&pushMessage, "message", "m", "", "commit message")
}

// validateDocument merges text over the defaults, checks the typed result
// and makes sure the merged tree encodes back.
func validateDocument(text []byte) (siteconfig.SiteConfig, error) {
	merged, cfg, err := siteconfig.MergeText(text)
	if err != nil {
		return siteconfig.SiteConfig{}, err
	}
	if _, err := siteconfig.EncodeDocument(merged); err != nil {
		return siteconfig.SiteConfig{}, err
	}
	return cfg, nil
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
