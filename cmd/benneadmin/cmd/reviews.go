package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mickael31/location-benne-occitanie/reviews"
	"github.com/mickael31/location-benne-occitanie/siteconfig"
)

var (
	reviewsAccount  string
	reviewsLocation string
)

var reviewsCmd = &cobra.Command{
	Use:   "reviews",
	Short: "Google Business Profile review tools",
	Long: `Commands for listing Google reviews and importing them as home page
testimonials. Without google.access_token in the settings, each command
runs the browser consent flow with google.client_id.`,
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List the accounts the token can see",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, token, err := googleSession(cmd.Context(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		accounts, err := client.ListAccounts(cmd.Context(), token)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, a := range accounts {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", a.Name, a.AccountName, a.Type)
		}
		return tw.Flush()
	},
}

var locationsCmd = &cobra.Command{
	Use:   "locations",
	Short: "List the locations of an account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		account := pick(reviewsAccount, settings.Google.Account)
		if account == "" {
			return reviews.ErrAccountRequired
		}
		client, token, err := googleSession(cmd.Context(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		locations, err := client.ListLocations(cmd.Context(), token, account)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, l := range locations {
			fmt.Fprintf(tw, "%s\t%s\n", l.Name, l.Title)
		}
		return tw.Flush()
	},
}

var listReviewsCmd = &cobra.Command{
	Use:   "list",
	Short: "List the reviews of a location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := fetchReviews(cmd)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, t := range reviews.Testimonials(list) {
			rating := "-"
			if t.Rating != nil {
				rating = fmt.Sprintf("%.1f", *t.Rating)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.Date, rating, t.Author, oneLine(t.Text, 60))
		}
		return tw.Flush()
	},
}

var importReviewsCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Replace the testimonials of a local document with Google reviews",
	Long: `Fetches the reviews of the location, keeps the first ones that have a
comment and rewrites home.testimonials.items and admin.google in the file.
Push the file afterwards to publish it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading document: %w", err)
		}
		list, err := fetchReviews(cmd)
		if err != nil {
			return err
		}
		items := reviews.Testimonials(list)
		source := siteconfig.GoogleSettings{
			OAuthClientID: settings.Google.ClientID,
			AccountName:   pick(reviewsAccount, settings.Google.Account),
			LocationName:  pick(reviewsLocation, settings.Google.Location),
			Scope:         settings.Google.Scope,
		}
		out, err := importTestimonials(text, items, source)
		if err != nil {
			return err
		}
		if err := os.WriteFile(args[0], out, 0o644); err != nil {
			return fmt.Errorf("writing document: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d testimonials imported into %s\n", len(items), args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reviewsCmd)
	reviewsCmd.AddCommand(accountsCmd, locationsCmd, listReviewsCmd, importReviewsCmd)
	reviewsCmd.PersistentFlags().StringVar(&reviewsAccount, "account", "", "account resource name (default google.account)")
	reviewsCmd.PersistentFlags().StringVar(&reviewsLocation, "location", "", "location resource name (default google.location)")
}

// tokenSource uses the configured access token when there is one and the
// browser consent flow otherwise.
func tokenSource(stderr io.Writer) reviews.TokenSource {
	if settings.Google.AccessToken != "" {
		return reviews.StaticTokenSource{Token: reviews.Token{AccessToken: settings.Google.AccessToken}}
	}
	return &reviews.LoopbackTokenSource{
		ClientSecret: settings.Google.ClientSecret,
		Logger:       logger,
		OpenURL: func(authURL string) error {
			fmt.Fprintf(stderr, "Open this address to connect Google:\n\n  %s\n\n", authURL)
			return nil
		},
	}
}

func googleSession(ctx context.Context, stderr io.Writer) (*reviews.Client, string, error) {
	tok, err := tokenSource(stderr).AcquireToken(ctx, reviews.TokenRequest{
		ClientID: settings.Google.ClientID,
		Scope:    settings.Google.Scope,
		Prompt:   reviews.DefaultPrompt,
	})
	if err != nil {
		return nil, "", err
	}
	return reviews.NewClient(reviews.WithLogger(logger)), tok.AccessToken, nil
}

func fetchReviews(cmd *cobra.Command) ([]reviews.Review, error) {
	location := pick(reviewsLocation, settings.Google.Location)
	if location == "" {
		return nil, reviews.ErrLocationRequired
	}
	client, token, err := googleSession(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	return client.ListReviews(cmd.Context(), token, location)
}

// importTestimonials rewrites the testimonials and the review source of a
// document. The result is the merged document, so keys missing from text
// come back with their default values.
func importTestimonials(text []byte, items []siteconfig.Testimonial, source siteconfig.GoogleSettings) ([]byte, error) {
	doc, _, err := siteconfig.MergeText(text)
	if err != nil {
		return nil, err
	}
	itemsValue, err := siteconfig.ToValue(items)
	if err != nil {
		return nil, err
	}
	sourceValue, err := siteconfig.ToValue(source)
	if err != nil {
		return nil, err
	}
	siteconfig.SetPath(doc, itemsValue, "home", "testimonials", "items")
	siteconfig.SetPath(doc, sourceValue, "admin", "google")
	if _, err := siteconfig.Normalize(doc); err != nil {
		return nil, err
	}
	return siteconfig.EncodeDocument(doc)
}

func pick(flag, setting string) string {
	if s := strings.TrimSpace(flag); s != "" {
		return s
	}
	return strings.TrimSpace(setting)
}

func oneLine(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > width {
		return string(r[:width-1]) + "…"
	}
	return s
}
