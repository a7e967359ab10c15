package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taskpilot/taskpilot/internal/integration"
)

var authorizeAccount string

var authorizeCmd = &cobra.Command{
	Use:   "authorize",
	Short: "Authorize a Google Calendar account",
	Long: `Run the manual OAuth flow for one calendar account: print the consent
URL, then exchange the pasted authorization code for a token saved next
to settings.yaml.

Requires google_credentials.json in the base directory.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		url, err := integration.AuthURL(BasePath)
		if err != nil {
			return err
		}

		fmt.Printf("Open this URL in your browser and grant access:\n\n%s\n\n", url)
		fmt.Print("Paste the authorization code: ")

		reader := bufio.NewReader(os.Stdin)
		code, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading authorization code: %w", err)
		}
		code = strings.TrimSpace(code)
		if code == "" {
			return fmt.Errorf("no authorization code given")
		}

		if err := integration.ExchangeAndSave(cmd.Context(), BasePath, authorizeAccount, code); err != nil {
			return err
		}

		fmt.Printf("token saved for account %q\n", authorizeAccount)
		return nil
	},
}

func init() {
	authorizeCmd.Flags().StringVarP(&authorizeAccount, "account", "a", "primary", "account name the token is saved under")
	rootCmd.AddCommand(authorizeCmd)
}
