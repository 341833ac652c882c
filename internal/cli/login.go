package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/me/galahad/pkg/galaxy"
	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var email string
	var apiKey string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store Galaxy credentials",
		Long: `Store a Galaxy API key for later commands. Give the key with --api-key, or
log in with --email and enter the password when prompted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			if apiKey == "" {
				if email == "" {
					fmt.Fprint(out, "Email: ")
					line, err := in.ReadString('\n')
					if err != nil && line == "" {
						return fmt.Errorf("read email: %w", err)
					}
					email = strings.TrimSpace(line)
				}
				fmt.Fprint(out, "Password: ")
				line, err := in.ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password := strings.TrimRight(line, "\r\n")
				if email == "" || password == "" {
					return errors.New("email and password cannot be empty")
				}

				apiKey, err = client.Authenticate(cmd.Context(), email, password)
				if err != nil {
					return fmt.Errorf("login failed: %s", galaxy.UserMessage(err))
				}
			}

			path, err := galaxy.SaveCredentials(galaxy.Credentials{
				URL:    cfg.Galaxy.URL,
				APIKey: strings.TrimSpace(apiKey),
				Email:  email,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Credentials saved to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Galaxy account email")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Galaxy API key (skips the password login)")
	return cmd
}
