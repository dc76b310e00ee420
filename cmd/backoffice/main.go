// Command backoffice runs the admin dashboard server and its maintenance tasks.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"backoffice/cmd/identity"
	"backoffice/cmd/internal/app"
	"backoffice/cmd/security/password"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFiles []string

	root := &cobra.Command{
		Use:           "backoffice",
		Short:         "Admin dashboard server",
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return app.LoadDotEnv(envFiles...)
		},
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files to load (missing files are skipped)")

	root.AddCommand(newServeCmd(), newHashPasswordCmd(), newCreateUserCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard over HTTP",
		Long: `Serve the dashboard, the auth API and the session sync websocket.

Configuration is read from BACKOFFICE_* environment variables after the --env-file files are
loaded. Without BACKOFFICE_DATABASE_URL users live in memory for the life of the process.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// .env was loaded by the root pre-run.
			return app.Serve()
		},
	}
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Read a password from stdin and print its Argon2id hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := password.FromEnv()
			if err != nil {
				return err
			}
			pw, err := readSecret(cmd.InOrStdin())
			if err != nil {
				return err
			}
			h, err := cfg.Hash(pw)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), h)
			return err
		},
	}
}

func newCreateUserCmd() *cobra.Command {
	var (
		username    string
		email       string
		displayName string
		role        string
	)

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a dashboard user; the password is read from stdin",
		Example: `  printf '%s' "$PW" | backoffice create-user --username navid --role admin
  backoffice create-user --username sara --email sara@example.com --role editor < pw.txt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, ok := identity.ParseRole(role)
			if !ok {
				return fmt.Errorf("unknown role %q (want admin or editor)", role)
			}
			pw, err := readSecret(cmd.InOrStdin())
			if err != nil {
				return err
			}

			cfg := app.LoadConfig()
			log := app.NewLogger(cfg)

			u, err := app.CreateUser(context.Background(), cfg, log, identity.CreateUserInput{
				Username:    username,
				Email:       email,
				DisplayName: displayName,
				Role:        r,
				Password:    pw,
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) role=%s\n", u.Username, u.ID, u.Role)
			return err
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "login name")
	cmd.Flags().StringVar(&email, "email", "", "email address (optional)")
	cmd.Flags().StringVar(&displayName, "name", "", "display name (optional)")
	cmd.Flags().StringVar(&role, "role", string(identity.RoleEditor), "admin or editor")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

// readSecret reads the first line of r without its line terminator.
func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("empty password on stdin")
	}
	return line, nil
}
