package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nexcart/storefront/internal/app"
	"github.com/nexcart/storefront/internal/config"
	"github.com/nexcart/storefront/internal/logger"
)

// env is populated by the root command before any subcommand runs
type env struct {
	app    *app.App
	logger *zap.Logger
}

func main() {
	e := &env{}
	root := newRootCmd(e)
	err := root.Execute()
	if e.app != nil {
		e.app.Close()
	}
	if e.logger != nil {
		_ = e.logger.Sync()
	}
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:          "nexcart",
		Short:        "Shop the NexCart store from the terminal",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			log, err := logger.New(cfg.LogLevel, cfg.Environment)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			e.logger = log

			a, err := app.New(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			e.app = a
			return nil
		},
	}

	root.AddCommand(
		newLoginCmd(e),
		newLogoutCmd(e),
		newProductsCmd(e),
		newCartCmd(e),
		newCheckoutCmd(e),
		newOrdersCmd(e),
	)
	return root
}

func newLoginCmd(e *env) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("NEXCART_PASSWORD")
			}
			if err := e.app.Session.Login(cmd.Context(), username, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", username)

			result := e.app.Cart.Load(cmd.Context())
			printSync(cmd, result)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (or NEXCART_PASSWORD)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newLogoutCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.app.Session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}
