package main

import (
	"errors"
	"fmt"
	"os"

	"go-pages-app/internal/service"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	newUsername string
	newEmail    string
	firstOnly   bool
)

var createUserCmd = &cobra.Command{
	Use:   "createuser",
	Short: "Create an account, prompting for its password",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Fprint(os.Stderr, "Password: ")
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}

		a, err := newApp(cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		in := service.RegisterInput{Username: newUsername, Email: newEmail, Password: string(password)}
		register := a.users.Register
		if firstOnly {
			register = a.users.EnsureFirstUser
		}
		u, err := register(cmd.Context(), in)
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			return errors.New(verr.Message)
		}
		if err != nil {
			return err
		}
		log.Info(fmt.Sprintf("User %q is ready (id %d)", u.Username, u.ID))
		return nil
	},
}

func init() {
	createUserCmd.Flags().StringVar(&newUsername, "username", "", "username of the new account")
	createUserCmd.Flags().StringVar(&newEmail, "email", "", "email of the new account")
	createUserCmd.Flags().BoolVar(&firstOnly, "if-empty", false, "only create the account when no user exists yet")
	_ = createUserCmd.MarkFlagRequired("username")
	_ = createUserCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(createUserCmd)
}
