package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/gymbook/internal/auth"
	"github.com/example/gymbook/internal/config"
)

func newHashPasswordCmd() *cobra.Command {
	var password string

	c := &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash for admin_password_hash",
		Long:  "Print a bcrypt hash for admin_password_hash. Without --password the password is read from the first line of stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no password given")
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return errors.New("no password given")
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "export %s_ADMIN_PASSWORD_HASH='%s'\n", config.EnvPrefix, hash)
			return nil
		},
	}

	c.Flags().StringVar(&password, "password", "", "password to hash")
	return c
}
