package cmd

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/gymbook/internal/config"
)

func newKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "Generate cookie_hash_key and cookie_block_key values (base64)",
		RunE: func(cmd *cobra.Command, args []string) error {
			hash := make([]byte, 32)
			block := make([]byte, 32)
			if _, err := rand.Read(hash); err != nil {
				return err
			}
			if _, err := rand.Read(block); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "export %s_COOKIE_HASH_KEY=%s\n", config.EnvPrefix, base64.StdEncoding.EncodeToString(hash))
			fmt.Fprintf(out, "export %s_COOKIE_BLOCK_KEY=%s\n", config.EnvPrefix, base64.StdEncoding.EncodeToString(block))
			return nil
		},
	}
}
