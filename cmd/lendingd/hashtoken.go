package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"libralend/internal/access"
)

var hashTokenCmd = &cobra.Command{
	Use:   "hash-token [token]",
	Short: "Hash a static admin token for auth.token_hash",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token := os.Getenv("API_TOKEN")
		if len(args) == 1 {
			token = args[0]
		}
		if token == "" {
			return errors.New("no token given: pass it as an argument or set API_TOKEN")
		}

		encoded, err := access.HashToken(token)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), encoded)
		return nil
	},
}
