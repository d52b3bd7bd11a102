package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"libralend/internal/access"
	"libralend/internal/config"
)

var (
	tokenSubject string
	tokenScopes  []string
	tokenTTL     time.Duration
)

var issueTokenCmd = &cobra.Command{
	Use:   "issue-token",
	Short: "Sign a bearer token with auth.jwt_secret",
	Long: `Signs an HS256 token for --subject carrying the given scopes. ADMIN may
issue and return items; any scope may read when reads are protected.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cfg.Auth.JWTSecret == "" {
			return errors.New("no jwt secret: set auth.jwt_secret or JWT_SECRET")
		}

		scopes := make([]string, 0, len(tokenScopes))
		for _, s := range tokenScopes {
			scopes = append(scopes, strings.ToUpper(s))
		}
		ttl := cfg.Auth.TokenTTL
		if cmd.Flags().Changed("ttl") {
			ttl = tokenTTL
		}

		token, err := access.IssueToken([]byte(cfg.Auth.JWTSecret), tokenSubject, scopes, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	issueTokenCmd.Flags().StringVar(&tokenSubject, "subject", "admin", "token subject")
	issueTokenCmd.Flags().StringSliceVar(&tokenScopes, "scope", []string{access.ScopeAdmin}, "scopes to grant (ADMIN, USER)")
	issueTokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime, 0 for no expiry (default auth.token_ttl)")
	rootCmd.AddCommand(issueTokenCmd)
}
