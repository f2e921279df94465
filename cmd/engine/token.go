package main

import (
	"errors"
	"fmt"
	"time"

	"skill-match/internal/pkg/jwt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an access token for an operator or a test candidate",
	RunE: func(cmd *cobra.Command, _ []string) error {
		user, _ := cmd.Flags().GetString("user")
		role, _ := cmd.Flags().GetString("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		if _, err := parseTokenSubject(user, role); err != nil {
			return err
		}

		cfg, _ := loadConfig()
		tok, err := mintToken(cfg.JWT.AccessSecret, cfg.JWT.Issuer, user, role, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func parseTokenSubject(user, role string) (uuid.UUID, error) {
	id, err := uuid.Parse(user)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --user: %w", err)
	}
	if role != jwt.RoleAdmin && role != jwt.RoleCandidate {
		return uuid.Nil, fmt.Errorf("unknown role %q", role)
	}
	return id, nil
}

func mintToken(secret, issuer, user, role string, ttl time.Duration) (string, error) {
	id, err := parseTokenSubject(user, role)
	if err != nil {
		return "", err
	}
	if secret == "" {
		return "", errors.New("JWT_ACCESS_SECRET is not set")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("--ttl must be positive, got %s", ttl)
	}
	return jwt.NewHMACService(secret, issuer).GenerateAccessToken(id, role, ttl)
}

func init() {
	tokenCmd.Flags().String("user", "", "user id placed in the token")
	tokenCmd.Flags().String("role", jwt.RoleAdmin, "admin or candidate")
	tokenCmd.Flags().Duration("ttl", time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(tokenCmd)
}
