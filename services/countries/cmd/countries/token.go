package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"countryrates/internal/admintoken"
)

var (
	tokenSubject string
	tokenTTL     time.Duration

	keygenPrivate string
	keygenPublic  string
)

var issueTokenCmd = &cobra.Command{
	Use:   "issue-token",
	Short: "Print an admin token allowed to refresh and delete",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.AdminJWTPrivateKeyPath == "" {
			return errors.New("adminJwtPrivateKeyPath is required (set in config.yaml or ADMIN_JWT_PRIVATE_KEY_PATH)")
		}
		signer, err := admintoken.NewSigner(admintoken.SignerOptions{
			PrivateKeyPath: cfg.AdminJWTPrivateKeyPath,
			KeyID:          cfg.AdminJWTKeyID,
			TTL:            tokenTTL,
		})
		if err != nil {
			return err
		}
		token, err := signer.Sign(tokenSubject, admintoken.ScopeWrite)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var revokeTokenCmd = &cobra.Command{
	Use:   "revoke-token <token>",
	Short: "Revoke an admin token before it expires",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.RedisAddr == "" {
			return errors.New("redisAddr is required (set in config.yaml or REDIS_ADDR)")
		}
		if !cfg.AdminAuthEnabled() {
			return errors.New("admin token verification is not configured")
		}
		verifyKeys, err := admintoken.ParseVerifyPublicKeys(cfg.AdminJWTVerifyPublicKeys)
		if err != nil {
			return err
		}
		verifier, err := admintoken.NewVerifier(admintoken.VerifierOptions{
			PublicKeyPath:      cfg.AdminJWTPublicKeyPath,
			VerifyPublicKeyMap: verifyKeys,
			DefaultKeyID:       cfg.AdminJWTKeyID,
		})
		if err != nil {
			return err
		}
		claims, err := verifier.Verify(args[0], "")
		if err != nil {
			return fmt.Errorf("token is not valid, nothing to revoke: %w", err)
		}
		revocations, err := admintoken.NewRedisRevocations(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return err
		}
		defer revocations.Close()
		ttl := time.Until(claims.ExpiresAt.Time) + admintoken.DefaultLeeway
		if err := revocations.Revoke(cmd.Context(), claims.ID, ttl); err != nil {
			return fmt.Errorf("revoke token: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "revoked %s (subject %s)\n", claims.ID, claims.Subject)
		return nil
	},
}

var keygenCmd = &cobra.Command{
	Use:         "keygen",
	Short:       "Generate an RSA key pair for admin tokens",
	Annotations: map[string]string{"config": "none"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := admintoken.GenerateKeyPairFiles(keygenPrivate, keygenPublic); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s and %s\n", keygenPrivate, keygenPublic)
		return nil
	},
}

func init() {
	issueTokenCmd.Flags().StringVar(&tokenSubject, "subject", "operator", "token subject")
	issueTokenCmd.Flags().DurationVar(&tokenTTL, "ttl", admintoken.DefaultTokenTTL, "token lifetime")

	keygenCmd.Flags().StringVar(&keygenPrivate, "private", "secrets/admin_jwt_private.pem", "private key output path")
	keygenCmd.Flags().StringVar(&keygenPublic, "public", "secrets/admin_jwt_public.pem", "public key output path")
}
