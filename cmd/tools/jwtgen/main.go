package main

import (
	"flag"
	"fmt"
	"time"

	"assetdb-api/internal/auth"
	"assetdb-api/internal/config"
	"assetdb-api/internal/models"

	"github.com/sirupsen/logrus"
)

func main() {
	var (
		userID     = flag.Int64("user", 1, "User ID")
		email      = flag.String("email", "admin@example.com", "User email")
		role       = flag.String("role", models.RoleAdmin, "Role (admin or user)")
		expiryMins = flag.Int("expiry", 1440, "Token expiry in minutes (default: 24 hours)")
		secret     = flag.String("secret", "", "JWT secret (overrides JWT_SECRET env var)")
		issuer     = flag.String("issuer", "", "JWT issuer (overrides JWT_ISS env var)")
		audience   = flag.String("audience", "", "JWT audience (overrides JWT_AUD env var)")
	)
	flag.Parse()

	if _, err := config.LoadEnv(".env", ".env.local"); err != nil {
		logrus.WithError(err).Fatal("load env files")
	}
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}

	// Override with command line flags if provided
	if *secret != "" {
		cfg.JWTSecret = *secret
	}
	if *issuer != "" {
		cfg.JWTIssuer = *issuer
	}
	if *audience != "" {
		cfg.JWTAudience = *audience
	}
	if !models.IsValidRole(*role) {
		logrus.Fatalf("invalid role %q: want admin or user", *role)
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, time.Duration(*expiryMins)*time.Minute)
	if err := jwtManager.ValidateConfig(); err != nil {
		logrus.WithError(err).Fatal("invalid JWT configuration")
	}

	token, err := jwtManager.GenerateToken(*userID, *email, *role)
	if err != nil {
		logrus.WithError(err).Fatal("failed to generate token")
	}

	fmt.Printf("JWT Token generated successfully!\n\n")
	fmt.Printf("User ID: %d\n", *userID)
	fmt.Printf("Email: %s\n", *email)
	fmt.Printf("Role: %s\n", *role)
	fmt.Printf("Expiry: %d minutes\n", *expiryMins)
	fmt.Printf("Issuer: %s\n", cfg.JWTIssuer)
	fmt.Printf("Audience: %s\n", cfg.JWTAudience)
	fmt.Printf("\nToken:\n%s\n\n", token)

	fmt.Printf("Usage example:\n")
	fmt.Printf("curl -H \"Authorization: Bearer %s\" http://localhost:8080/clients\n", token)
}
