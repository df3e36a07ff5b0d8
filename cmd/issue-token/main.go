package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/noah-isme/result-portal-api/internal/models"
	"github.com/noah-isme/result-portal-api/internal/service"
	"github.com/noah-isme/result-portal-api/pkg/config"
)

// issue-token mints an access token with the configured JWT secret, for
// operators and local testing.
func main() {
	userID := flag.String("user", "", "user id placed in the token")
	role := flag.String("role", "", "one of ADMIN, STAFF, ADVISOR, HOD, DEAN, STUDENT")
	email := flag.String("email", "", "optional email claim")
	name := flag.String("name", "", "optional full name claim")
	ttl := flag.Duration("ttl", 0, "token lifetime, defaults to JWT_EXPIRATION")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	r, err := parseRole(*role)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	expiry := cfg.JWT.Expiration
	if *ttl > 0 {
		expiry = *ttl
	}
	tokens := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer, Expiry: expiry})
	token, expiresAt, err := tokens.Issue(*userID, r, *email, *name)
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires %s\n", expiresAt.Format(time.RFC3339))
}

func parseRole(raw string) (models.UserRole, error) {
	r := models.UserRole(strings.ToUpper(strings.TrimSpace(raw)))
	switch r {
	case models.RoleAdmin, models.RoleStaff, models.RoleAdvisor, models.RoleHOD, models.RoleDean, models.RoleStudent:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", raw)
}
