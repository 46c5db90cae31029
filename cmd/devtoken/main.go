// Command devtoken mints a bearer token for local development.
//
//	go run ./cmd/devtoken -email shopper@example.com
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dukerupert/storefront/internal"
	"github.com/dukerupert/storefront/internal/domain"
	"github.com/dukerupert/storefront/internal/middleware"
)

func main() {
	emailFlag := flag.String("email", "", "shopper email (required)")
	subject := flag.String("sub", "", "subject claim, defaults to the email")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	email := strings.ToLower(strings.TrimSpace(*emailFlag))
	if email == "" {
		log.Fatal("-email is required")
	}

	cfg, err := internal.NewConfig()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.IsProduction() {
		log.Fatal("refusing to mint tokens with ENV=prod")
	}

	auth := middleware.NewAuthenticator(middleware.AuthConfig{
		Secret: []byte(cfg.Auth.JWTSecret),
		Issuer: cfg.Auth.Issuer,
	})
	token, err := auth.Issue(domain.Identity{Subject: *subject, Email: email}, *ttl)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(token)
}
