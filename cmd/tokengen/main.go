// Command tokengen mints a session token for local testing and ops scripts.
//
//	PANELGATE_AUTH_JWT_SECRET=... tokengen -uid 1b9d6bcd-bbfd-4b2d-9b5d-ab8dfbbd4bed -role admin
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/GoPolymarket/panelgate/internal/auth"
	"github.com/GoPolymarket/panelgate/internal/config"
	"github.com/GoPolymarket/panelgate/internal/model"
	"github.com/GoPolymarket/panelgate/internal/sanitize"
)

func main() {
	uid := flag.String("uid", "", "user id (profile UUID)")
	role := flag.String("role", string(model.RoleMember), "member or admin")
	ttl := flag.Duration("ttl", 0, "token lifetime, defaults to auth.token_ttl")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Auth.JWTSecret == "" {
		log.Fatalf("auth.jwt_secret is not set")
	}
	if !sanitize.IsUUID(*uid) {
		log.Fatalf("-uid must be a UUID, got %q", *uid)
	}
	r := model.Role(*role)
	if !r.Valid() {
		log.Fatalf("-role must be member or admin, got %q", *role)
	}
	lifetime := *ttl
	if lifetime <= 0 {
		lifetime = cfg.Auth.TokenTTL
	}

	tok, err := auth.GenerateToken(*uid, r, []byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer, lifetime)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Fprintln(os.Stdout, tok)
	fmt.Fprintf(os.Stderr, "expires %s\n", time.Now().Add(lifetime).UTC().Format(time.RFC3339))
}
