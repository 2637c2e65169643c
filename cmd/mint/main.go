// Command vivid-mint prints a custom sign-in token for a UID.
//
// The token is what a host hands the client as VIVID_AUTH_TOKEN.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"

	pkgcrypto "github.com/and161185/forever-vivid/internal/crypto"
	"github.com/and161185/forever-vivid/internal/service"
)

func main() {
	_ = godotenv.Load()
	if err := run(os.Args[1:], os.Getenv("SERVER_SECRET"), time.Now(), os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "mint:", err)
		os.Exit(1)
	}
}

func run(args []string, secret string, now time.Time, out io.Writer) error {
	fs := flag.NewFlagSet("vivid-mint", flag.ContinueOnError)
	uid := fs.String("uid", "", "user id the token signs in as (required)")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	fs.StringVar(&secret, "secret", secret, "server secret (defaults to SERVER_SECRET)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *uid == "" {
		return fmt.Errorf("--uid is required")
	}
	if secret == "" {
		return fmt.Errorf("no server secret: set SERVER_SECRET or --secret")
	}

	keys, err := pkgcrypto.DeriveSigningKeys([]byte(secret))
	if err != nil {
		return err
	}
	tok, err := service.MintCustomToken(keys.Custom, *uid, *ttl, now)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, tok)
	return err
}
