// Command devtoken prints a bearer token for local testing.
//
//	JWT_SECRET=... go run ./cmd/devtoken -user 2 -ttl 1h
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/auction-engine/internal/utils"
)

func main() {
	user := flag.Uint64("user", 0, "user id to put in the subject claim")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" || *user == 0 {
		fmt.Fprintln(os.Stderr, "usage: JWT_SECRET=... devtoken -user <id> [-ttl 1h]")
		os.Exit(2)
	}
	tok, exp, err := utils.NewAccessToken(secret, *user, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(tok)
	fmt.Fprintf(os.Stderr, "expires %s\n", exp.Format(time.RFC3339))
}
