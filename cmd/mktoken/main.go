// mktoken mints a signed bearer token for manual testing:
//
//	go run ./cmd/mktoken -user user-123 -email dev@example.com
//
// The secret defaults to the JWT_SECRET environment variable so tokens match
// a locally running server.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Chenghao-Wen/NoteTree/internal/auth"
)

func main() {
	userID := flag.String("user", "", "user ID to embed as the token subject")
	email := flag.String("email", "", "email claim (optional)")
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "signing secret (defaults to JWT_SECRET)")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "mktoken: -user is required")
		os.Exit(1)
	}
	if *secret == "" {
		fmt.Fprintln(os.Stderr, "mktoken: no secret; pass -secret or set JWT_SECRET")
		os.Exit(1)
	}

	token, err := auth.NewTokenService(*secret, *ttl).Issue(*userID, *email)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mktoken: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
