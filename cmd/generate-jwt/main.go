package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/EZGGdotxyz/ezgg-service/internal/middleware"
)

// Generates a bearer token for local API testing.
func main() {
	memberID := flag.Int64("member", 1, "member id to embed in the token")
	did := flag.String("did", "did:privy:local-test", "member did")
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "signing secret")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *secret == "" {
		fmt.Fprintln(os.Stderr, "missing signing secret: pass -secret or set JWT_SECRET")
		os.Exit(1)
	}

	now := time.Now()
	claims := middleware.MemberClaims{
		MemberID: *memberID,
		Did:      *did,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(*ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "ezgg-service",
			Subject:   *did,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(*secret))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to sign token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(tokenString)
}
