// mktoken mints a development bearer token for a given actor. The
// production platform issues tokens from its account subsystem; this
// tool exists so curl and the CLI client can talk to a local server.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
)

func main() {
	actorID := flag.String("actor", "", "Actor UUID (sub claim)")
	role := flag.String("role", "customer", "Actor role: customer, tukang or admin")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	if *actorID == "" {
		fmt.Fprintln(os.Stderr, "Usage: mktoken -actor <uuid> [-role customer|tukang|admin] [-ttl 24h]")
		os.Exit(1)
	}
	switch *role {
	case "customer", "tukang", "admin":
	default:
		fmt.Fprintf(os.Stderr, "Unknown role %q\n", *role)
		os.Exit(1)
	}

	_ = godotenv.Load()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-secret"
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  *actorID,
		"role": *role,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(*ttl).Unix(),
	}).SignedString([]byte(secret))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Signing failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
