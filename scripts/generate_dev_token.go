package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Standalone helper to mint a signed bearer token for manual testing against
// a locally running pizza service. Tokens in real deployments come from the
// auth service; this only mimics its claim shape.
func main() {
	role := flag.String("role", "ADMIN", "Role claim (ADMIN, STAFF or CUSTOMER)")
	subject := flag.String("sub", "dev-user", "Subject claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "secret"
	}

	claims := jwt.MapClaims{
		"sub":  *subject,
		"role": *role,
		"jti":  uuid.New().String(),
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(*ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		log.Fatal("Failed to sign token:", err)
	}

	fmt.Println("Bearer " + signed)
}
