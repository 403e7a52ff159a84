// Package main generates a random signing secret for access tokens and prints it
// in a form that can be pasted into an env file:
//
//	go run ./scripts > .env.local
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"

	"github.com/identity-service/identity-service/internal/auth"
)

func main() {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%s=%s\n", auth.JWTSecretEnv, hex.EncodeToString(b))
}
