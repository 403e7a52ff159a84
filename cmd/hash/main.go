// Package main prints the bcrypt hash of a password using the same hasher as the
// server. It is used to seed users directly into the users table.
//
//	hash [-cost N] <password>
//
// With no argument the password is read from the first line of stdin.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/identity-service/identity-service/internal/auth"
)

func main() {
	cost := flag.Int("cost", auth.DefaultBcryptCost, "bcrypt cost (4-31)")
	flag.Parse()

	password := flag.Arg(0)
	if password == "" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(os.Stderr, "usage: hash [-cost N] <password>")
			os.Exit(2)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	hasher, err := auth.NewPasswordHasher(*cost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	hash, err := hasher.Hash(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
