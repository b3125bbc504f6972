// Command hashpw generates the bcrypt hash for OPERATOR_PASSWORD_HASH.
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"bakasura-ingest/utils"
)

func main() {
	password := os.Getenv("OPERATOR_PASSWORD")
	if password == "" && len(os.Args) > 1 {
		password = os.Args[1]
	}
	if password == "" {
		log.Fatal("Usage: hashpw <password> (or set OPERATOR_PASSWORD)")
	}

	cost := 12
	if v := os.Getenv("BCRYPT_COST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cost = parsed
		}
	}

	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	fmt.Println(hash)
}
