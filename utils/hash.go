package utils

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

var searchKeyPattern = regexp.MustCompile(`[^a-zA-Z0-9_\-=]`)

// HashText returns the md5 hex digest of a chunk's text, used for
// deduplication in the search index.
func HashText(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// SanitizeSearchKey converts a string into a valid Azure AI Search document
// key. Keys may only contain letters, digits, underscore, dash and equals.
func SanitizeSearchKey(key string) string {
	return searchKeyPattern.ReplaceAllString(key, "_")
}

func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %v", err)
	}

	return string(hashedPassword), nil
}

func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
