package main

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt cost 10, same as the original registration flow.
const hashCost = 10

func hashPassword(p string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(p), hashCost)
	return string(b), err
}

func comparePassword(hash, p string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(p)) == nil
}

// gravatarURL derives the default avatar for an email: md5 of the trimmed,
// lowercased address, size 200, pg-rated, "mystery man" fallback.
func gravatarURL(email string) string {
	h := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return "https://www.gravatar.com/avatar/" + hex.EncodeToString(h[:]) + "?s=200&r=pg&d=mm"
}
