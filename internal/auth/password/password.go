// Package password hashes account passwords with Argon2id and stores them in
// the PHC string form "$argon2id$v=19$m=<KiB>,t=<passes>,p=<lanes>$<salt>$<hash>".
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"
)

// MinLength is the shortest password accepted at sign-up, counted in runes
// after trimming surrounding space.
const MinLength = 8

const (
	saltLen = 16
	keyLen  = 32
)

type params struct {
	memory  uint32
	passes  uint32
	threads uint8
}

var current = params{memory: 64 * 1024, passes: 1, threads: 4}

// Acceptable reports whether a new password meets the sign-up policy.
func Acceptable(password string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(password)) >= MinLength
}

// Hash derives a key with a fresh random salt and returns the encoded form.
func Hash(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(password), salt, current.passes, current.memory, current.threads, keyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, current.memory, current.passes, current.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify re-derives the key with the parameters stored in encoded. Malformed
// or unsupported hashes never match.
func Verify(password, encoded string) bool {
	p, salt, key, ok := decode(encoded)
	if !ok {
		return false
	}
	check := argon2.IDKey([]byte(password), salt, p.passes, p.memory, p.threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, check) == 1
}

func decode(encoded string) (params, []byte, []byte, bool) {
	var p params
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return p, nil, nil, false
	}
	if fields[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return p, nil, nil, false
	}
	// A fourth match means trailing bytes after the lane count.
	var rest string
	if n, _ := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d%s", &p.memory, &p.passes, &p.threads, &rest); n != 3 {
		return p, nil, nil, false
	}
	if p.memory == 0 || p.passes == 0 || p.threads == 0 {
		return p, nil, nil, false
	}
	salt, err := base64.RawStdEncoding.DecodeString(fields[4])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, false
	}
	key, err := base64.RawStdEncoding.DecodeString(fields[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, false
	}
	return p, salt, key, true
}
