// Package password agrupa hashing (bcrypt/argon2id), política de fortaleza y
// blacklist de passwords comunes.
package password

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

var ErrEmptyPassword = errors.New("password: empty password")

// Hasher produce y verifica hashes de password.
type Hasher interface {
	Hash(plain string) (string, error)
}

// Bcrypt es el hasher por defecto.
type Bcrypt struct {
	Cost int
}

func (b Bcrypt) Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("password: bcrypt: %w", err)
	}
	return string(h), nil
}

// Argon2id produce PHC strings: $argon2id$v=19$m=..,t=..,p=..$<salt>$<key>
type Argon2id struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	KeyLen      uint32
}

var DefaultArgon2id = Argon2id{Memory: 64 * 1024, Time: 3, Parallelism: 1, KeyLen: 32}

func (p Argon2id) Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	dk := argon2.IDKey([]byte(plain), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		p.Memory, p.Time, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(dk),
	), nil
}

// NewHasher elige algoritmo por nombre ("bcrypt" | "argon2id").
func NewHasher(algo string, bcryptCost int) (Hasher, error) {
	switch strings.ToLower(strings.TrimSpace(algo)) {
	case "", "bcrypt":
		return Bcrypt{Cost: bcryptCost}, nil
	case "argon2id":
		return DefaultArgon2id, nil
	default:
		return nil, fmt.Errorf("password: unknown algorithm %q", algo)
	}
}

// Verify compara plain contra un hash de cualquiera de los algoritmos
// soportados; el algoritmo se detecta por el prefijo.
func Verify(hash, plain string) bool {
	if hash == "" || plain == "" {
		return false
	}
	if strings.HasPrefix(hash, "$argon2id$") {
		return verifyArgon2id(plain, hash)
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

func verifyArgon2id(plain, phc string) bool {
	// $argon2id$v=19$m=65536,t=3,p=1$salt$key
	parts := strings.Split(phc, "$")
	if len(parts) != 6 {
		return false
	}
	var v int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &v); err != nil || v != 19 {
		return false
	}
	var m, t, p int
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &m, &t, &p); err != nil {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	stored, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}
	key := argon2.IDKey([]byte(plain), salt, uint32(t), uint32(m), uint8(p), uint32(len(stored)))
	return subtle.ConstantTimeCompare(key, stored) == 1
}

// HashContext corre Hash respetando el deadline de ctx. bcrypt/argon2 no son
// cancelables: si vence el contexto el cómputo sigue en background y se descarta.
func HashContext(ctx context.Context, h Hasher, plain string) (string, error) {
	type result struct {
		hash string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		hash, err := h.Hash(plain)
		ch <- result{hash, err}
	}()
	select {
	case r := <-ch:
		return r.hash, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// VerifyContext es Verify con deadline.
func VerifyContext(ctx context.Context, hash, plain string) (bool, error) {
	ch := make(chan bool, 1)
	go func() { ch <- Verify(hash, plain) }()
	select {
	case ok := <-ch:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
