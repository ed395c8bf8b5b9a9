// Package tokens genera tokens opacos y códigos numéricos para flujos de un
// solo uso (magic link, verificación de email, reset, SMS, state OAuth).
package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"math/big"
)

// Generator encapsula la fuente de aleatoriedad para poder fijarla en tests.
type Generator struct {
	rand io.Reader
}

// NewGenerator usa crypto/rand si r es nil.
func NewGenerator(r io.Reader) *Generator {
	if r == nil {
		r = rand.Reader
	}
	return &Generator{rand: r}
}

// Opaque retorna nBytes aleatorios en base64url sin padding.
func (g *Generator) Opaque(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := io.ReadFull(g.rand, b); err != nil {
		return "", fmt.Errorf("tokens: read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NumericCode retorna un código de exactamente digits dígitos sin cero inicial.
func (g *Generator) NumericCode(digits int) (string, error) {
	if digits <= 0 || digits > 18 {
		return "", fmt.Errorf("tokens: invalid code length %d", digits)
	}
	lo := pow10(digits - 1)
	span := pow10(digits) - lo
	n, err := rand.Int(g.rand, big.NewInt(span))
	if err != nil {
		return "", fmt.Errorf("tokens: read random: %w", err)
	}
	return fmt.Sprintf("%d", lo+n.Int64()), nil
}

// Digits retorna n dígitos uniformes, con ceros a la izquierda.
func (g *Generator) Digits(n int) (string, error) {
	if n <= 0 || n > 18 {
		return "", fmt.Errorf("tokens: invalid digit count %d", n)
	}
	v, err := rand.Int(g.rand, big.NewInt(pow10(n)))
	if err != nil {
		return "", fmt.Errorf("tokens: read random: %w", err)
	}
	return fmt.Sprintf("%0*d", n, v.Int64()), nil
}

func pow10(n int) int64 {
	p := int64(1)
	for i := 0; i < n; i++ {
		p *= 10
	}
	return p
}

// GenerateOpaqueToken usa crypto/rand directamente.
func GenerateOpaqueToken(nBytes int) (string, error) {
	return NewGenerator(nil).Opaque(nBytes)
}

// SHA256Base64URL devuelve sha256(input) en base64url sin padding (para guardar en DB).
func SHA256Base64URL(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
