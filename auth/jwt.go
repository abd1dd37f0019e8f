package auth

import (
	"crypto/sha256"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/oauth2"
)

// DefaultJWTLifetime is the lifetime of the tokens of [SignedJWT] when [JWTClaims].Lifetime is not set.
const DefaultJWTLifetime = 5 * time.Minute

// Minimum length of the shared secret of [SignedJWT].
const minSecretLen = 16

const keyInfo = "jrpc signed jwt v1"

// JWTClaims are the claims of the tokens issued by [SignedJWT].
type JWTClaims struct {
	Issuer   string
	Subject  string
	Audience string
	Lifetime time.Duration
}

// SignedJWT is a token source that issues its own HS256 tokens, signed with a key derived from a secret shared with
// the server, see [DeriveKey].
//
// Is safe for concurrent use.
type SignedJWT struct {
	signer jose.Signer
	claims JWTClaims

	mu sync.Mutex
}

// NewSignedJWT creates a [SignedJWT]. secret must have at least 16 bytes.
func NewSignedJWT(secret []byte, claims JWTClaims) (*SignedJWT, error) {
	key, err := DeriveKey(secret)
	if err != nil {
		return nil, err
	}

	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: key}, (&jose.SignerOptions{}).WithType("JWT"))
	if err != nil {
		return nil, fmt.Errorf("failed to create signer: %w", err)
	}

	if claims.Lifetime <= 0 {
		claims.Lifetime = DefaultJWTLifetime
	}

	return &SignedJWT{
		signer: signer,
		claims: claims,
	}, nil
}

// Token implements [oauth2.TokenSource], every call issues a new token.
func (s *SignedJWT) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	expiry := now.Add(s.claims.Lifetime)

	claims := jwt.Claims{
		Issuer:    s.claims.Issuer,
		Subject:   s.claims.Subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Expiry:    jwt.NewNumericDate(expiry),
	}

	if s.claims.Audience != "" {
		claims.Audience = jwt.Audience{s.claims.Audience}
	}

	raw, err := jwt.Signed(s.signer).Claims(claims).Serialize()
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &oauth2.Token{AccessToken: raw, TokenType: "Bearer", Expiry: expiry}, nil
}

// DeriveKey derives the HS256 key of [SignedJWT] from a shared secret with HKDF-SHA256. Servers use it to verify
// the tokens.
func DeriveKey(secret []byte) ([]byte, error) {
	if len(secret) < minSecretLen {
		return nil, fmt.Errorf("secret must have at least %d bytes: %w", minSecretLen, ErrConfig)
	}

	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	return key, nil
}

var _ oauth2.TokenSource = (*SignedJWT)(nil)
