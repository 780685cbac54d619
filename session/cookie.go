package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/eprintd/authcore/internal"
)

// TokenFormat selects the cookie token serialization.
type TokenFormat string

const (
	// FormatCompact is the default: "sid:issued:expiry:hex(hmac-sha256)".
	FormatCompact TokenFormat = "compact"
	// FormatJWT issues an HS256 JWT whose jti claim is the session id.
	FormatJWT TokenFormat = "jwt"
)

// CookieCodec converts between a session and its opaque client-held token.
// Decode returns the session id, or ErrCorrupted for anything structurally
// or cryptographically wrong.
type CookieCodec interface {
	Encode(s *Session) (string, error)
	Decode(token string) (string, error)
}

// compactCodec signs "sid:issued:expiry" with HMAC-SHA256. The session id
// is base64url and the timestamps are decimal, so the token is cookie-safe
// and the colon never appears inside a field.
type compactCodec struct {
	secret []byte
}

func (c *compactCodec) Encode(s *Session) (string, error) {
	payload := fmt.Sprintf("%s:%d:%d", s.ID, s.IssuedAt.Unix(), s.ExpiresAt.Unix())
	return payload + ":" + c.tag(payload), nil
}

func (c *compactCodec) Decode(token string) (string, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 4 {
		return "", fmt.Errorf("%w: wrong field count", ErrCorrupted)
	}

	payload := strings.Join(parts[:3], ":")
	want, err := hex.DecodeString(parts[3])
	if err != nil {
		return "", fmt.Errorf("%w: bad tag encoding", ErrCorrupted)
	}
	got, err := hex.DecodeString(c.tag(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	if !hmac.Equal(got, want) {
		return "", fmt.Errorf("%w: integrity tag mismatch", ErrCorrupted)
	}

	for _, ts := range parts[1:3] {
		if _, err := strconv.ParseInt(ts, 10, 64); err != nil {
			return "", fmt.Errorf("%w: bad timestamp", ErrCorrupted)
		}
	}
	if _, err := internal.ParseSessionID(parts[0]); err != nil {
		return "", fmt.Errorf("%w: bad session id", ErrCorrupted)
	}
	return parts[0], nil
}

func (c *compactCodec) tag(payload string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// jwtCodec issues HS256 tokens with the session id in the jti claim. The
// embedded exp claim is a convenience for clients; the server-side record
// remains the expiry authority.
type jwtCodec struct {
	secret []byte
}

func (c *jwtCodec) Encode(s *Session) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        s.ID,
		IssuedAt:  jwt.NewNumericDate(s.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

func (c *jwtCodec) Decode(token string) (string, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	parsed, err := parser.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: token past embedded expiry", ErrExpired)
		}
		return "", fmt.Errorf("%w: %v", ErrCorrupted, err)
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.ID == "" {
		return "", fmt.Errorf("%w: missing session id claim", ErrCorrupted)
	}
	if _, err := internal.ParseSessionID(claims.ID); err != nil {
		return "", fmt.Errorf("%w: bad session id", ErrCorrupted)
	}
	return claims.ID, nil
}

func newCodec(format TokenFormat, secret []byte) (CookieCodec, error) {
	switch format {
	case FormatCompact, "":
		return &compactCodec{secret: secret}, nil
	case FormatJWT:
		return &jwtCodec{secret: secret}, nil
	}
	return nil, fmt.Errorf("%w: unknown token format %q", ErrBadConfig, format)
}
