package connect

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// StateClaims ride inside the OAuth state parameter as a signed JWT, so the
// callback can recover which access request and platform a redirect belongs
// to without any server-side lookup.
type StateClaims struct {
	Platform        string `json:"platform"`
	AccessRequestID string `json:"arid"`
	ClientEmail     string `json:"email,omitempty"`
	Nonce           string `json:"nonce"`
	jwtv5.RegisteredClaims
}

// StateAudience is the expected audience for connect state tokens.
const StateAudience = "connect-state"

// StateSigner signs and validates state JWTs.
type StateSigner interface {
	SignState(claims StateClaims) (string, error)
	ParseState(tokenString string) (*StateClaims, error)
}

var (
	ErrStateInvalid = errors.New("invalid state token")
	ErrStateExpired = errors.New("state token expired")
)

// HS256Signer implements StateSigner with a shared HMAC secret. The state
// only needs to be tamper-proof against the browser, not third parties, so
// a symmetric key suffices.
type HS256Signer struct {
	Secret   []byte
	Issuer   string
	StateTTL time.Duration
}

func NewHS256Signer(secret, issuer string, ttl time.Duration) *HS256Signer {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &HS256Signer{Secret: []byte(secret), Issuer: issuer, StateTTL: ttl}
}

func (s *HS256Signer) SignState(claims StateClaims) (string, error) {
	now := time.Now().UTC()
	claims.RegisteredClaims = jwtv5.RegisteredClaims{
		Issuer:    s.Issuer,
		Audience:  jwtv5.ClaimStrings{StateAudience},
		IssuedAt:  jwtv5.NewNumericDate(now),
		NotBefore: jwtv5.NewNumericDate(now),
		ExpiresAt: jwtv5.NewNumericDate(now.Add(s.StateTTL)),
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	return tk.SignedString(s.Secret)
}

func (s *HS256Signer) ParseState(tokenString string) (*StateClaims, error) {
	var claims StateClaims
	tk, err := jwtv5.ParseWithClaims(tokenString, &claims,
		func(*jwtv5.Token) (any, error) { return s.Secret, nil },
		jwtv5.WithValidMethods([]string{"HS256"}),
		jwtv5.WithAudience(StateAudience),
		jwtv5.WithIssuer(s.Issuer),
		jwtv5.WithLeeway(30*time.Second),
	)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrStateExpired
		}
		return nil, ErrStateInvalid
	}
	if !tk.Valid {
		return nil, ErrStateInvalid
	}
	return &claims, nil
}
