package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	RoleAdmin     = "admin"
	RoleCandidate = "candidate"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims mirror what the identity service issues. Tokens without token_type are treated as
// access tokens.
type Claims struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role,omitempty"`
	TokenType string    `json:"token_type,omitempty"`

	jwtlib.RegisteredClaims
}

type Service interface {
	GenerateAccessToken(userID uuid.UUID, role string, ttl time.Duration) (string, error)
	ValidateToken(tokenString string) (Claims, error)
}

type HMACService struct {
	secret []byte
	issuer string

	now func() time.Time
}

func NewHMACService(secret, issuer string) *HMACService {
	return &HMACService{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}
}

// GenerateAccessToken mints a token for operators and tests; end-user tokens come from the
// identity service.
func (s *HMACService) GenerateAccessToken(userID uuid.UUID, role string, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 || ttl <= 0 || userID == uuid.Nil {
		return "", ErrTokenInvalid
	}
	now := s.now().UTC()
	c := Claims{
		UserID:    userID,
		Role:      role,
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    s.issuer,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			Subject:   userID.String(),
		},
	}
	t := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, c)
	return t.SignedString(s.secret)
}

func (s *HMACService) ValidateToken(tokenString string) (Claims, error) {
	if len(s.secret) == 0 {
		return Claims{}, ErrTokenInvalid
	}
	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(s.issuer))
	}
	p := jwtlib.NewParser(opts...)

	var c Claims
	tok, err := p.ParseWithClaims(tokenString, &c, func(token *jwtlib.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	if tok == nil || !tok.Valid {
		return Claims{}, ErrTokenInvalid
	}

	if c.TokenType == "" {
		c.TokenType = TokenTypeAccess
	}
	if c.TokenType != TokenTypeAccess {
		return Claims{}, ErrTokenInvalid
	}
	if c.UserID == uuid.Nil {
		id, err := uuid.Parse(c.Subject)
		if err != nil {
			return Claims{}, ErrTokenInvalid
		}
		c.UserID = id
	}
	return c, nil
}
