package link

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalid = errors.New("recovery link invalid or expired")

// Payload identifies the checkout a recovery link resumes.
type Payload struct {
	CheckoutToken string
	ShopDomain    string
}

// Signer mints and verifies the signed tokens embedded in outreach
// messages. Expiry is enforced on verification so old emails stop
// working once the link TTL passes.
type Signer struct {
	secret []byte
	ttl    time.Duration
}

func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{secret: []byte(secret), ttl: ttl}
}

func (s *Signer) Sign(p Payload) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  p.CheckoutToken,
		"shop": p.ShopDomain,
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

func (s *Signer) Verify(token string) (Payload, error) {
	t, err := jwt.Parse(token, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !t.Valid {
		return Payload{}, ErrInvalid
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return Payload{}, ErrInvalid
	}
	sub, _ := claims["sub"].(string)
	shop, _ := claims["shop"].(string)
	if sub == "" || shop == "" {
		return Payload{}, ErrInvalid
	}
	return Payload{CheckoutToken: sub, ShopDomain: shop}, nil
}
