package auth

import (
	"strings"
	"time"

	chaterr "github.com/Instant-Chat-App/InstantChat-Server/errors"
	"github.com/golang-jwt/jwt/v5"
)

// Verifier is the identity collaborator the core consumes: it turns a
// bearer token into an authenticated member id. Token minting lives
// outside this process; Issue exists for the handful of places (tests,
// tooling) that need a counterpart.
type Verifier interface {
	Verify(token string) (uint, error)
}

// MemberClaims is the payload this service expects inside a JWT.
type MemberClaims struct {
	MemberID uint `json:"member_id"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 tokens signed with a shared secret.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Verify(tokenString string) (uint, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")
	token, err := jwt.ParseWithClaims(tokenString, &MemberClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, chaterr.ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil {
		return 0, chaterr.ErrInvalidToken
	}
	claims, ok := token.Claims.(*MemberClaims)
	if !ok || !token.Valid || claims.MemberID == 0 {
		return 0, chaterr.ErrInvalidToken
	}
	return claims.MemberID, nil
}

// Issue signs a token for memberID, valid for ttl.
func (v *JWTVerifier) Issue(memberID uint, ttl time.Duration) (string, error) {
	claims := &MemberClaims{
		MemberID: memberID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "instantchat",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
