package auth

import (
	"testing"
	"time"

	chaterr "github.com/Instant-Chat-App/InstantChat-Server/errors"
	"github.com/stretchr/testify/require"
)

func Test_Issue_Verify_Roundtrip(t *testing.T) {
	req := require.New(t)
	v := NewJWTVerifier("test-secret")

	token, err := v.Issue(42, time.Hour)
	req.NoError(err)

	memberID, err := v.Verify(token)
	req.NoError(err)
	req.Equal(uint(42), memberID)

	// The header value form works too.
	memberID, err = v.Verify("Bearer " + token)
	req.NoError(err)
	req.Equal(uint(42), memberID)
}

func Test_Verify_Rejects_Bad_Tokens(t *testing.T) {
	req := require.New(t)
	v := NewJWTVerifier("test-secret")

	_, err := v.Verify("not-a-jwt")
	req.ErrorIs(err, chaterr.ErrInvalidToken)

	other, err := NewJWTVerifier("different-secret").Issue(42, time.Hour)
	req.NoError(err)
	_, err = v.Verify(other)
	req.ErrorIs(err, chaterr.ErrInvalidToken)

	expired, err := v.Issue(42, -time.Minute)
	req.NoError(err)
	_, err = v.Verify(expired)
	req.ErrorIs(err, chaterr.ErrInvalidToken)

	anonymous, err := v.Issue(0, time.Hour)
	req.NoError(err)
	_, err = v.Verify(anonymous)
	req.ErrorIs(err, chaterr.ErrInvalidToken)
}
