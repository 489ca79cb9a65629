package webhook

import (
	"errors"
	"strconv"
)

var (
	// ErrHandshakeRejected means the mode or verify token did not match.
	ErrHandshakeRejected = errors.New("webhook verification rejected")

	// ErrInvalidChallenge means the challenge was not an integer.
	ErrInvalidChallenge = errors.New("webhook challenge is not an integer")
)

// VerifyHandshake answers the platform's subscription check. It returns the
// challenge to echo back when mode is "subscribe" and the token matches.
func VerifyHandshake(mode, token, challenge, verifyToken string) (int64, error) {
	if mode != "subscribe" || verifyToken == "" || token != verifyToken {
		return 0, ErrHandshakeRejected
	}
	v, err := strconv.ParseInt(challenge, 10, 64)
	if err != nil {
		return 0, ErrInvalidChallenge
	}
	return v, nil
}
