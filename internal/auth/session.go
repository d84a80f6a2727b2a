package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"rollcall/internal/checkin"
)

// SessionClaims carries the pending check-in context between the scan and
// verify steps, so the two-step flow stays stateless on the server.
type SessionClaims struct {
	TeacherID string `json:"teacher_id"`
	Email     string `json:"email"`
	VenueID   int64  `json:"venue_id"`
	jwt.RegisteredClaims
}

// IssueSession signs a short-lived token wrapping the pending session.
func IssueSession(sess checkin.Session, issuer, key string, ttl time.Duration) (string, error) {
	claims := SessionClaims{
		TeacherID: sess.TeacherID,
		Email:     sess.Email,
		VenueID:   sess.VenueID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   sess.TeacherID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
}

// ParseSession validates a session token and recovers the pending context.
func ParseSession(tokenStr, key, issuer string) (checkin.Session, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		return checkin.Session{}, err
	}
	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid {
		return checkin.Session{}, errors.New("invalid session token")
	}
	if issuer != "" && claims.Issuer != issuer {
		return checkin.Session{}, errors.New("issuer mismatch")
	}
	return checkin.Session{TeacherID: claims.TeacherID, Email: claims.Email, VenueID: claims.VenueID}, nil
}
