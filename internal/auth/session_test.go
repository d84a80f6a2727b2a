package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/checkin"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	sess := checkin.Session{TeacherID: "INT-abc123", Email: "ada@example.com", VenueID: 7}

	token, err := IssueSession(sess, "rollcall", "test-key", 10*time.Minute)
	require.NoError(t, err)

	got, err := ParseSession(token, "test-key", "rollcall")
	require.NoError(t, err)
	assert.Equal(t, sess, got)
}

func TestParseSession_WrongKey(t *testing.T) {
	sess := checkin.Session{TeacherID: "INT-abc123", Email: "ada@example.com", VenueID: 7}
	token, err := IssueSession(sess, "rollcall", "test-key", 10*time.Minute)
	require.NoError(t, err)

	_, err = ParseSession(token, "other-key", "rollcall")
	assert.Error(t, err)
}

func TestParseSession_IssuerMismatch(t *testing.T) {
	token, err := IssueSession(checkin.Session{TeacherID: "INT-x"}, "someone-else", "test-key", time.Minute)
	require.NoError(t, err)

	_, err = ParseSession(token, "test-key", "rollcall")
	assert.Error(t, err)
}

func TestStationTokenRoundTrip(t *testing.T) {
	token, exp, err := IssueStation("station-1", "rollcall", "test-key", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := Parse(token, "test-key", "rollcall")
	require.NoError(t, err)
	assert.Equal(t, "station-1", claims.Subject)
	assert.Equal(t, "station", claims.Role)
}
