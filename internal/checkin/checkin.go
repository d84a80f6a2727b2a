package checkin

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"rollcall/internal/roster"
)

var (
	// ErrNotFound means a teacher or OTP record lookup missed.
	ErrNotFound = errors.New("not found")
	// ErrInvalidOTP covers wrong, expired and already-consumed codes alike so
	// a caller cannot tell a stale code from a bad one.
	ErrInvalidOTP = errors.New("incorrect or expired code")
	// ErrNoAssignment is the informational terminal state when a verified
	// teacher has no assignment at the scanned venue.
	ErrNoAssignment = errors.New("no assignment for this venue")
)

// OTPRecord is the single pending code for an email address. A new scan for
// the same address overwrites it; successful verification deletes it.
type OTPRecord struct {
	Email    string
	Code     string
	IssuedAt time.Time
}

// Session is the pending context between a scan and its verification.
type Session struct {
	TeacherID string `json:"teacher_id"`
	Email     string `json:"email"`
	VenueID   int64  `json:"venue_id"`
}

// OTPStore persists pending codes.
type OTPStore interface {
	UpsertOTP(ctx context.Context, rec OTPRecord) error
	GetOTP(ctx context.Context, email string) (OTPRecord, error)
	DeleteOTP(ctx context.Context, email string) error
}

// TeacherDirectory resolves teachers by exact identifier and email match.
type TeacherDirectory interface {
	GetTeacherByIDEmail(ctx context.Context, id, email string) (roster.Teacher, error)
}

// AttendanceMarker flips a (teacher, venue) assignment to Present. False
// means no such assignment exists.
type AttendanceMarker interface {
	MarkPresent(ctx context.Context, teacherID string, venueID int64) (bool, error)
}

// Notifier dispatches the code to the teacher. Delivery is best-effort and
// failures never surface back into the check-in flow.
type Notifier interface {
	SendOTP(ctx context.Context, to, code string)
}

// Service drives the scan -> issue -> verify -> mark flow for one
// (teacher, venue) interaction.
type Service struct {
	teachers   TeacherDirectory
	otps       OTPStore
	attendance AttendanceMarker
	notifier   Notifier
	window     time.Duration
}

// NewService creates a check-in service. window is the OTP validity period.
func NewService(teachers TeacherDirectory, otps OTPStore, attendance AttendanceMarker, notifier Notifier, window time.Duration) *Service {
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &Service{
		teachers:   teachers,
		otps:       otps,
		attendance: attendance,
		notifier:   notifier,
		window:     window,
	}
}

// Scan handles a QR hit: it verifies the teacher identity, issues a fresh
// code for the email, dispatches it, and returns the pending session context.
// No state changes on an identity mismatch.
func (s *Service) Scan(ctx context.Context, teacherID, email string, venueID int64) (Session, error) {
	t, err := s.teachers.GetTeacherByIDEmail(ctx, teacherID, email)
	if err != nil {
		if errors.Is(err, roster.ErrNotFound) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}

	code, err := generateCode()
	if err != nil {
		return Session{}, err
	}
	if err := s.otps.UpsertOTP(ctx, OTPRecord{
		Email:    t.Email,
		Code:     code,
		IssuedAt: time.Now().UTC(),
	}); err != nil {
		return Session{}, err
	}

	s.notifier.SendOTP(ctx, t.Email, code)

	return Session{TeacherID: t.ID, Email: t.Email, VenueID: venueID}, nil
}

// Verify checks the entered code against the pending record and, on success,
// marks the matching assignment Present and consumes the record. The record
// survives an ErrNoAssignment outcome so the teacher can retry at the right
// venue.
func (s *Service) Verify(ctx context.Context, sess Session, code string) error {
	rec, err := s.otps.GetOTP(ctx, sess.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidOTP
		}
		return err
	}
	if rec.Code != code || time.Since(rec.IssuedAt) >= s.window {
		return ErrInvalidOTP
	}

	if _, err := s.teachers.GetTeacherByIDEmail(ctx, sess.TeacherID, sess.Email); err != nil {
		if errors.Is(err, roster.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	marked, err := s.attendance.MarkPresent(ctx, sess.TeacherID, sess.VenueID)
	if err != nil {
		return err
	}
	if !marked {
		return ErrNoAssignment
	}

	if err := s.otps.DeleteOTP(ctx, sess.Email); err != nil {
		log.Printf("checkin: consume otp for %s failed: %v", sess.Email, err)
	}
	return nil
}

// generateCode draws a uniform 6-digit numeric code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
