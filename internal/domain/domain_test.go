package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseUserID(t *testing.T) {
	testCases := []struct {
		name    string
		raw     string
		want    UserID
		wantErr error
	}{
		{name: "plain", raw: "alice", want: "alice"},
		{name: "trimmed", raw: "  bob \n", want: "bob"},
		{name: "empty", raw: "", wantErr: ErrUserIDEmpty},
		{name: "blank", raw: "   ", wantErr: ErrUserIDEmpty},
		{name: "too long", raw: strings.Repeat("x", MaxUserIDLen+1), wantErr: ErrUserIDTooLong},
		{name: "max length", raw: strings.Repeat("x", MaxUserIDLen), want: UserID(strings.Repeat("x", MaxUserIDLen))},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseUserID(tc.raw)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseRoomID(t *testing.T) {
	if _, err := ParseRoomID(" "); !errors.Is(err, ErrRoomIDEmpty) {
		t.Errorf("blank room: err = %v", err)
	}
	if _, err := ParseRoomID(strings.Repeat("r", MaxRoomIDLen+1)); !errors.Is(err, ErrRoomIDTooLong) {
		t.Errorf("long room: err = %v", err)
	}
	got, err := ParseRoomID(" room-1 ")
	if err != nil || got != "room-1" {
		t.Errorf("got %q, %v", got, err)
	}
}

func TestCheckUsername(t *testing.T) {
	if err := CheckUsername("Alice"); err != nil {
		t.Errorf("short name: %v", err)
	}
	if err := CheckUsername(strings.Repeat("n", MaxUsernameLen+1)); !errors.Is(err, ErrUsernameTooLong) {
		t.Errorf("err = %v, want ErrUsernameTooLong", err)
	}
}

func TestParseCallType(t *testing.T) {
	testCases := []struct {
		raw     string
		want    CallType
		wantErr bool
	}{
		{raw: "", want: CallTypeVideo},
		{raw: "video", want: CallTypeVideo},
		{raw: "audio", want: CallTypeAudio},
		{raw: "screen", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := ParseCallType(tc.raw)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCallSession(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewCallSession("r1", "alice", CallTypeAudio, start)

	if s.Status != CallStatusConnecting {
		t.Errorf("status = %q, want connecting", s.Status)
	}
	if !s.HasParticipant("alice") {
		t.Error("initiator must be a participant")
	}
	if !s.AddParticipant("bob") {
		t.Error("first add of bob should report true")
	}
	if s.AddParticipant("bob") {
		t.Error("second add of bob should report false")
	}
	if got := s.ParticipantList(); len(got) != 2 || got[0] != "alice" || got[1] != "bob" {
		t.Errorf("participants = %v", got)
	}
	if d := s.Duration(start.Add(90 * time.Second)); d != 90*time.Second {
		t.Errorf("duration = %v", d)
	}
	if d := s.Duration(start.Add(-time.Second)); d != 0 {
		t.Errorf("duration before start = %v, want 0", d)
	}

	c := s.Clone()
	c.AddParticipant("carol")
	if s.HasParticipant("carol") {
		t.Error("clone must not share participants with the original")
	}
}

func TestNewCallRecord(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewCallSession("r1", "bob", CallTypeVideo, start)
	s.AddParticipant("alice")
	s.Status = CallStatusConnected

	rec := NewCallRecord(*s, "ended", start.Add(75*time.Second+400*time.Millisecond))
	if rec.Duration != 75 {
		t.Errorf("duration = %d, want 75", rec.Duration)
	}
	if rec.FinalStatus != CallStatusConnected || rec.Reason != "ended" {
		t.Errorf("unexpected record %+v", rec)
	}
	if len(rec.Participants) != 2 || rec.Participants[0] != "alice" {
		t.Errorf("participants = %v", rec.Participants)
	}
}

func TestNewConnectionIDUnique(t *testing.T) {
	a, b := NewConnectionID(), NewConnectionID()
	if a == "" || a == b {
		t.Errorf("ids not unique: %q %q", a, b)
	}
}
