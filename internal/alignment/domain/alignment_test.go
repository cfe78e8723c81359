package domain

import (
	"errors"
	"testing"
	"time"
)

func fixedClock() time.Time {
	return time.Date(2025, 6, 10, 9, 30, 0, 0, time.UTC)
}

func stubID(value string) func() (string, error) {
	return func() (string, error) { return value, nil }
}

func TestCreateAlignment(t *testing.T) {
	alignment, err := CreateAlignment(CreateAlignmentInput{TemplateID: " partnership-foundations "}, fixedClock, stubID("al-1"))
	if err != nil {
		t.Fatalf("CreateAlignment() error = %v", err)
	}

	if alignment.ID != "al-1" {
		t.Errorf("ID = %s, want al-1", alignment.ID)
	}
	if alignment.TemplateID != "partnership-foundations" {
		t.Errorf("TemplateID = %q, want trimmed id", alignment.TemplateID)
	}
	if alignment.Status != StatusDraft {
		t.Errorf("Status = %s, want %s", alignment.Status, StatusDraft)
	}
	if alignment.Round != 1 {
		t.Errorf("Round = %d, want 1", alignment.Round)
	}
	if !alignment.CreatedAt.Equal(fixedClock()) || !alignment.UpdatedAt.Equal(fixedClock()) {
		t.Errorf("timestamps = %v / %v, want clock value", alignment.CreatedAt, alignment.UpdatedAt)
	}
	if alignment.CompletedAt != nil || alignment.StalledAt != nil {
		t.Error("new alignment should have no terminal timestamps")
	}
}

func TestCreateAlignmentEmptyTemplate(t *testing.T) {
	_, err := CreateAlignment(CreateAlignmentInput{TemplateID: "   "}, fixedClock, stubID("al-1"))
	if !errors.Is(err, ErrEmptyTemplateID) {
		t.Fatalf("error = %v, want ErrEmptyTemplateID", err)
	}
}

func TestCreateAlignmentIDFailure(t *testing.T) {
	failing := func() (string, error) { return "", errors.New("entropy exhausted") }
	_, err := CreateAlignment(CreateAlignmentInput{TemplateID: "t"}, fixedClock, failing)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestValidateRound(t *testing.T) {
	if err := ValidateRound(1); err != nil {
		t.Errorf("ValidateRound(1) error = %v", err)
	}
	if err := ValidateRound(7); err != nil {
		t.Errorf("ValidateRound(7) error = %v", err)
	}
	for _, round := range []int{0, -1} {
		if !errors.Is(ValidateRound(round), ErrInvalidRound) {
			t.Errorf("ValidateRound(%d) should fail", round)
		}
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Role
		wantErr bool
	}{
		{name: "owner", input: "owner", want: RoleOwner},
		{name: "partner", input: "partner", want: RolePartner},
		{name: "empty", input: "", wantErr: true},
		{name: "unknown", input: "admin", wantErr: true},
		{name: "uppercase rejected", input: "OWNER", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRole(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNewParticipant(t *testing.T) {
	participant, err := NewParticipant(" al-1 ", " user-a ", RoleOwner, " Alex ", fixedClock)
	if err != nil {
		t.Fatalf("NewParticipant() error = %v", err)
	}
	if participant.AlignmentID != "al-1" || participant.UserID != "user-a" || participant.DisplayName != "Alex" {
		t.Errorf("fields not trimmed: %+v", participant)
	}
	if participant.Role != RoleOwner {
		t.Errorf("Role = %s, want owner", participant.Role)
	}
	if !participant.CreatedAt.Equal(fixedClock()) {
		t.Errorf("CreatedAt = %v, want clock value", participant.CreatedAt)
	}
}

func TestNewParticipantValidation(t *testing.T) {
	tests := []struct {
		name        string
		alignmentID string
		userID      string
		role        Role
		displayName string
		want        error
	}{
		{name: "empty alignment id", userID: "u", role: RoleOwner, displayName: "A", want: ErrEmptyAlignmentID},
		{name: "empty user id", alignmentID: "al", role: RoleOwner, displayName: "A", want: ErrEmptyUserID},
		{name: "empty display name", alignmentID: "al", userID: "u", role: RolePartner, want: ErrEmptyDisplayName},
		{name: "invalid role", alignmentID: "al", userID: "u", role: Role("viewer"), displayName: "A", want: ErrInvalidRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParticipant(tt.alignmentID, tt.userID, tt.role, tt.displayName, fixedClock)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}
}
