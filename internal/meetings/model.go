package meetings

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MeetingType enumerates the review meeting classifications.
type MeetingType string

const (
	// MeetingTypePRM is a production review meeting; only these carry discussion points.
	MeetingTypePRM MeetingType = "PRM"
	// MeetingTypePrePRM is a preparatory meeting held ahead of a PRM.
	MeetingTypePrePRM MeetingType = "PRE-PRM"
)

const meetingDateLayout = "2006-01-02"

// ErrInvalidMeetingDate indicates a meeting date that is neither a calendar date nor an RFC 3339 timestamp.
var ErrInvalidMeetingDate = errors.New("meetings: invalid meeting date")

// ParseMeetingType returns the recognized meeting type for the raw value.
func ParseMeetingType(rawValue string) (MeetingType, bool) {
	switch MeetingType(strings.TrimSpace(rawValue)) {
	case MeetingTypePRM:
		return MeetingTypePRM, true
	case MeetingTypePrePRM:
		return MeetingTypePrePRM, true
	default:
		return "", false
	}
}

// String returns the wire representation.
func (meetingType MeetingType) String() string {
	return string(meetingType)
}

// ParseMeetingDate accepts YYYY-MM-DD or RFC 3339 input and returns the calendar day
// as UTC midnight. For timestamps the day is read in the caller's offset, so
// 2025-01-10T01:00:00+05:00 is 2025-01-10.
func ParseMeetingDate(rawValue string) (time.Time, error) {
	trimmed := strings.TrimSpace(rawValue)
	parsed, err := time.Parse(meetingDateLayout, trimmed)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339, trimmed)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMeetingDate, trimmed)
	}
	year, month, day := parsed.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), nil
}

// FormatMeetingNo renders the human-readable meeting number for a sequence value.
func FormatMeetingNo(meetingType MeetingType, sequence int64) string {
	return fmt.Sprintf("%s-%03d", meetingType, sequence)
}

// Meeting is the persisted review meeting record.
type Meeting struct {
	ID          string      `gorm:"column:id;primaryKey;size:64;not null"`
	MeetingType MeetingType `gorm:"column:meeting_type;size:16;not null;index:idx_meetings_type_date,priority:1"`
	MeetingDate time.Time   `gorm:"column:meeting_date;not null;index:idx_meetings_type_date,priority:2"`
	MeetingNo   string      `gorm:"column:meeting_no;size:32;not null;uniqueIndex"`
	CreatedAt   time.Time   `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt   time.Time   `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

// TableName provides the explicit table binding for GORM.
func (Meeting) TableName() string {
	return "meetings"
}

// MeetingSequence holds the last issued sequence value for a meeting type.
type MeetingSequence struct {
	MeetingType string `gorm:"column:meeting_type;primaryKey;size:16;not null"`
	LastValue   int64  `gorm:"column:last_value;not null;default:0"`
}

// TableName provides the explicit table binding for GORM.
func (MeetingSequence) TableName() string {
	return "meeting_sequences"
}

// AddMeetingInput carries the caller-supplied fields for a new meeting.
type AddMeetingInput struct {
	MeetingType string `validate:"required,oneof=PRM PRE-PRM"`
	MeetingDate string `validate:"required"`
}

func (input AddMeetingInput) normalized() AddMeetingInput {
	return AddMeetingInput{
		MeetingType: strings.TrimSpace(input.MeetingType),
		MeetingDate: strings.TrimSpace(input.MeetingDate),
	}
}

// UpdateMeetingInput carries the writable meeting fields. Empty values are left untouched.
type UpdateMeetingInput struct {
	MeetingType string `validate:"omitempty,oneof=PRM PRE-PRM"`
	MeetingDate string
}

func (input UpdateMeetingInput) normalized() UpdateMeetingInput {
	return UpdateMeetingInput{
		MeetingType: strings.TrimSpace(input.MeetingType),
		MeetingDate: strings.TrimSpace(input.MeetingDate),
	}
}

// MeetingFilter narrows meeting listings. Unrecognized meeting types are ignored.
type MeetingFilter struct {
	MeetingType string
}
