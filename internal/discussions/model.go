package discussions

import (
	"strings"
	"time"
)

// DiscussionPoint is the persisted note attached to a PRM meeting.
type DiscussionPoint struct {
	ID        string    `gorm:"column:id;primaryKey;size:64;not null"`
	ProjectID string    `gorm:"column:project_id;size:190;not null;index"`
	SetID     string    `gorm:"column:set_id;size:190;not null;index"`
	MeetingID string    `gorm:"column:meeting_id;size:64;not null;index"`
	Text      string    `gorm:"column:discussion_point;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null;index;autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

// TableName provides the explicit table binding for GORM.
func (DiscussionPoint) TableName() string {
	return "discussion_points"
}

// AddDiscussionPointInput carries the caller-supplied fields. Field order defines
// which missing field is reported first.
type AddDiscussionPointInput struct {
	Project         string `validate:"required"`
	Set             string `validate:"required"`
	Meeting         string `validate:"required"`
	DiscussionPoint string `validate:"required"`
}

func (input AddDiscussionPointInput) normalized() AddDiscussionPointInput {
	return AddDiscussionPointInput{
		Project:         strings.TrimSpace(input.Project),
		Set:             strings.TrimSpace(input.Set),
		Meeting:         strings.TrimSpace(input.Meeting),
		DiscussionPoint: strings.TrimSpace(input.DiscussionPoint),
	}
}

// Filter narrows discussion point listings; empty fields are not applied.
type Filter struct {
	Project string
	Set     string
	Meeting string
}

// normalized trims filter values the same way stored references were trimmed.
func (filter Filter) normalized() Filter {
	return Filter{
		Project: strings.TrimSpace(filter.Project),
		Set:     strings.TrimSpace(filter.Set),
		Meeting: strings.TrimSpace(filter.Meeting),
	}
}

// DiscussionPointView is a discussion point with its references resolved for display.
// Display fields are empty when the reference is absent from the catalog.
type DiscussionPointView struct {
	ID              string
	ProjectID       string
	ProjectName     string
	ProjectCode     string
	ProjectCategory string
	SetID           string
	SetName         string
	MeetingID       string
	MeetingNo       string
	MeetingType     string
	MeetingDate     *time.Time
	Text            string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
