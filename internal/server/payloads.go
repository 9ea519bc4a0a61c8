package server

import (
	"time"

	"github.com/MarcoPoloResearchLab/prm-review/internal/catalog"
	"github.com/MarcoPoloResearchLab/prm-review/internal/discussions"
	"github.com/MarcoPoloResearchLab/prm-review/internal/meetings"
	"github.com/samber/lo"
)

const meetingDateLayout = "2006-01-02"

type meetingRequestPayload struct {
	MeetingType string `json:"meetingType"`
	MeetingDate string `json:"meetingDate"`
}

type discussionPointRequestPayload struct {
	Project         string `json:"project"`
	Set             string `json:"set"`
	Meeting         string `json:"meeting"`
	DiscussionPoint string `json:"discussionPoint"`
}

type meetingPayload struct {
	ID          string    `json:"id"`
	MeetingType string    `json:"meetingType"`
	MeetingDate string    `json:"meetingDate"`
	MeetingNo   string    `json:"meetingNo"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type discussionPointPayload struct {
	ID              string    `json:"id"`
	Project         string    `json:"project"`
	Set             string    `json:"set"`
	Meeting         string    `json:"meeting"`
	DiscussionPoint string    `json:"discussionPoint"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type projectRefPayload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Code     string `json:"code"`
	Category string `json:"category"`
}

type setRefPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type meetingRefPayload struct {
	ID          string  `json:"id"`
	MeetingNo   string  `json:"meetingNo"`
	MeetingType string  `json:"meetingType"`
	MeetingDate *string `json:"meetingDate"`
}

type discussionPointViewPayload struct {
	ID              string            `json:"id"`
	Project         projectRefPayload `json:"project"`
	Set             setRefPayload     `json:"set"`
	Meeting         meetingRefPayload `json:"meeting"`
	DiscussionPoint string            `json:"discussionPoint"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

type projectPayload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Code     string `json:"code"`
	Category string `json:"category"`
}

type setPayload struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Project string `json:"project"`
}

func newMeetingPayload(meeting meetings.Meeting) meetingPayload {
	return meetingPayload{
		ID:          meeting.ID,
		MeetingType: meeting.MeetingType.String(),
		MeetingDate: meeting.MeetingDate.UTC().Format(meetingDateLayout),
		MeetingNo:   meeting.MeetingNo,
		CreatedAt:   meeting.CreatedAt.UTC(),
		UpdatedAt:   meeting.UpdatedAt.UTC(),
	}
}

func newDiscussionPointPayload(point discussions.DiscussionPoint) discussionPointPayload {
	return discussionPointPayload{
		ID:              point.ID,
		Project:         point.ProjectID,
		Set:             point.SetID,
		Meeting:         point.MeetingID,
		DiscussionPoint: point.Text,
		CreatedAt:       point.CreatedAt.UTC(),
		UpdatedAt:       point.UpdatedAt.UTC(),
	}
}

func newDiscussionPointViewPayload(view discussions.DiscussionPointView) discussionPointViewPayload {
	var meetingDate *string
	if view.MeetingDate != nil {
		meetingDate = lo.ToPtr(view.MeetingDate.UTC().Format(meetingDateLayout))
	}
	return discussionPointViewPayload{
		ID: view.ID,
		Project: projectRefPayload{
			ID:       view.ProjectID,
			Name:     view.ProjectName,
			Code:     view.ProjectCode,
			Category: view.ProjectCategory,
		},
		Set: setRefPayload{ID: view.SetID, Name: view.SetName},
		Meeting: meetingRefPayload{
			ID:          view.MeetingID,
			MeetingNo:   view.MeetingNo,
			MeetingType: view.MeetingType,
			MeetingDate: meetingDate,
		},
		DiscussionPoint: view.Text,
		CreatedAt:       view.CreatedAt.UTC(),
		UpdatedAt:       view.UpdatedAt.UTC(),
	}
}

func meetingPayloads(items []meetings.Meeting) []meetingPayload {
	return lo.Map(items, func(item meetings.Meeting, _ int) meetingPayload {
		return newMeetingPayload(item)
	})
}

func discussionPointViewPayloads(items []discussions.DiscussionPointView) []discussionPointViewPayload {
	return lo.Map(items, func(item discussions.DiscussionPointView, _ int) discussionPointViewPayload {
		return newDiscussionPointViewPayload(item)
	})
}

func projectPayloads(items []catalog.Project) []projectPayload {
	return lo.Map(items, func(item catalog.Project, _ int) projectPayload {
		return projectPayload{ID: item.ID, Name: item.Name, Code: item.Code, Category: item.Category}
	})
}

func setPayloads(items []catalog.Set) []setPayload {
	return lo.Map(items, func(item catalog.Set, _ int) setPayload {
		return setPayload{ID: item.ID, Name: item.Name, Project: item.ProjectID}
	})
}
