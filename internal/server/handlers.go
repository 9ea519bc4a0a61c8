package server

import (
	"net/http"

	"github.com/MarcoPoloResearchLab/prm-review/internal/discussions"
	"github.com/MarcoPoloResearchLab/prm-review/internal/meetings"
	"github.com/gin-gonic/gin"
)

const (
	messageMeetingAdded           = "Meeting added successfully"
	messageMeetingUpdated         = "Meeting updated successfully"
	messageMeetingFetched         = "Meeting fetched successfully"
	messageMeetingsFetched        = "Meetings fetched successfully"
	messageDiscussionPointAdded   = "Discussion point added successfully"
	messageDiscussionPointsListed = "Discussion points fetched successfully"
	messageProjectsFetched        = "Projects fetched successfully"
	messageSetsFetched            = "Sets fetched successfully"
)

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) handleAddMeeting(c *gin.Context) {
	var request meetingRequestPayload
	if !bindJSON(c, &request) {
		return
	}
	meeting, err := h.meetings.AddMeeting(c.Request.Context(), meetings.AddMeetingInput{
		MeetingType: request.MeetingType,
		MeetingDate: request.MeetingDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.publish(RealtimeEventMeetingChanged, meeting.ID)
	respondOK(c, messageMeetingAdded, newMeetingPayload(meeting))
}

func (h *httpHandler) handleUpdateMeeting(c *gin.Context) {
	var request meetingRequestPayload
	if !bindJSON(c, &request) {
		return
	}
	meeting, err := h.meetings.UpdateMeeting(c.Request.Context(), c.Param("id"), meetings.UpdateMeetingInput{
		MeetingType: request.MeetingType,
		MeetingDate: request.MeetingDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.publish(RealtimeEventMeetingChanged, meeting.ID)
	respondOK(c, messageMeetingUpdated, newMeetingPayload(meeting))
}

func (h *httpHandler) handleGetMeeting(c *gin.Context) {
	meeting, err := h.meetings.GetMeeting(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, messageMeetingFetched, newMeetingPayload(meeting))
}

func (h *httpHandler) handleListMeetings(c *gin.Context) {
	items, err := h.meetings.GetAllMeetings(c.Request.Context(), meetings.MeetingFilter{
		MeetingType: c.Query("meetingType"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, messageMeetingsFetched, meetingPayloads(items))
}

func (h *httpHandler) handleAddDiscussionPoint(c *gin.Context) {
	var request discussionPointRequestPayload
	if !bindJSON(c, &request) {
		return
	}
	point, err := h.discussions.AddDiscussionPoint(c.Request.Context(), discussions.AddDiscussionPointInput{
		Project:         request.Project,
		Set:             request.Set,
		Meeting:         request.Meeting,
		DiscussionPoint: request.DiscussionPoint,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.publish(RealtimeEventDiscussionPointChanged, point.ID)
	respondOK(c, messageDiscussionPointAdded, newDiscussionPointPayload(point))
}

func (h *httpHandler) handleListDiscussionPoints(c *gin.Context) {
	items, err := h.discussions.GetAllDiscussionPoints(c.Request.Context(), discussions.Filter{
		Project: c.Query("project"),
		Set:     c.Query("set"),
		Meeting: c.Query("meeting"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, messageDiscussionPointsListed, discussionPointViewPayloads(items))
}

func (h *httpHandler) handleListProjects(c *gin.Context) {
	items, err := h.catalog.ListProjects(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, messageProjectsFetched, projectPayloads(items))
}

func (h *httpHandler) handleListSets(c *gin.Context) {
	items, err := h.catalog.ListSets(c.Request.Context(), c.Query("project"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, messageSetsFetched, setPayloads(items))
}

func (h *httpHandler) publish(eventType, entityID string) {
	h.events.Publish(RealtimeMessage{
		EventType: eventType,
		EntityIDs: []string{entityID},
		Timestamp: h.clock().UTC(),
	})
}
