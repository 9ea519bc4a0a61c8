package discussions

import (
	"context"
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/prm-review/internal/catalog"
	"github.com/MarcoPoloResearchLab/prm-review/internal/meetings"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MessageRequiresPRMMeeting is reported when the referenced meeting is not a PRM.
const MessageRequiresPRMMeeting = "Discussion points can only be added for PRM meetings"

const (
	opServiceNew         = "discussions.service.new"
	opAddDiscussionPoint = "discussions.add_discussion_point"
	opListDiscussion     = "discussions.list_discussion_points"
	fieldMeetingID       = "meeting_id"
	fieldDiscussionID    = "discussion_point_id"

	reasonMissingDatabase      = "missing_database"
	reasonMissingMeetingFinder = "missing_meeting_finder"
	reasonMissingIDProvider    = "missing_id_provider"
	reasonMeetingLookupFailed  = "meeting_lookup_failed"
	reasonIDGenerationFailed   = "id_generation_failed"
	reasonInsertFailed         = "insert_failed"
	reasonQueryFailed          = "query_failed"
)

var (
	errMissingDatabase      = errors.New("database handle is required")
	errMissingMeetingFinder = errors.New("meeting finder is required")
	errMissingIDProvider    = errors.New("id provider is required")
	noOpLogger              = zap.NewNop()
)

var inputMessages = map[string]map[string]string{
	"Project":         {"required": "Project is required"},
	"Set":             {"required": "Set is required"},
	"Meeting":         {"required": "Meeting is required"},
	"DiscussionPoint": {"required": "Discussion point is required"},
}

// MeetingFinder resolves meeting references. Unknown ids yield a not-found violation.
type MeetingFinder interface {
	GetMeeting(ctx context.Context, meetingID string) (meetings.Meeting, error)
}

// ServiceConfig describes the dependencies of the discussion point linker.
type ServiceConfig struct {
	Database   *gorm.DB
	Meetings   MeetingFinder
	Clock      func() time.Time
	IDProvider meetings.IDProvider
	Logger     *zap.Logger
}

// Service validates and stores discussion points against PRM meetings.
type Service struct {
	db         *gorm.DB
	meetings   MeetingFinder
	clock      func() time.Time
	idProvider meetings.IDProvider
	validate   *validator.Validate
	logger     *zap.Logger
}

// NewService constructs the discussion point linker.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, meetings.NewServiceError(opServiceNew, reasonMissingDatabase, errMissingDatabase)
	}
	if cfg.Meetings == nil {
		return nil, meetings.NewServiceError(opServiceNew, reasonMissingMeetingFinder, errMissingMeetingFinder)
	}
	if cfg.IDProvider == nil {
		return nil, meetings.NewServiceError(opServiceNew, reasonMissingIDProvider, errMissingIDProvider)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		db:         cfg.Database,
		meetings:   cfg.Meetings,
		clock:      clock,
		idProvider: cfg.IDProvider,
		validate:   validator.New(),
		logger:     logger,
	}, nil
}

// AddDiscussionPoint stores a discussion point once every reference is present and the
// meeting resolves to a PRM meeting.
func (s *Service) AddDiscussionPoint(ctx context.Context, input AddDiscussionPointInput) (DiscussionPoint, error) {
	input = input.normalized()
	if err := s.validator().Struct(input); err != nil {
		return DiscussionPoint{}, meetings.ViolationFromValidation(err, inputMessages)
	}
	if s.db == nil {
		s.logError(opAddDiscussionPoint, reasonMissingDatabase, errMissingDatabase)
		return DiscussionPoint{}, meetings.NewServiceError(opAddDiscussionPoint, reasonMissingDatabase, errMissingDatabase)
	}
	if s.meetings == nil {
		s.logError(opAddDiscussionPoint, reasonMissingMeetingFinder, errMissingMeetingFinder)
		return DiscussionPoint{}, meetings.NewServiceError(opAddDiscussionPoint, reasonMissingMeetingFinder, errMissingMeetingFinder)
	}

	meeting, err := s.meetings.GetMeeting(ctx, input.Meeting)
	if err != nil {
		if _, ok := meetings.AsRuleViolation(err); ok {
			return DiscussionPoint{}, err
		}
		s.logError(opAddDiscussionPoint, reasonMeetingLookupFailed, err, zap.String(fieldMeetingID, input.Meeting))
		return DiscussionPoint{}, meetings.NewServiceError(opAddDiscussionPoint, reasonMeetingLookupFailed, err)
	}
	if meeting.MeetingType != meetings.MeetingTypePRM {
		return DiscussionPoint{}, meetings.NewInvalid(MessageRequiresPRMMeeting)
	}

	pointID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opAddDiscussionPoint, reasonIDGenerationFailed, err)
		return DiscussionPoint{}, meetings.NewServiceError(opAddDiscussionPoint, reasonIDGenerationFailed, err)
	}
	now := s.clock().UTC()
	point := DiscussionPoint{
		ID:        pointID,
		ProjectID: input.Project,
		SetID:     input.Set,
		MeetingID: meeting.ID,
		Text:      input.DiscussionPoint,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&point).Error; err != nil {
		s.logError(opAddDiscussionPoint, reasonInsertFailed, err, zap.String(fieldMeetingID, meeting.ID))
		return DiscussionPoint{}, meetings.NewServiceError(opAddDiscussionPoint, reasonInsertFailed, err)
	}

	s.logger.Info("discussion point added",
		zap.String(fieldDiscussionID, point.ID),
		zap.String(fieldMeetingID, point.MeetingID))
	return point, nil
}

// GetAllDiscussionPoints lists matching discussion points newest first, joined at
// read time against the project, set and meeting tables.
func (s *Service) GetAllDiscussionPoints(ctx context.Context, filter Filter) ([]DiscussionPointView, error) {
	if s.db == nil {
		s.logError(opListDiscussion, reasonMissingDatabase, errMissingDatabase)
		return nil, meetings.NewServiceError(opListDiscussion, reasonMissingDatabase, errMissingDatabase)
	}
	filter = filter.normalized()

	query := s.db.WithContext(ctx).
		Table(DiscussionPoint{}.TableName() + " AS dp").
		Select(
			"dp.id AS id, " +
				"dp.project_id AS project_id, " +
				"COALESCE(p.name, '') AS project_name, " +
				"COALESCE(p.code, '') AS project_code, " +
				"COALESCE(p.category, '') AS project_category, " +
				"dp.set_id AS set_id, " +
				"COALESCE(st.name, '') AS set_name, " +
				"dp.meeting_id AS meeting_id, " +
				"COALESCE(m.meeting_no, '') AS meeting_no, " +
				"COALESCE(m.meeting_type, '') AS meeting_type, " +
				"m.meeting_date AS meeting_date, " +
				"dp.discussion_point AS text, " +
				"dp.created_at AS created_at, " +
				"dp.updated_at AS updated_at").
		Joins("LEFT JOIN " + catalog.Project{}.TableName() + " AS p ON p.id = dp.project_id").
		Joins("LEFT JOIN " + catalog.Set{}.TableName() + " AS st ON st.id = dp.set_id").
		Joins("LEFT JOIN " + meetings.Meeting{}.TableName() + " AS m ON m.id = dp.meeting_id")

	if filter.Project != "" {
		query = query.Where("dp.project_id = ?", filter.Project)
	}
	if filter.Set != "" {
		query = query.Where("dp.set_id = ?", filter.Set)
	}
	if filter.Meeting != "" {
		query = query.Where("dp.meeting_id = ?", filter.Meeting)
	}

	views := make([]DiscussionPointView, 0)
	if err := query.Order("dp.created_at DESC").Scan(&views).Error; err != nil {
		s.logError(opListDiscussion, reasonQueryFailed, err)
		return nil, meetings.NewServiceError(opListDiscussion, reasonQueryFailed, err)
	}
	return views, nil
}

func (s *Service) validator() *validator.Validate {
	if s.validate == nil {
		s.validate = validator.New()
	}
	return s.validate
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	logger := s.logger
	if logger == nil {
		logger = noOpLogger
	}
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	logger.Error("discussions service error", attrs...)
}
