package meetings

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

const (
	opServiceNew     = "meetings.s.new"
	opAddMeeting     = "meetings.add_meeting"
	opUpdateMeeting  = "meetings.update_meeting"
	opGetMeeting     = "meetings.get_meeting"
	opListMeetings   = "meetings.list_meetings"
	opCountByType    = "meetings.count_by_type"
	fieldMeetingID   = "meeting_id"
	fieldMeetingType = "meeting_type"
	fieldMeetingNo   = "meeting_no"

	reasonMissingDatabase  = "missing_database"
	reasonIDGeneration     = "id_generation_failed"
	reasonSequenceFailed   = "sequence_failed"
	reasonInsertFailed     = "insert_failed"
	reasonLookupFailed     = "lookup_failed"
	reasonSaveFailed       = "save_failed"
	reasonQueryFailed      = "query_failed"
	orderMeetingDateDesc   = "meeting_date DESC"
	orderCreatedAtDesc     = "created_at DESC"
	queryMeetingTypeEquals = "meeting_type = ?"
	queryMeetingIDEquals   = "id = ?"
)

var inputMessages = map[string]map[string]string{
	"MeetingType": {
		"required": MessageMeetingTypeRequired,
		"oneof":    MessageInvalidMeetingType,
	},
	"MeetingDate": {
		"required": MessageMeetingDateRequired,
	},
}

// ServiceConfig describes the dependencies of the meeting registry.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service numbers and persists review meetings.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	validate   *validator.Validate
	logger     *zap.Logger
}

// NewService constructs the meeting registry.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, NewServiceError(opServiceNew, reasonMissingDatabase, errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, NewServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
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
		clock:      clock,
		idProvider: cfg.IDProvider,
		validate:   validator.New(),
		logger:     logger,
	}, nil
}

// AddMeeting validates the input, issues the next number for the meeting type and stores the meeting.
func (s *Service) AddMeeting(ctx context.Context, input AddMeetingInput) (Meeting, error) {
	input = input.normalized()
	if err := s.validator().Struct(input); err != nil {
		return Meeting{}, ViolationFromValidation(err, inputMessages)
	}
	meetingType, _ := ParseMeetingType(input.MeetingType)
	meetingDate, err := ParseMeetingDate(input.MeetingDate)
	if err != nil {
		return Meeting{}, NewInvalid(MessageInvalidMeetingDate)
	}

	if s.db == nil {
		s.logError(opAddMeeting, reasonMissingDatabase, errMissingDatabase)
		return Meeting{}, NewServiceError(opAddMeeting, reasonMissingDatabase, errMissingDatabase)
	}

	meetingID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opAddMeeting, reasonIDGeneration, err)
		return Meeting{}, NewServiceError(opAddMeeting, reasonIDGeneration, err)
	}

	now := s.clock().UTC()
	meeting := Meeting{
		ID:          meetingID,
		MeetingType: meetingType,
		MeetingDate: meetingDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	transactionError := s.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		sequence, err := nextSequence(transaction, meetingType)
		if err != nil {
			s.logError(opAddMeeting, reasonSequenceFailed, err, zap.String(fieldMeetingType, meetingType.String()))
			return NewServiceError(opAddMeeting, reasonSequenceFailed, err)
		}
		meeting.MeetingNo = FormatMeetingNo(meetingType, sequence)
		if err := transaction.Create(&meeting).Error; err != nil {
			s.logError(opAddMeeting, reasonInsertFailed, err,
				zap.String(fieldMeetingType, meetingType.String()),
				zap.String(fieldMeetingNo, meeting.MeetingNo))
			return NewServiceError(opAddMeeting, reasonInsertFailed, err)
		}
		return nil
	})
	if transactionError != nil {
		return Meeting{}, transactionError
	}

	s.loggerOrDefault().Info("meeting added",
		zap.String(fieldMeetingID, meeting.ID),
		zap.String(fieldMeetingNo, meeting.MeetingNo))
	return meeting, nil
}

// UpdateMeeting applies the supplied writable fields. The meeting number is never reissued.
func (s *Service) UpdateMeeting(ctx context.Context, meetingID string, input UpdateMeetingInput) (Meeting, error) {
	meetingID = strings.TrimSpace(meetingID)
	if meetingID == "" {
		return Meeting{}, NewInvalid(MessageMeetingIDRequired)
	}
	input = input.normalized()
	if err := s.validator().Struct(input); err != nil {
		return Meeting{}, ViolationFromValidation(err, inputMessages)
	}

	var meetingDate time.Time
	dateSupplied := input.MeetingDate != ""
	if dateSupplied {
		parsed, err := ParseMeetingDate(input.MeetingDate)
		if err != nil {
			return Meeting{}, NewInvalid(MessageInvalidMeetingDate)
		}
		meetingDate = parsed
	}

	if s.db == nil {
		s.logError(opUpdateMeeting, reasonMissingDatabase, errMissingDatabase)
		return Meeting{}, NewServiceError(opUpdateMeeting, reasonMissingDatabase, errMissingDatabase)
	}

	var updated Meeting
	transactionError := s.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		err := transaction.Where(queryMeetingIDEquals, meetingID).Take(&updated).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewNotFound(MessageMeetingNotFound)
		}
		if err != nil {
			s.logError(opUpdateMeeting, reasonLookupFailed, err, zap.String(fieldMeetingID, meetingID))
			return NewServiceError(opUpdateMeeting, reasonLookupFailed, err)
		}

		if dateSupplied {
			updated.MeetingDate = meetingDate
		}
		if meetingType, ok := ParseMeetingType(input.MeetingType); ok {
			updated.MeetingType = meetingType
		}
		updated.UpdatedAt = s.clock().UTC()

		if err := transaction.Save(&updated).Error; err != nil {
			s.logError(opUpdateMeeting, reasonSaveFailed, err, zap.String(fieldMeetingID, meetingID))
			return NewServiceError(opUpdateMeeting, reasonSaveFailed, err)
		}
		return nil
	})
	if transactionError != nil {
		return Meeting{}, transactionError
	}
	return updated, nil
}

// GetMeeting loads a single meeting by identifier.
func (s *Service) GetMeeting(ctx context.Context, meetingID string) (Meeting, error) {
	meetingID = strings.TrimSpace(meetingID)
	if meetingID == "" {
		return Meeting{}, NewInvalid(MessageMeetingIDRequired)
	}
	if s.db == nil {
		s.logError(opGetMeeting, reasonMissingDatabase, errMissingDatabase)
		return Meeting{}, NewServiceError(opGetMeeting, reasonMissingDatabase, errMissingDatabase)
	}

	var meeting Meeting
	err := s.db.WithContext(ctx).Where(queryMeetingIDEquals, meetingID).Take(&meeting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Meeting{}, NewNotFound(MessageMeetingNotFound)
	}
	if err != nil {
		s.logError(opGetMeeting, reasonLookupFailed, err, zap.String(fieldMeetingID, meetingID))
		return Meeting{}, NewServiceError(opGetMeeting, reasonLookupFailed, err)
	}
	return meeting, nil
}

// GetAllMeetings lists meetings newest first by meeting date, then by creation time.
func (s *Service) GetAllMeetings(ctx context.Context, filter MeetingFilter) ([]Meeting, error) {
	if s.db == nil {
		s.logError(opListMeetings, reasonMissingDatabase, errMissingDatabase)
		return nil, NewServiceError(opListMeetings, reasonMissingDatabase, errMissingDatabase)
	}

	query := s.db.WithContext(ctx).Model(&Meeting{})
	if meetingType, ok := ParseMeetingType(filter.MeetingType); ok {
		query = query.Where(queryMeetingTypeEquals, meetingType.String())
	}

	meetings := make([]Meeting, 0)
	if err := query.Order(orderMeetingDateDesc).Order(orderCreatedAtDesc).Find(&meetings).Error; err != nil {
		s.logError(opListMeetings, reasonQueryFailed, err)
		return nil, NewServiceError(opListMeetings, reasonQueryFailed, err)
	}
	return meetings, nil
}

// CountByType returns the number of stored meetings of the given type.
func (s *Service) CountByType(ctx context.Context, meetingType MeetingType) (int64, error) {
	if s.db == nil {
		s.logError(opCountByType, reasonMissingDatabase, errMissingDatabase)
		return 0, NewServiceError(opCountByType, reasonMissingDatabase, errMissingDatabase)
	}
	var total int64
	if err := s.db.WithContext(ctx).
		Model(&Meeting{}).
		Where(queryMeetingTypeEquals, meetingType.String()).
		Count(&total).Error; err != nil {
		s.logError(opCountByType, reasonQueryFailed, err, zap.String(fieldMeetingType, meetingType.String()))
		return 0, NewServiceError(opCountByType, reasonQueryFailed, err)
	}
	return total, nil
}

func (s *Service) validator() *validator.Validate {
	if s.validate == nil {
		s.validate = validator.New()
	}
	return s.validate
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("meetings service error", attrs...)
}
