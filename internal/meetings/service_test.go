package meetings

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type sequentialIDProvider struct {
	mu   sync.Mutex
	next int
}

func (p *sequentialIDProvider) NewID() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	return fmt.Sprintf("meeting-%d", p.next), nil
}

type steppingClock struct {
	mu      sync.Mutex
	current time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(time.Second)
	return c.current
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "meetings.db")), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&Meeting{}, &MeetingSequence{}))

	clock := &steppingClock{current: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
	service, err := NewService(ServiceConfig{
		Database:   db,
		Clock:      clock.Now,
		IDProvider: &sequentialIDProvider{},
	})
	require.NoError(t, err)
	return service, db
}

func TestAddMeetingNumbersPerType(t *testing.T) {
	req := require.New(t)
	service, _ := newTestService(t)
	ctx := context.Background()

	first, err := service.AddMeeting(ctx, AddMeetingInput{MeetingType: "PRM", MeetingDate: "2025-01-10"})
	req.NoError(err)
	req.Equal("PRM-001", first.MeetingNo)
	req.Equal(MeetingTypePRM, first.MeetingType)
	req.Equal(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), first.MeetingDate)

	second, err := service.AddMeeting(ctx, AddMeetingInput{MeetingType: "PRM", MeetingDate: "2025-01-11"})
	req.NoError(err)
	req.Equal("PRM-002", second.MeetingNo)

	prep, err := service.AddMeeting(ctx, AddMeetingInput{MeetingType: "PRE-PRM", MeetingDate: "2025-01-12"})
	req.NoError(err)
	req.Equal("PRE-PRM-001", prep.MeetingNo)

	total, err := service.CountByType(ctx, MeetingTypePRM)
	req.NoError(err)
	req.EqualValues(2, total)
}

func TestAddMeetingValidationFailuresPersistNothing(t *testing.T) {
	testCases := []struct {
		name        string
		input       AddMeetingInput
		wantMessage string
	}{
		{name: "missing-type", input: AddMeetingInput{MeetingDate: "2025-01-10"}, wantMessage: MessageMeetingTypeRequired},
		{name: "unknown-type", input: AddMeetingInput{MeetingType: "QBR", MeetingDate: "2025-01-10"}, wantMessage: MessageInvalidMeetingType},
		{name: "lowercase-type", input: AddMeetingInput{MeetingType: "prm", MeetingDate: "2025-01-10"}, wantMessage: MessageInvalidMeetingType},
		{name: "missing-date", input: AddMeetingInput{MeetingType: "PRM"}, wantMessage: MessageMeetingDateRequired},
		{name: "blank-date", input: AddMeetingInput{MeetingType: "PRM", MeetingDate: "   "}, wantMessage: MessageMeetingDateRequired},
		{name: "malformed-date", input: AddMeetingInput{MeetingType: "PRM", MeetingDate: "10/01/2025"}, wantMessage: MessageInvalidMeetingDate},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			req := require.New(t)
			service, db := newTestService(t)

			_, err := service.AddMeeting(context.Background(), testCase.input)
			violation, ok := AsRuleViolation(err)
			req.True(ok, "expected rule violation, got %v", err)
			req.Equal(ViolationInvalid, violation.Kind)
			req.Equal(testCase.wantMessage, violation.Message)

			var stored int64
			req.NoError(db.Model(&Meeting{}).Count(&stored).Error)
			req.Zero(stored)
			var counters int64
			req.NoError(db.Model(&MeetingSequence{}).Count(&counters).Error)
			req.Zero(counters)
		})
	}
}

func TestAddMeetingConcurrentCallsIssueDistinctNumbers(t *testing.T) {
	req := require.New(t)
	service, _ := newTestService(t)

	const workers = 8
	results := make(chan string, workers)
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for index := 0; index < workers; index++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			meeting, err := service.AddMeeting(context.Background(), AddMeetingInput{MeetingType: "PRM", MeetingDate: "2025-02-01"})
			if err != nil {
				errs <- err
				return
			}
			results <- meeting.MeetingNo
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		req.NoError(err)
	}
	seen := map[string]bool{}
	for meetingNo := range results {
		req.False(seen[meetingNo], "duplicate meeting number %s", meetingNo)
		seen[meetingNo] = true
	}
	req.Len(seen, workers)
	for index := 1; index <= workers; index++ {
		req.True(seen[FormatMeetingNo(MeetingTypePRM, int64(index))])
	}
}

func TestUpdateMeetingAppliesWritableFields(t *testing.T) {
	req := require.New(t)
	service, _ := newTestService(t)
	ctx := context.Background()

	created, err := service.AddMeeting(ctx, AddMeetingInput{MeetingType: "PRE-PRM", MeetingDate: "2025-03-01"})
	req.NoError(err)

	updated, err := service.UpdateMeeting(ctx, created.ID, UpdateMeetingInput{MeetingDate: "2025-03-05"})
	req.NoError(err)
	req.Equal(time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), updated.MeetingDate)
	req.Equal(MeetingTypePrePRM, updated.MeetingType)
	req.Equal("PRE-PRM-001", updated.MeetingNo)
	req.True(updated.UpdatedAt.After(created.UpdatedAt))

	retyped, err := service.UpdateMeeting(ctx, created.ID, UpdateMeetingInput{MeetingType: "PRM"})
	req.NoError(err)
	req.Equal(MeetingTypePRM, retyped.MeetingType)
	req.Equal("PRE-PRM-001", retyped.MeetingNo, "meeting number must not be reissued")

	reloaded, err := service.GetMeeting(ctx, created.ID)
	req.NoError(err)
	req.Equal(MeetingTypePRM, reloaded.MeetingType)
	req.True(reloaded.MeetingDate.Equal(time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)), "unexpected meeting date %s", reloaded.MeetingDate)
}

func TestUpdateMeetingFailures(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	created, err := service.AddMeeting(ctx, AddMeetingInput{MeetingType: "PRM", MeetingDate: "2025-03-01"})
	require.NoError(t, err)

	testCases := []struct {
		name        string
		meetingID   string
		input       UpdateMeetingInput
		wantKind    ViolationKind
		wantMessage string
	}{
		{name: "missing-id", meetingID: " ", input: UpdateMeetingInput{MeetingDate: "2025-03-02"}, wantKind: ViolationInvalid, wantMessage: MessageMeetingIDRequired},
		{name: "unknown-type", meetingID: created.ID, input: UpdateMeetingInput{MeetingType: "WEEKLY"}, wantKind: ViolationInvalid, wantMessage: MessageInvalidMeetingType},
		{name: "malformed-date", meetingID: created.ID, input: UpdateMeetingInput{MeetingDate: "yesterday"}, wantKind: ViolationInvalid, wantMessage: MessageInvalidMeetingDate},
		{name: "unknown-id", meetingID: "missing", input: UpdateMeetingInput{MeetingDate: "2025-03-02"}, wantKind: ViolationNotFound, wantMessage: MessageMeetingNotFound},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			req := require.New(t)
			_, err := service.UpdateMeeting(ctx, testCase.meetingID, testCase.input)
			violation, ok := AsRuleViolation(err)
			req.True(ok, "expected rule violation, got %v", err)
			req.Equal(testCase.wantKind, violation.Kind)
			req.Equal(testCase.wantMessage, violation.Message)
		})
	}
}

func TestGetAllMeetingsOrdersAndFilters(t *testing.T) {
	req := require.New(t)
	service, _ := newTestService(t)
	ctx := context.Background()

	inputs := []AddMeetingInput{
		{MeetingType: "PRM", MeetingDate: "2025-01-10"},
		{MeetingType: "PRE-PRM", MeetingDate: "2025-01-12"},
		{MeetingType: "PRM", MeetingDate: "2025-01-12"},
		{MeetingType: "PRM", MeetingDate: "2025-01-11"},
	}
	for _, input := range inputs {
		_, err := service.AddMeeting(ctx, input)
		req.NoError(err)
	}

	all, err := service.GetAllMeetings(ctx, MeetingFilter{})
	req.NoError(err)
	// Same date: most recently created first.
	req.Equal([]string{"PRM-002", "PRE-PRM-001", "PRM-003", "PRM-001"}, meetingNumbers(all))

	prmOnly, err := service.GetAllMeetings(ctx, MeetingFilter{MeetingType: "PRM"})
	req.NoError(err)
	req.Len(prmOnly, 3)
	for _, meeting := range prmOnly {
		req.Equal(MeetingTypePRM, meeting.MeetingType)
	}

	ignored, err := service.GetAllMeetings(ctx, MeetingFilter{MeetingType: "BOGUS"})
	req.NoError(err)
	req.Equal(meetingNumbers(all), meetingNumbers(ignored))
}

func meetingNumbers(meetings []Meeting) []string {
	numbers := make([]string, 0, len(meetings))
	for _, meeting := range meetings {
		numbers = append(numbers, meeting.MeetingNo)
	}
	return numbers
}

func TestGetMeetingNotFound(t *testing.T) {
	service, _ := newTestService(t)
	_, err := service.GetMeeting(context.Background(), "nope")
	violation, ok := AsRuleViolation(err)
	require.True(t, ok)
	require.Equal(t, ViolationNotFound, violation.Kind)
}

func TestBackfillSequencesContinuesFromExistingCount(t *testing.T) {
	req := require.New(t)
	service, db := newTestService(t)
	ctx := context.Background()

	seeded := []Meeting{
		{ID: "legacy-1", MeetingType: MeetingTypePRM, MeetingDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), MeetingNo: "PRM-001"},
		{ID: "legacy-2", MeetingType: MeetingTypePRM, MeetingDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), MeetingNo: "PRM-002"},
	}
	for _, meeting := range seeded {
		meeting.CreatedAt = meeting.MeetingDate
		meeting.UpdatedAt = meeting.MeetingDate
		req.NoError(db.Create(&meeting).Error)
	}

	req.NoError(BackfillSequences(db))
	req.NoError(BackfillSequences(db))

	next, err := service.AddMeeting(ctx, AddMeetingInput{MeetingType: "PRM", MeetingDate: "2025-01-10"})
	req.NoError(err)
	req.Equal("PRM-003", next.MeetingNo)
}

func TestServiceWithoutDatabaseReturnsServiceError(t *testing.T) {
	service := &Service{}
	_, err := service.AddMeeting(context.Background(), AddMeetingInput{MeetingType: "PRM", MeetingDate: "2025-01-10"})
	var serviceErr *ServiceError
	require.ErrorAs(t, err, &serviceErr)
	require.Equal(t, "meetings.add_meeting.missing_database", serviceErr.Code())
}

func TestParseMeetingDateKeepsCallerCalendarDay(t *testing.T) {
	testCases := map[string]time.Time{
		"2025-01-10":                time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		" 2025-01-10 ":              time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		"2025-01-10T01:00:00+05:00": time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		"2025-01-10T23:30:00-08:00": time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		"2025-01-10T12:00:00Z":      time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
	}
	for input, want := range testCases {
		t.Run(input, func(t *testing.T) {
			parsed, err := ParseMeetingDate(input)
			require.NoError(t, err)
			require.True(t, parsed.Equal(want), "got %s", parsed)
			require.Equal(t, time.UTC, parsed.Location())
		})
	}

	_, err := ParseMeetingDate("10/01/2025")
	require.ErrorIs(t, err, ErrInvalidMeetingDate)
}

func TestAddMeetingWithOffsetTimestampStoresCallerDay(t *testing.T) {
	req := require.New(t)
	service, _ := newTestService(t)
	ctx := context.Background()

	created, err := service.AddMeeting(ctx, AddMeetingInput{MeetingType: "PRM", MeetingDate: "2025-01-10T01:00:00+05:00"})
	req.NoError(err)

	reloaded, err := service.GetMeeting(ctx, created.ID)
	req.NoError(err)
	req.Equal("2025-01-10", reloaded.MeetingDate.UTC().Format("2006-01-02"))
}

func TestUpdateMeetingAppliesEarliestCalendarDate(t *testing.T) {
	req := require.New(t)
	service, _ := newTestService(t)
	ctx := context.Background()

	created, err := service.AddMeeting(ctx, AddMeetingInput{MeetingType: "PRM", MeetingDate: "2025-03-01"})
	req.NoError(err)

	updated, err := service.UpdateMeeting(ctx, created.ID, UpdateMeetingInput{MeetingDate: "0001-01-01"})
	req.NoError(err)
	req.True(updated.MeetingDate.Equal(time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)), "date was not applied: %s", updated.MeetingDate)

	unchanged, err := service.UpdateMeeting(ctx, created.ID, UpdateMeetingInput{MeetingType: "PRM"})
	req.NoError(err)
	req.True(unchanged.MeetingDate.Equal(updated.MeetingDate), "omitted date must be left untouched")
}
