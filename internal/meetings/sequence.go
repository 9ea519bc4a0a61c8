package meetings

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const columnLastValue = "last_value"

// nextSequence advances the per-type counter and returns the issued value.
// It must run inside the transaction that inserts the meeting.
func nextSequence(transaction *gorm.DB, meetingType MeetingType) (int64, error) {
	counter := MeetingSequence{MeetingType: meetingType.String(), LastValue: 1}
	err := transaction.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "meeting_type"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			columnLastValue: gorm.Expr(columnLastValue + " + 1"),
		}),
	}).Create(&counter).Error
	if err != nil {
		return 0, err
	}

	var stored MeetingSequence
	if err := transaction.
		Where("meeting_type = ?", meetingType.String()).
		Take(&stored).Error; err != nil {
		return 0, err
	}
	return stored.LastValue, nil
}

// BackfillSequences raises each per-type counter to at least the number of stored
// meetings of that type. Used when counters are introduced on an existing store.
func BackfillSequences(db *gorm.DB) error {
	type typeCount struct {
		MeetingType string
		Total       int64
	}
	var counts []typeCount
	if err := db.Model(&Meeting{}).
		Select("meeting_type, COUNT(*) AS total").
		Group("meeting_type").
		Scan(&counts).Error; err != nil {
		return err
	}
	for _, count := range counts {
		counter := MeetingSequence{MeetingType: count.MeetingType, LastValue: count.Total}
		err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "meeting_type"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				columnLastValue: gorm.Expr("MAX("+columnLastValue+", ?)", count.Total),
			}),
		}).Create(&counter).Error
		if err != nil {
			return err
		}
	}
	return nil
}
