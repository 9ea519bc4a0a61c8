package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	opServiceNew   = "catalog.service.new"
	opApplySeed    = "catalog.apply_seed"
	opListProjects = "catalog.list_projects"
	opListSets     = "catalog.list_sets"
	orderNameAsc   = "name ASC"

	reasonMissingDatabase = "missing_database"
	reasonUpsertFailed    = "upsert_failed"
	reasonQueryFailed     = "query_failed"
)

var errMissingDatabase = errors.New("catalog: database connection required")

// ServiceConfig describes the dependencies of the reference catalog.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service stores and lists the project and set display records.
type Service struct {
	db     *gorm.DB
	now    func() time.Time
	logger *zap.Logger
}

// ApplyResult reports how many records a seed touched.
type ApplyResult struct {
	Projects int
	Sets     int
}

// NewService constructs the catalog service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, reasonMissingDatabase, errMissingDatabase)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: cfg.Database, now: clock, logger: logger}, nil
}

// Apply upserts every project and set of the seed in a single transaction. A set may
// reference a project from the same seed or one stored by an earlier seed; any other
// reference rejects the whole seed with ErrInvalidSeed.
func (s *Service) Apply(ctx context.Context, seed Seed) (ApplyResult, error) {
	if s.db == nil {
		s.logError(opApplySeed, reasonMissingDatabase, errMissingDatabase)
		return ApplyResult{}, newServiceError(opApplySeed, reasonMissingDatabase, errMissingDatabase)
	}
	now := s.now().UTC()
	projects := lo.Map(seed.Projects, func(item SeedProject, _ int) Project {
		return Project{ID: item.ID, Name: item.Name, Code: item.Code, Category: item.Category, UpdatedAt: now}
	})
	sets := lo.Map(seed.Sets, func(item SeedSet, _ int) Set {
		return Set{ID: item.ID, Name: item.Name, ProjectID: item.Project, UpdatedAt: now}
	})

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		unresolved, err := unresolvedProjects(tx, seed)
		if err != nil {
			return err
		}
		if len(unresolved) > 0 {
			return fmt.Errorf("%w: sets reference unknown projects %s", ErrInvalidSeed, strings.Join(unresolved, ", "))
		}
		if len(projects) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&projects).Error; err != nil {
				return err
			}
		}
		if len(sets) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&sets).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, ErrInvalidSeed) {
		return ApplyResult{}, err
	}
	if err != nil {
		s.logError(opApplySeed, reasonUpsertFailed, err)
		return ApplyResult{}, newServiceError(opApplySeed, reasonUpsertFailed, err)
	}

	s.logger.Info("catalog seed applied", zap.Int("projects", len(projects)), zap.Int("sets", len(sets)))
	return ApplyResult{Projects: len(projects), Sets: len(sets)}, nil
}

// ListProjects returns every project sorted by name.
func (s *Service) ListProjects(ctx context.Context) ([]Project, error) {
	if s.db == nil {
		s.logError(opListProjects, reasonMissingDatabase, errMissingDatabase)
		return nil, newServiceError(opListProjects, reasonMissingDatabase, errMissingDatabase)
	}
	projects := make([]Project, 0)
	if err := s.db.WithContext(ctx).Order(orderNameAsc).Find(&projects).Error; err != nil {
		s.logError(opListProjects, reasonQueryFailed, err)
		return nil, newServiceError(opListProjects, reasonQueryFailed, err)
	}
	return projects, nil
}

// ListSets returns sets sorted by name, optionally limited to one project.
func (s *Service) ListSets(ctx context.Context, projectID string) ([]Set, error) {
	if s.db == nil {
		s.logError(opListSets, reasonMissingDatabase, errMissingDatabase)
		return nil, newServiceError(opListSets, reasonMissingDatabase, errMissingDatabase)
	}
	query := s.db.WithContext(ctx)
	if trimmed := strings.TrimSpace(projectID); trimmed != "" {
		query = query.Where("project_id = ?", trimmed)
	}
	sets := make([]Set, 0)
	if err := query.Order(orderNameAsc).Find(&sets).Error; err != nil {
		s.logError(opListSets, reasonQueryFailed, err, zap.String("project_id", projectID))
		return nil, newServiceError(opListSets, reasonQueryFailed, err)
	}
	return sets, nil
}

// unresolvedProjects returns set project references found neither in the seed nor in storage.
func unresolvedProjects(tx *gorm.DB, seed Seed) ([]string, error) {
	seeded := lo.SliceToMap(seed.Projects, func(project SeedProject) (string, struct{}) {
		return project.ID, struct{}{}
	})
	referenced := lo.Uniq(lo.FilterMap(seed.Sets, func(set SeedSet, _ int) (string, bool) {
		_, inSeed := seeded[set.Project]
		return set.Project, set.Project != "" && !inSeed
	}))
	if len(referenced) == 0 {
		return nil, nil
	}
	var stored []string
	if err := tx.Model(&Project{}).Where("id IN ?", referenced).Pluck("id", &stored).Error; err != nil {
		return nil, err
	}
	return lo.Without(referenced, stored...), nil
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	logger := s.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	attrs := append([]zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
		zap.Error(err),
	}, fields...)
	logger.Error("catalog service error", attrs...)
}
