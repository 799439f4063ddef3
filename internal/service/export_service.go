package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/clubconnect-api/internal/dto"
	"github.com/noah-isme/clubconnect-api/internal/models"
	appErrors "github.com/noah-isme/clubconnect-api/pkg/errors"
	"github.com/noah-isme/clubconnect-api/pkg/export"
)

// Exportable entities.
const (
	EntitySchools  = "schools"
	EntityClubs    = "clubs"
	EntityTeachers = "teachers"
	EntityCovers   = "covers"
)

type schoolSource interface {
	ListAll(ctx context.Context, filter models.SchoolFilter) ([]models.School, error)
}

type clubSource interface {
	ListAll(ctx context.Context, filter models.ClubFilter) ([]models.Club, error)
}

type teacherSource interface {
	ListAll(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, error)
}

type coverSource interface {
	ListAll(ctx context.Context, filter models.CoverOccurrenceFilter) ([]models.CoverOccurrenceDetail, error)
}

// ExportSources bundles the row sources of every exportable entity.
type ExportSources struct {
	Schools  schoolSource
	Clubs    clubSource
	Teachers teacherSource
	Covers   coverSource
}

// ExportQuery selects rows, columns and format of one export.
type ExportQuery struct {
	Format    string
	Columns   []string
	Search    string
	Status    string
	SchoolID  string
	ClubID    string
	TeacherID string
	Blocked   *bool
	From      *time.Time
	To        *time.Time
	SortBy    string
	SortOrder string
}

// ExportFile is a rendered export ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Rows        int
	Data        []byte
}

// ExportService renders entity lists through the typed table descriptors.
type ExportService struct {
	sources   ExportSources
	renderers map[export.Format]export.Renderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService. A nil renderer map uses the
// package defaults.
func NewExportService(sources ExportSources, renderers map[export.Format]export.Renderer, logger *zap.Logger) *ExportService {
	if renderers == nil {
		renderers = export.Renderers()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{sources: sources, renderers: renderers, logger: logger, now: time.Now}
}

// Entities lists the exportable entity names.
func (s *ExportService) Entities() []string {
	return []string{EntitySchools, EntityClubs, EntityTeachers, EntityCovers}
}

// TableConfig describes the columns of entity for list widgets.
func (s *ExportService) TableConfig(entity string) (*dto.TableConfig, error) {
	var (
		title   string
		columns []export.ColumnInfo
	)
	switch entity {
	case EntitySchools:
		title, columns = SchoolTable.Title, SchoolTable.Describe()
	case EntityClubs:
		title, columns = ClubTable.Title, ClubTable.Describe()
	case EntityTeachers:
		title, columns = TeacherTable.Title, TeacherTable.Describe()
	case EntityCovers:
		title, columns = CoverTable.Title, CoverTable.Describe()
	default:
		return nil, unknownEntity(entity)
	}
	return &dto.TableConfig{Entity: entity, Title: title, Columns: columns, Formats: s.formats()}, nil
}

func (s *ExportService) formats() []string {
	out := make([]string, 0, len(s.renderers))
	for f := range s.renderers {
		out = append(out, string(f))
	}
	sort.Strings(out)
	return out
}

// Export renders every row of entity matching query.
func (s *ExportService) Export(ctx context.Context, entity string, query ExportQuery) (*ExportFile, error) {
	format, err := export.ParseFormat(query.Format)
	if err != nil {
		return nil, appErrors.Validation(err, err.Error())
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("export format %s is not enabled", format))
	}

	var data export.Dataset
	switch entity {
	case EntitySchools:
		data, err = s.schools(ctx, query)
	case EntityClubs:
		data, err = s.clubs(ctx, query)
	case EntityTeachers:
		data, err = s.teachers(ctx, query)
	case EntityCovers:
		data, err = s.covers(ctx, query)
	default:
		return nil, unknownEntity(entity)
	}
	if err != nil {
		return nil, err
	}

	payload, err := renderer.Render(data)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render export")
	}
	file := &ExportFile{
		Filename:    fmt.Sprintf("%s_%s.%s", entity, s.now().UTC().Format("20060102_150405"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Rows:        len(data.Rows),
		Data:        payload,
	}
	s.logger.Info("export generated",
		zap.String("entity", entity),
		zap.String("format", string(format)),
		zap.Int("rows", file.Rows),
		zap.Int("bytes", len(payload)))
	return file, nil
}

func (s *ExportService) schools(ctx context.Context, q ExportQuery) (export.Dataset, error) {
	table, err := selectColumns(SchoolTable, q)
	if err != nil {
		return export.Dataset{}, err
	}
	rows, err := s.sources.Schools.ListAll(ctx, models.SchoolFilter{
		Search: q.Search, Status: models.RecordStatus(q.Status), SortBy: q.SortBy, SortOrder: q.SortOrder,
	})
	if err != nil {
		return export.Dataset{}, appErrors.Internal(err, "failed to load schools")
	}
	return table.Dataset(rows), nil
}

func (s *ExportService) clubs(ctx context.Context, q ExportQuery) (export.Dataset, error) {
	table, err := selectColumns(ClubTable, q)
	if err != nil {
		return export.Dataset{}, err
	}
	rows, err := s.sources.Clubs.ListAll(ctx, models.ClubFilter{
		SchoolID: q.SchoolID, Search: q.Search, Status: models.RecordStatus(q.Status), SortBy: q.SortBy, SortOrder: q.SortOrder,
	})
	if err != nil {
		return export.Dataset{}, appErrors.Internal(err, "failed to load clubs")
	}
	return table.Dataset(rows), nil
}

func (s *ExportService) teachers(ctx context.Context, q ExportQuery) (export.Dataset, error) {
	table, err := selectColumns(TeacherTable, q)
	if err != nil {
		return export.Dataset{}, err
	}
	rows, err := s.sources.Teachers.ListAll(ctx, models.TeacherFilter{
		Search: q.Search, Blocked: q.Blocked, SortBy: q.SortBy, SortOrder: q.SortOrder,
	})
	if err != nil {
		return export.Dataset{}, appErrors.Internal(err, "failed to load teachers")
	}
	return table.Dataset(rows), nil
}

func (s *ExportService) covers(ctx context.Context, q ExportQuery) (export.Dataset, error) {
	table, err := selectColumns(CoverTable, q)
	if err != nil {
		return export.Dataset{}, err
	}
	rows, err := s.sources.Covers.ListAll(ctx, models.CoverOccurrenceFilter{
		From: q.From, To: q.To, SchoolID: q.SchoolID, ClubID: q.ClubID, TeacherID: q.TeacherID,
		Status: models.OccurrenceStatus(q.Status), SortBy: q.SortBy, SortOrder: q.SortOrder,
	})
	if err != nil {
		return export.Dataset{}, appErrors.FromError(err)
	}
	return table.Dataset(rows), nil
}

// selectColumns narrows table to the requested columns and checks the sort
// key against the table's sortable columns.
func selectColumns[T any](table export.Table[T], q ExportQuery) (export.Table[T], error) {
	if q.SortBy != "" {
		if _, ok := table.SortColumn(q.SortBy); !ok {
			return table, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("cannot sort %s by %q", table.Name, q.SortBy))
		}
	}
	selected, err := table.Select(q.Columns)
	if err != nil {
		return table, appErrors.Validation(err, err.Error())
	}
	return selected, nil
}

func unknownEntity(entity string) error {
	return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown export entity %q", entity))
}
