package sqlxrepos

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/trezcool/dismissal/core"
	"github.com/trezcool/dismissal/core/dismissal"
)

type eventRow struct {
	ID              string         `db:"id"`
	Date            string         `db:"date"`
	CampusLocation  string         `db:"campus_location"`
	CarNumber       int            `db:"car_number"`
	QueuedAt        int64          `db:"queued_at"`
	CompletedAt     int64          `db:"completed_at"`
	WaitTimeSeconds int            `db:"wait_time_seconds"`
	StudentIDs      pq.StringArray `db:"student_ids"`
	StudentNames    pq.StringArray `db:"student_names"`
}

func toEventRow(e dismissal.Event) eventRow {
	return eventRow{
		ID:              e.ID,
		Date:            e.Date,
		CampusLocation:  e.CampusLocation,
		CarNumber:       e.CarNumber,
		QueuedAt:        e.QueuedAt,
		CompletedAt:     e.CompletedAt,
		WaitTimeSeconds: e.WaitTimeSeconds,
		StudentIDs:      pq.StringArray(e.StudentIDs),
		StudentNames:    pq.StringArray(e.StudentNames),
	}
}

func (r eventRow) event() dismissal.Event {
	return dismissal.Event{
		ID:              r.ID,
		Date:            r.Date,
		CampusLocation:  r.CampusLocation,
		CarNumber:       r.CarNumber,
		QueuedAt:        r.QueuedAt,
		CompletedAt:     r.CompletedAt,
		WaitTimeSeconds: r.WaitTimeSeconds,
		StudentIDs:      []string(r.StudentIDs),
		StudentNames:    []string(r.StudentNames),
	}
}

type eventRepository struct {
	db core.DB
}

var _ dismissal.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db core.DB) *eventRepository {
	return &eventRepository{db: db}
}

func (repo eventRepository) QueryAllEvents(ctx context.Context) ([]dismissal.Event, error) {
	var rows []eventRow
	q := `SELECT id, date, campus_location, car_number, queued_at, completed_at, wait_time_seconds,
		student_ids, student_names
		FROM dismissal_event ORDER BY date, campus_location, queued_at, id`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, dbError(err, "selecting dismissal events")
	}

	events := make([]dismissal.Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, r.event())
	}
	return events, nil
}

func (repo eventRepository) CreateEvents(ctx context.Context, events ...dismissal.Event) ([]dismissal.Event, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, dbError(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	q := `INSERT INTO dismissal_event
		(id, date, campus_location, car_number, queued_at, completed_at, wait_time_seconds, student_ids, student_names)
		VALUES (:id, :date, :campus_location, :car_number, :queued_at, :completed_at, :wait_time_seconds,
		:student_ids, :student_names)`

	created := make([]dismissal.Event, 0, len(events))
	for _, e := range events {
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		if _, err = tx.NamedExecContext(ctx, q, toEventRow(e)); err != nil {
			return nil, dbError(err, fmt.Sprintf("inserting dismissal event %s", e.ID))
		}
		created = append(created, e)
	}

	if err = tx.Commit(); err != nil {
		return nil, dbError(err, "committing dismissal events")
	}
	return created, nil
}
