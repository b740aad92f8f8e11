package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/dismissal/core/dismissal"
)

type eventRepository struct {
	db *eventTable
}

var _ dismissal.Repository = (*eventRepository)(nil)

func NewEventRepository(db *DB) *eventRepository {
	return &eventRepository{db: db.event}
}

func (repo *eventRepository) QueryAllEvents(context.Context) ([]dismissal.Event, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	events := make([]dismissal.Event, len(repo.db.table))
	copy(events, repo.db.table)
	return events, nil
}

func (repo *eventRepository) CreateEvents(_ context.Context, events ...dismissal.Event) ([]dismissal.Event, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	created := make([]dismissal.Event, 0, len(events))
	for _, e := range events {
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		e.StudentIDs = append([]string(nil), e.StudentIDs...)
		e.StudentNames = append([]string(nil), e.StudentNames...)
		created = append(created, e)
	}
	repo.db.table = append(repo.db.table, created...)
	return created, nil
}
