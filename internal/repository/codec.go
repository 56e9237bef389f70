package repository

import (
	"errors"
	"fmt"
	"sort"

	"sinedi/internal/domain"
	"sinedi/internal/models"
	"sinedi/internal/store"
	"sinedi/pkg/logger"
)

// ErrNotFound is returned for missing users, jobs, videos and notifications.
var ErrNotFound = errors.New("record not found")

func notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func DecodeUser(doc store.Document) (*models.User, error) {
	var u models.User
	if err := store.Decode(doc.Data, &u); err != nil {
		return nil, err
	}
	u.ID = doc.ID
	return &u, nil
}

// DecodeJob decodes a job and rewrites legacy status strings to the canonical
// ones. Unrecognised statuses are kept verbatim and logged.
func DecodeJob(doc store.Document) (*models.Job, error) {
	var j models.Job
	if err := store.Decode(doc.Data, &j); err != nil {
		return nil, err
	}
	j.ID = doc.ID
	if st, err := domain.NormalizeStatus(j.Type, string(j.Status)); err == nil {
		j.Status = st
	} else {
		logger.Warnf("[store] job %s has unknown status %q", doc.ID, j.Status)
	}
	return &j, nil
}

func decodeAll[T any](docs []store.Document, decode func(store.Document) (*T, error)) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		v, err := decode(d)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.ID, err)
		}
		out = append(out, *v)
	}
	return out, nil
}

func decodeInto[T any](setID func(*T, string)) func(store.Document) (*T, error) {
	return func(doc store.Document) (*T, error) {
		var v T
		if err := store.Decode(doc.Data, &v); err != nil {
			return nil, err
		}
		setID(&v, doc.ID)
		return &v, nil
	}
}

// TxGetUser reads a user inside a store transaction.
func TxGetUser(tx store.Tx, id string) (*models.User, error) {
	doc, err := tx.Get(domain.CollectionUsers, id)
	if err != nil {
		return nil, notFound(err)
	}
	return DecodeUser(doc)
}

// TxGetJob reads a job inside a store transaction.
func TxGetJob(tx store.Tx, id string) (*models.Job, error) {
	doc, err := tx.Get(domain.CollectionJobs, id)
	if err != nil {
		return nil, notFound(err)
	}
	return DecodeJob(doc)
}

// SortJobsNewestFirst orders by createdAt, which is ISO-8601 and sorts lexically.
func SortJobsNewestFirst(jobs []models.Job) {
	sort.SliceStable(jobs, func(i, k int) bool { return jobs[i].CreatedAt > jobs[k].CreatedAt })
}
