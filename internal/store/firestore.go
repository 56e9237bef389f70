package store

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"sinedi/pkg/logger"
)

// FirestoreStore is the hosted backend. Collection paths map one to one onto
// Firestore collection paths, sub-collections included.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirebaseApp initialises the Firebase app shared by Firestore and FCM.
func NewFirebaseApp(ctx context.Context, projectID, credentialsFile string) (*firebase.App, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}
	return firebase.NewApp(ctx, conf, opts...)
}

func NewFirestoreStore(ctx context.Context, app *firebase.App) (*FirestoreStore, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

func (s *FirestoreStore) NewID(collection string) string {
	return s.client.Collection(collection).NewDoc().ID
}

func (s *FirestoreStore) Get(ctx context.Context, collection, id string) (Document, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return Document{}, mapFirestoreErr(err)
	}
	return Document{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

func (s *FirestoreStore) Set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	_, err := s.client.Collection(collection).Doc(id).Set(ctx, toFirestore(data))
	return mapFirestoreErr(err)
}

func (s *FirestoreStore) Create(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	ref := s.client.Collection(collection).NewDoc()
	if _, err := ref.Set(ctx, toFirestore(data)); err != nil {
		return "", mapFirestoreErr(err)
	}
	return ref.ID, nil
}

func (s *FirestoreStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	_, err := s.client.Collection(collection).Doc(id).Update(ctx, toUpdates(fields))
	return mapFirestoreErr(err)
}

func (s *FirestoreStore) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	snaps, err := s.query(collection, filters).Documents(ctx).GetAll()
	if err != nil {
		return nil, mapFirestoreErr(err)
	}
	return snapshotDocs(snaps), nil
}

func (s *FirestoreStore) Subscribe(ctx context.Context, collection string, fn func([]Document), filters ...Filter) (Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	it := s.query(collection, filters).Snapshots(ctx)
	go func() {
		defer it.Stop()
		for {
			qs, err := it.Next()
			if err != nil {
				if ctx.Err() == nil && status.Code(err) != codes.Canceled {
					logger.Errorf("[store] subscription on %s ended: %v", collection, err)
				}
				return
			}
			snaps, err := qs.Documents.GetAll()
			if err != nil {
				logger.Warnf("[store] snapshot of %s: %v", collection, err)
				continue
			}
			fn(snapshotDocs(snaps))
		}
	}()
	return cancelSub(cancel), nil
}

func (s *FirestoreStore) SubscribeDoc(ctx context.Context, collection, id string, fn func(Document)) (Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	it := s.client.Collection(collection).Doc(id).Snapshots(ctx)
	go func() {
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() == nil && status.Code(err) != codes.Canceled {
					logger.Errorf("[store] subscription on %s/%s ended: %v", collection, id, err)
				}
				return
			}
			if !snap.Exists() {
				fn(Document{ID: id})
				continue
			}
			fn(Document{ID: id, Data: snap.Data()})
		}
	}()
	return cancelSub(cancel), nil
}

func (s *FirestoreStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, t *firestore.Transaction) error {
		return fn(ctx, &firestoreTx{client: s.client, tx: t})
	}, firestore.MaxAttempts(maxTxAttempts))
	if status.Code(err) == codes.Aborted {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

func (s *FirestoreStore) Close() error { return s.client.Close() }

func (s *FirestoreStore) query(collection string, filters []Filter) firestore.Query {
	q := s.client.Collection(collection).Query
	for _, f := range filters {
		q = q.Where(f.Field, f.Op, f.Value)
	}
	return q
}

type firestoreTx struct {
	client *firestore.Client
	tx     *firestore.Transaction
}

func (t *firestoreTx) Get(collection, id string) (Document, error) {
	snap, err := t.tx.Get(t.client.Collection(collection).Doc(id))
	if err != nil {
		return Document{}, mapFirestoreErr(err)
	}
	return Document{ID: id, Data: snap.Data()}, nil
}

func (t *firestoreTx) Query(collection string, filters ...Filter) ([]Document, error) {
	q := t.client.Collection(collection).Query
	for _, f := range filters {
		q = q.Where(f.Field, f.Op, f.Value)
	}
	snaps, err := t.tx.Documents(q).GetAll()
	if err != nil {
		return nil, mapFirestoreErr(err)
	}
	return snapshotDocs(snaps), nil
}

func (t *firestoreTx) Set(collection, id string, data map[string]interface{}) error {
	return t.tx.Set(t.client.Collection(collection).Doc(id), toFirestore(data))
}

func (t *firestoreTx) Update(collection, id string, fields map[string]interface{}) error {
	return t.tx.Update(t.client.Collection(collection).Doc(id), toUpdates(fields))
}

type cancelSub context.CancelFunc

func (c cancelSub) Stop() { c() }

func toFirestore(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		if _, ok := v.(serverTimestamp); ok {
			out[k] = firestore.ServerTimestamp
			continue
		}
		out[k] = v
	}
	return out
}

func toUpdates(fields map[string]interface{}) []firestore.Update {
	ups := make([]firestore.Update, 0, len(fields))
	for k, v := range toFirestore(fields) {
		ups = append(ups, firestore.Update{FieldPath: firestore.FieldPath{k}, Value: v})
	}
	return ups
}

func snapshotDocs(snaps []*firestore.DocumentSnapshot) []Document {
	out := make([]Document, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, Document{ID: snap.Ref.ID, Data: snap.Data()})
	}
	return out
}

func mapFirestoreErr(err error) error {
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.NotFound || errors.Is(err, iterator.Done) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
