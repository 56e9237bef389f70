package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLDocument is one stored document. Collection paths and ids together form
// the primary key; the payload is kept as a JSON column.
type SQLDocument struct {
	Collection string         `gorm:"primaryKey;size:191"`
	ID         string         `gorm:"primaryKey;size:64"`
	Data       datatypes.JSON `gorm:"not null"`
	Version    int64          `gorm:"not null;default:0"`
	UpdatedAt  time.Time
}

func (SQLDocument) TableName() string { return "documents" }

// SQLStore serves documents from MySQL or Postgres through gorm. Filters on
// string and bool fields run as JSON conditions in SQL; transactions lock the
// rows they read. Subscriptions only observe writes made through this process.
type SQLStore struct {
	db       *gorm.DB
	notifier *notifier
	now      func() time.Time
}

func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db, notifier: newNotifier(), now: time.Now}
}

func (s *SQLStore) NewID(string) string {
	return uuid.New().String()
}

func (s *SQLStore) Get(ctx context.Context, collection, id string) (Document, error) {
	return getRow(s.db.WithContext(ctx), collection, id, false)
}

func (s *SQLStore) Set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	if err := putRow(s.db.WithContext(ctx), collection, id, prepare(data, s.now())); err != nil {
		return err
	}
	s.notifier.changed(collection, id)
	return nil
}

func (s *SQLStore) Create(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	id := s.NewID(collection)
	return id, s.Set(ctx, collection, id, data)
}

func (s *SQLStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return mergeRow(tx, collection, id, prepare(fields, s.now()))
	})
	if err != nil {
		return err
	}
	s.notifier.changed(collection, id)
	return nil
}

func (s *SQLStore) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	return queryRows(s.db.WithContext(ctx), collection, filters, false)
}

func (s *SQLStore) Subscribe(ctx context.Context, collection string, fn func([]Document), filters ...Filter) (Subscription, error) {
	w := s.notifier.add(ctx, collection, "", filters, func() {
		docs, err := s.Query(ctx, collection, filters...)
		if err != nil {
			return
		}
		fn(docs)
	})
	return w, nil
}

func (s *SQLStore) SubscribeDoc(ctx context.Context, collection, id string, fn func(Document)) (Subscription, error) {
	w := s.notifier.add(ctx, collection, id, nil, func() {
		d, err := s.Get(ctx, collection, id)
		if errors.Is(err, ErrNotFound) {
			d = Document{ID: id}
		} else if err != nil {
			return
		}
		fn(d)
	})
	return w, nil
}

// RunTransaction retries when the database itself fails the transaction
// (deadlock, serialization failure); errors returned by fn end it at once.
func (s *SQLStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	var lastErr error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		var (
			stx   *sqlTx
			fnErr error
		)
		err := s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
			stx = &sqlTx{db: gtx, now: s.now()}
			if fnErr = fn(ctx, stx); fnErr != nil {
				return fnErr
			}
			return stx.err
		})
		if err == nil {
			for _, k := range stx.written {
				s.notifier.changed(k[0], k[1])
			}
			return nil
		}
		if fnErr != nil && (stx == nil || stx.err == nil) {
			return fnErr
		}
		lastErr = err
	}
	return fmt.Errorf("%w: %v", ErrConflict, lastErr)
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type sqlTx struct {
	db      *gorm.DB
	now     time.Time
	written [][2]string
	wrote   bool
	// err is the first database failure, as opposed to a rejection by the caller.
	err error
}

func (t *sqlTx) fail(err error) error {
	if t.err == nil {
		t.err = err
	}
	return err
}

func (t *sqlTx) Get(collection, id string) (Document, error) {
	if t.wrote {
		return Document{}, fmt.Errorf("read after write in transaction")
	}
	d, err := getRow(t.db, collection, id, true)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return d, t.fail(err)
	}
	return d, err
}

func (t *sqlTx) Query(collection string, filters ...Filter) ([]Document, error) {
	if t.wrote {
		return nil, fmt.Errorf("read after write in transaction")
	}
	docs, err := queryRows(t.db, collection, filters, true)
	if err != nil {
		return nil, t.fail(err)
	}
	return docs, nil
}

func (t *sqlTx) Set(collection, id string, data map[string]interface{}) error {
	t.wrote = true
	if err := putRow(t.db, collection, id, prepare(data, t.now)); err != nil {
		return t.fail(err)
	}
	t.written = append(t.written, [2]string{collection, id})
	return nil
}

func (t *sqlTx) Update(collection, id string, fields map[string]interface{}) error {
	t.wrote = true
	if err := mergeRow(t.db, collection, id, prepare(fields, t.now)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return t.fail(err)
	}
	t.written = append(t.written, [2]string{collection, id})
	return nil
}

func lockedIf(db *gorm.DB, lock bool) *gorm.DB {
	if lock {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

func getRow(db *gorm.DB, collection, id string, lock bool) (Document, error) {
	var row SQLDocument
	err := lockedIf(db, lock).Where("collection = ? AND id = ?", collection, id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	return rowDocument(row)
}

func queryRows(db *gorm.DB, collection string, filters []Filter, lock bool) ([]Document, error) {
	var rows []SQLDocument
	if err := filteredRows(lockedIf(db, lock), collection, filters).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Document, 0, len(rows))
	for _, row := range rows {
		d, err := rowDocument(row)
		if err != nil {
			return nil, err
		}
		if matchesAll(d.Data, filters) {
			out = append(out, d)
		}
	}
	return out, nil
}

// filteredRows narrows the collection in SQL with the filters on string and
// bool values. Other values are matched in process after the read, so a
// transaction still locks every row of the collection for those.
func filteredRows(db *gorm.DB, collection string, filters []Filter) *gorm.DB {
	q := db.Where("collection = ?", collection)
	for _, f := range filters {
		if cond, ok := filterExpr(f); ok {
			q = q.Where(cond)
		}
	}
	return q
}

func filterExpr(f Filter) (clause.Expression, bool) {
	switch f.Op {
	case "in":
		list, _ := normalize(f.Value).([]interface{})
		if len(list) == 0 {
			return nil, false
		}
		exprs := make([]clause.Expression, 0, len(list))
		for _, v := range list {
			if !pushable(v) {
				return nil, false
			}
			exprs = append(exprs, datatypes.JSONQuery("data").Equals(v, f.Field))
		}
		if len(exprs) == 1 {
			return exprs[0], true
		}
		return clause.Or(exprs...), true
	default:
		v := normalize(f.Value)
		if !pushable(v) {
			return nil, false
		}
		return datatypes.JSONQuery("data").Equals(v, f.Field), true
	}
}

func pushable(v interface{}) bool {
	switch v.(type) {
	case string, bool:
		return true
	}
	return false
}

func putRow(db *gorm.DB, collection, id string, data map[string]interface{}) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	row := SQLDocument{Collection: collection, ID: id, Data: datatypes.JSON(b), Version: time.Now().UnixNano()}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "version", "updated_at"}),
	}).Create(&row).Error
}

func mergeRow(db *gorm.DB, collection, id string, fields map[string]interface{}) error {
	d, err := getRow(db, collection, id, true)
	if err != nil {
		return err
	}
	for k, v := range fields {
		d.Data[k] = v
	}
	return putRow(db, collection, id, d.Data)
}

func rowDocument(row SQLDocument) (Document, error) {
	v, err := unmarshalValue(row.Data)
	if err != nil {
		return Document{}, fmt.Errorf("document %s/%s: %w", row.Collection, row.ID, err)
	}
	data, _ := v.(map[string]interface{})
	if data == nil {
		data = make(map[string]interface{})
	}
	return Document{ID: row.ID, Data: data}, nil
}
