package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/okian/mingle/internal/domain/model"
)

const (
	submissionKeyPrefix = "sub:"
	profileKeyPrefix    = "profile:"
	gridKeyPrefix       = "grid:"
)

// BadgerStore is an embedded, durable Backend.
type BadgerStore struct {
	db     *badger.DB
	ownsDB bool
}

// OpenBadgerStore opens (or creates) a badger database at path.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open badger %q: %w", path, err)
	}
	return &BadgerStore{db: db, ownsDB: true}, nil
}

// NewBadgerStore wraps an already opened database. Close leaves it open.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// lengthed encodes a key part so that prefixes of one ID never match another.
func lengthed(id string) string {
	return strconv.Itoa(len(id)) + ":" + id + ":"
}

func submissionPrefix(eventID string) []byte {
	return []byte(submissionKeyPrefix + lengthed(eventID))
}

func submissionKey(eventID, userID string) []byte {
	return []byte(submissionKeyPrefix + lengthed(eventID) + userID)
}

func profileKey(userID string) []byte {
	return []byte(profileKeyPrefix + userID)
}

func gridKey(userID, eventID string) []byte {
	return []byte(gridKeyPrefix + lengthed(userID) + eventID)
}

func (b *BadgerStore) set(ctx context.Context, key []byte, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

func (b *BadgerStore) get(ctx context.Context, key []byte, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, v); err != nil {
				return fmt.Errorf("%w: %w", ErrCorruptRecord, err)
			}
			return nil
		})
	})
}

// PutSubmission implements SubmissionStore.
func (b *BadgerStore) PutSubmission(ctx context.Context, s model.SurveySubmission) error {
	if err := b.set(ctx, submissionKey(s.EventID, s.UserID), toSubmissionRecord(s)); err != nil {
		return fmt.Errorf("put submission: %w", err)
	}
	return nil
}

// ListByEvent implements SubmissionStore.
func (b *BadgerStore) ListByEvent(ctx context.Context, eventID, excludingUserID string) ([]model.SurveySubmission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []model.SurveySubmission
	prefix := submissionPrefix(eventID)
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if string(it.Item().Key()[len(prefix):]) == excludingUserID {
				continue
			}

			var rec submissionRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("%w: %w", ErrCorruptRecord, err)
			}
			s, err := rec.model()
			if err != nil {
				return err
			}
			out = append(out, s)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	if out == nil {
		out = []model.SurveySubmission{}
	}
	sortSubmissions(out)
	return out, nil
}

// GetUserInterests implements InterestLookup.
func (b *BadgerStore) GetUserInterests(ctx context.Context, userID string) ([]string, error) {
	var rec profileRecord
	err := b.get(ctx, profileKey(userID), &rec)
	if errors.Is(err, ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get interests: %w", err)
	}
	return interestsOrEmpty(rec.Interests), nil
}

// PutInterests implements ProfileStore.
func (b *BadgerStore) PutInterests(ctx context.Context, userID string, interests []string) error {
	rec := profileRecord{UserID: userID, Interests: interestsOrEmpty(interests)}
	if err := b.set(ctx, profileKey(userID), rec); err != nil {
		return fmt.Errorf("put interests: %w", err)
	}
	return nil
}

// PutGrid implements GridStore.
func (b *BadgerStore) PutGrid(ctx context.Context, g model.MatchGrid) error {
	if err := b.set(ctx, gridKey(g.UserID, g.EventID), toGridRecord(g)); err != nil {
		return fmt.Errorf("put grid: %w", err)
	}
	return nil
}

// GetGrid implements GridStore.
func (b *BadgerStore) GetGrid(ctx context.Context, userID, eventID string) (model.MatchGrid, error) {
	var rec gridRecord
	if err := b.get(ctx, gridKey(userID, eventID), &rec); err != nil {
		return model.MatchGrid{}, fmt.Errorf("get grid: %w", err)
	}
	return rec.model(), nil
}

// Close implements Backend.
func (b *BadgerStore) Close() error {
	if !b.ownsDB {
		return nil
	}
	return b.db.Close()
}
