// Package snapstore persists named session snapshots.
//
// Each snapshot is stored under "snapshot/<name>" as a CBOR envelope whose
// engine bytes are zstd-compressed. The same envelope is used for file
// export and import.
package snapstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"genloop/internal/session"
)

const (
	keyPrefix  = "snapshot/"
	maxNameLen = 128
)

var (
	// ErrNotFound is returned when no snapshot has the requested name.
	ErrNotFound = errors.New("snapshot not found")
	// ErrInvalidName rejects empty, overlong or slash-containing names.
	ErrInvalidName = errors.New("invalid snapshot name")
)

// Record is a persisted snapshot.
type Record struct {
	ID            string
	Name          string
	CreatedAt     time.Time
	LastTokenType session.TokenType
	TokenCount    int
	// Size of the uncompressed engine state.
	Size int
	Data []byte
}

// State converts the record into a restorable session state.
func (r *Record) State() *session.State {
	return &session.State{Data: r.Data, LastTokenType: r.LastTokenType, TokenCount: r.TokenCount}
}

// Info drops the engine bytes.
func (r Record) Info() Record {
	r.Data = nil
	return r
}

// Options configures Open.
type Options struct {
	// Dir holds the badger files. Required unless InMemory.
	Dir      string
	InMemory bool
	Logger   zerolog.Logger
}

// Store is a badger-backed snapshot store. Safe for concurrent use.
type Store struct {
	db  *badger.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
	log zerolog.Logger
}

// Open opens or creates the store.
func Open(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("snapstore: Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(badgerLogger{opts.Logger})
	if opts.InMemory {
		dbOpts = dbOpts.WithDir("").WithValueDir("").WithInMemory(true)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("snapstore: zstd encoder: %w", err)
	}
	dec, err := newDecoder()
	if err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("snapstore: zstd decoder: %w", err)
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		_ = enc.Close()
		dec.Close()
		return nil, fmt.Errorf("snapstore: open %q: %w", opts.Dir, err)
	}
	opts.Logger.Info().Str("dir", opts.Dir).Bool("in_memory", opts.InMemory).Msg("snapshot store opened")
	return &Store{db: db, enc: enc, dec: dec, log: opts.Logger}, nil
}

// ValidateName reports whether name can key a snapshot.
func ValidateName(name string) error {
	if name == "" || len(name) > maxNameLen || strings.ContainsAny(name, "/\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Put stores st under name, replacing any previous snapshot with that name.
func (s *Store) Put(_ context.Context, name string, st *session.State) (Record, error) {
	if err := ValidateName(name); err != nil {
		return Record{}, err
	}
	if st == nil || len(st.Data) == 0 {
		return Record{}, fmt.Errorf("%w: empty state", session.ErrInvalidArgument)
	}
	rec := Record{
		ID:            uuid.NewString(),
		Name:          name,
		CreatedAt:     time.Now().UTC(),
		LastTokenType: st.LastTokenType,
		TokenCount:    st.TokenCount,
		Size:          len(st.Data),
		Data:          st.Data,
	}
	val, err := s.marshal(rec)
	if err != nil {
		return Record{}, err
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+name), val)
	}); err != nil {
		return Record{}, fmt.Errorf("snapstore: put %q: %w", name, err)
	}
	s.log.Debug().Str("name", name).Str("id", rec.ID).Int("bytes", rec.Size).Int("stored", len(val)).Msg("snapshot saved")
	return rec, nil
}

// Get loads the snapshot called name.
func (s *Store) Get(_ context.Context, name string) (Record, error) {
	if err := ValidateName(name); err != nil {
		return Record{}, err
	}
	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			rec, err = s.unmarshal(val, true)
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Record{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// List returns every stored snapshot without engine bytes, ordered by name.
func (s *Store) List(_ context.Context) ([]Record, error) {
	var out []Record
	prefix := []byte(keyPrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				rec, err := s.unmarshal(val, false)
				if err != nil {
					return err
				}
				out = append(out, rec)
				return nil
			})
			if err != nil {
				return fmt.Errorf("snapstore: %s: %w", it.Item().Key(), err)
			}
		}
		return nil
	})
	return out, err
}

// Delete removes the snapshot called name.
func (s *Store) Delete(_ context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	key := []byte(keyPrefix + name)
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %q", ErrNotFound, name)
			}
			return err
		}
		return txn.Delete(key)
	})
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	err := multierr.Combine(s.enc.Close(), s.db.Close())
	s.dec.Close()
	return err
}

// badgerLogger routes badger's logs to zerolog, demoting info to debug.
type badgerLogger struct{ log zerolog.Logger }

func (l badgerLogger) Errorf(f string, v ...interface{}) {
	l.log.Error().Str("component", "badger").Msgf(strings.TrimSpace(f), v...)
}

func (l badgerLogger) Warningf(f string, v ...interface{}) {
	l.log.Warn().Str("component", "badger").Msgf(strings.TrimSpace(f), v...)
}

func (l badgerLogger) Infof(f string, v ...interface{}) {
	l.log.Debug().Str("component", "badger").Msgf(strings.TrimSpace(f), v...)
}

func (l badgerLogger) Debugf(f string, v ...interface{}) {
	l.log.Trace().Str("component", "badger").Msgf(strings.TrimSpace(f), v...)
}
