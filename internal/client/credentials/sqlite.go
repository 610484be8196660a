package credentials

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/zyplyctl/internal/client/migrations"
	"github.com/dmitrijs2005/zyplyctl/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/zyplyctl/internal/cryptox"
	"github.com/dmitrijs2005/zyplyctl/internal/dbx"
	"github.com/dmitrijs2005/zyplyctl/internal/filex"
)

// SQLiteStore keeps the token in the metadata table of a local SQLite
// file. With a passphrase the token is sealed with AES-GCM under an
// Argon2id-derived key; the salt is stored next to it. The profile
// namespace of the metadata table belongs to the store.
type SQLiteStore struct {
	db         *sql.DB
	profile    string
	passphrase []byte
	now        func() time.Time

	// Argon2id is slow on purpose, so the key for the last seen salt is
	// kept for the lifetime of the store.
	deriveKey func(pass, salt []byte) []byte
	keyMu     sync.Mutex
	keySalt   []byte
	key       []byte
}

// Option customizes a SQLiteStore.
type Option func(*SQLiteStore)

// WithPassphrase enables at-rest sealing.
func WithPassphrase(p string) Option {
	return func(s *SQLiteStore) {
		if p != "" {
			s.passphrase = []byte(p)
		}
	}
}

// NewSQLiteStore wraps an already migrated database.
func NewSQLiteStore(db *sql.DB, profile string, opts ...Option) *SQLiteStore {
	s := &SQLiteStore{db: db, profile: profile, now: time.Now, deriveKey: cryptox.DeriveKey}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenSQLiteStore opens the database at path, applies migrations and
// returns the store together with the handle the caller must close.
func OpenSQLiteStore(ctx context.Context, path, profile string, opts ...Option) (*SQLiteStore, *sql.DB, error) {
	if err := filex.EnsureParentDir(path); err != nil {
		return nil, nil, fmt.Errorf("open credential store: %w", err)
	}
	db, err := dbx.OpenSQLite(ctx, path, migrations.Migrations)
	if err != nil {
		return nil, nil, fmt.Errorf("open credential store: %w", err)
	}
	return NewSQLiteStore(db, profile, opts...), db, nil
}

func (s *SQLiteStore) repo(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db, s.profile)
}

// keyFor returns the sealing key for salt, deriving it only when salt
// differs from the cached one.
func (s *SQLiteStore) keyFor(salt []byte) []byte {
	s.keyMu.Lock()
	defer s.keyMu.Unlock()

	if s.key != nil && bytes.Equal(s.keySalt, salt) {
		return s.key
	}
	s.keySalt = append([]byte(nil), salt...)
	s.key = s.deriveKey(s.passphrase, salt)
	return s.key
}

func (s *SQLiteStore) forgetKey() {
	s.keyMu.Lock()
	s.keySalt, s.key = nil, nil
	s.keyMu.Unlock()
}

func (s *SQLiteStore) Save(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repo(tx)

		value := []byte(token)
		if s.passphrase != nil {
			salt, err := cryptox.NewSalt()
			if err != nil {
				return err
			}
			value, err = cryptox.Seal(s.keyFor(salt), value)
			if err != nil {
				return fmt.Errorf("seal token: %w", err)
			}
			if err := repo.Set(ctx, TokenSaltKey, salt); err != nil {
				return err
			}
		} else if err := repo.Delete(ctx, TokenSaltKey); err != nil {
			return err
		}

		if err := repo.Set(ctx, TokenKey, value); err != nil {
			return err
		}
		return repo.Set(ctx, TokenSavedAtKey, []byte(s.now().UTC().Format(time.RFC3339)))
	})
}

func (s *SQLiteStore) Read(ctx context.Context) (string, bool, error) {
	all, err := s.repo(s.db).List(ctx)
	if err != nil {
		return "", false, err
	}

	value := all[TokenKey]
	if len(value) == 0 {
		return "", false, nil
	}

	salt, sealed := all[TokenSaltKey]
	if !sealed {
		return string(value), true, nil
	}

	if s.passphrase == nil {
		return "", false, ErrUnreadableToken
	}
	plain, err := cryptox.Open(s.keyFor(salt), value)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrUnreadableToken, err)
	}
	return string(plain), true, nil
}

// Clear drops every key of the profile.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if err := s.repo(s.db).Clear(ctx); err != nil {
		return err
	}
	s.forgetKey()
	return nil
}

// SavedAt reports when the current token was written.
func (s *SQLiteStore) SavedAt(ctx context.Context) (time.Time, bool, error) {
	raw, err := s.repo(s.db).Get(ctx, TokenSavedAtKey)
	if err != nil || raw == nil {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339, string(raw))
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse saved_at: %w", err)
	}
	return t, true, nil
}
