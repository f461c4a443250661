package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"rpicovid/internal/chrono"
	"rpicovid/internal/history"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

// SQLStore keeps the history as a JSON document in the single row of the
// tracker_state table.
type SQLStore struct {
	db   *sql.DB
	time chrono.TimeAPI
}

// NewSQLStore creates the schema if it does not exist yet.
func NewSQLStore(ctx context.Context, db *sql.DB, time chrono.TimeAPI) (SQLStore, error) {
	_, err := db.ExecContext(ctx, Schema)
	if err != nil {
		return SQLStore{}, fmt.Errorf("create schema: %w", err)
	}
	return SQLStore{db: db, time: time}, nil
}

func (s SQLStore) Load(ctx context.Context) (*history.History, error) {
	var state string
	err := s.db.QueryRowContext(ctx, "select state from tracker_state where id = 1").Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoState
	}
	if err != nil {
		return nil, err
	}

	h := history.New()
	err = json.Unmarshal([]byte(state), h)
	if err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if h.ByDate == nil {
		h.ByDate = map[history.Date]int{}
	}
	return h, nil
}

func (s SQLStore) Save(ctx context.Context, h *history.History) error {
	state, err := json.Marshal(h)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(
		ctx,
		`insert into tracker_state (id, state, updated_at) values (1, ?, ?)
		on conflict (id) do update set state = excluded.state, updated_at = excluded.updated_at`,
		string(state),
		s.time.Now().Unix(),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

type DBConfig struct {
	// Kind is either "sqlite" or "libsql".
	Kind      string `json:"kind"`
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

// OpenDB opens a local sqlite file or a remote libsql database.
func (config DBConfig) OpenDB() (*sql.DB, error) {
	switch config.Kind {
	case "sqlite":
		if config.File == "" {
			return nil, fmt.Errorf("sqlite store: a file was not specified")
		}
		return sql.Open("sqlite", config.File)
	case "libsql":
		if config.Url == "" {
			if config.File == "" {
				return nil, fmt.Errorf("libsql store: neither a url nor a file was specified")
			}
			return sql.Open("libsql", fmt.Sprintf("file:%s", config.File))
		}
		values := url.Values{}
		if config.AuthToken != "" {
			values.Add("authToken", config.AuthToken)
		}
		return sql.Open("libsql", config.Url+"?"+values.Encode())
	default:
		return nil, fmt.Errorf("unknown database kind %q", config.Kind)
	}
}
