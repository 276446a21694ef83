package registry

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/HannahMarsh/simple-onion-routing/internal/api/structs"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// PostgresStore keeps descriptors in a single table keyed by node id.
type PostgresStore struct {
	db    *sql.DB
	table string
}

func OpenPostgres(ctx context.Context, dsn, table string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open postgres")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to reach postgres")
	}
	s := &PostgresStore{db: db, table: pq.QuoteIdentifier(table)}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		node_id    INTEGER PRIMARY KEY,
		pub_key    TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, s.table)
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return errors.Wrapf(err, "failed to create table %s", s.table)
	}
	return nil
}

func (s *PostgresStore) Register(ctx context.Context, relay structs.RelayDescriptor) error {
	q := fmt.Sprintf(`INSERT INTO %s (node_id, pub_key) VALUES ($1, $2) ON CONFLICT (node_id) DO NOTHING`, s.table)
	res, err := s.db.ExecContext(ctx, q, relay.ID, relay.PublicKey)
	if err != nil {
		return errors.Wrapf(err, "failed to insert node %d", relay.ID)
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "failed to read rows affected")
	} else if n == 1 {
		return nil
	}

	var existing string
	q = fmt.Sprintf(`SELECT pub_key FROM %s WHERE node_id = $1`, s.table)
	if err := s.db.QueryRowContext(ctx, q, relay.ID).Scan(&existing); err != nil {
		return errors.Wrapf(err, "failed to load node %d", relay.ID)
	}
	if existing != relay.PublicKey {
		return errors.Wrapf(ErrAlreadyRegistered, "node %d", relay.ID)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]structs.RelayDescriptor, error) {
	q := fmt.Sprintf(`SELECT node_id, pub_key FROM %s ORDER BY node_id`, s.table)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list nodes")
	}
	defer rows.Close()

	relays := make([]structs.RelayDescriptor, 0)
	for rows.Next() {
		var r structs.RelayDescriptor
		if err := rows.Scan(&r.ID, &r.PublicKey); err != nil {
			return nil, errors.Wrap(err, "failed to scan node")
		}
		relays = append(relays, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate nodes")
	}
	return relays, nil
}

// Reset empties the table.
func (s *PostgresStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`TRUNCATE %s`, s.table)); err != nil {
		return errors.Wrapf(err, "failed to truncate %s", s.table)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
