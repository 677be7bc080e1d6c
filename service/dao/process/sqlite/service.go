package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hexsim/hexsim/model"
	"github.com/hexsim/hexsim/service/dao"
)

const schema = `
CREATE TABLE IF NOT EXISTS processes (
	id     TEXT PRIMARY KEY,
	player TEXT NOT NULL,
	state  TEXT NOT NULL,
	doc    BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS processes_player ON processes(player);
CREATE INDEX IF NOT EXISTS processes_state  ON processes(state);
`

// Service implements a sqlite-backed process store. The full record is kept
// as a JSON document; player and state are lifted into indexed columns so
// listings filter inside the database.
type Service struct {
	db *sql.DB
}

var _ dao.Service[string, model.Process] = (*Service)(nil)

// New opens (and if needed initialises) a sqlite store at the supplied DSN,
// e.g. "file:processes.db" or ":memory:".
func New(dsn string) (*Service, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	if _, err = db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialise sqlite schema: %w", err)
	}
	return &Service{db: db}, nil
}

func (s *Service) Save(ctx context.Context, p *model.Process) error {
	if p == nil {
		return dao.ErrNilEntity
	}
	if p.ID == "" {
		return dao.ErrInvalidID
	}
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal process: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO processes(id, player, state, doc) VALUES(?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET player=excluded.player, state=excluded.state, doc=excluded.doc`,
		p.ID, p.Player, string(p.State), doc)
	if err != nil {
		return fmt.Errorf("failed to save process %s: %w", p.ID, err)
	}
	return nil
}

func (s *Service) Load(ctx context.Context, id string) (*model.Process, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	var doc []byte
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM processes WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dao.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load process %s: %w", id, err)
	}
	var p model.Process
	if err = json.Unmarshal(doc, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal process %s: %w", id, err)
	}
	return &p, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM processes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete process %s: %w", id, err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return dao.ErrNotFound
	}
	return nil
}

func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*model.Process, error) {
	query := `SELECT doc FROM processes`
	var clauses []string
	var args []interface{}
	for _, parameter := range parameters {
		switch parameter.Name {
		case "Player":
			if player, ok := parameter.Value.(string); ok {
				clauses = append(clauses, `player = ?`)
				args = append(args, player)
			}
		case "State":
			switch actual := parameter.Value.(type) {
			case string:
				clauses = append(clauses, `state = ?`)
				args = append(args, actual)
			case []string:
				if len(actual) == 0 {
					continue
				}
				clause := `state IN (?`
				args = append(args, actual[0])
				for _, state := range actual[1:] {
					clause += `, ?`
					args = append(args, state)
				}
				clauses = append(clauses, clause+`)`)
			}
		}
	}
	for i, clause := range clauses {
		if i == 0 {
			query += ` WHERE ` + clause
		} else {
			query += ` AND ` + clause
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}
	defer rows.Close()

	var out []*model.Process
	for rows.Next() {
		var doc []byte
		if err = rows.Scan(&doc); err != nil {
			return nil, err
		}
		var p model.Process
		if err = json.Unmarshal(doc, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal process: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (s *Service) Close() error {
	return s.db.Close()
}
