package auditstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/labrecipe/internal/ctxlog"
	"github.com/specialistvlad/labrecipe/internal/recipe"
)

// ErrNotFound is returned when a bake id does not exist.
var ErrNotFound = errors.New("bake not found")

// Store records baked recipes.
type Store struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
}

// Bake is one recorded bake.
type Bake struct {
	ID        int64
	Protocol  string
	BakedAt   time.Time
	StepCount int
}

// StepRecord is one recorded step.
type StepRecord struct {
	Index        int
	Operator     string
	Stage        string
	Instructions string
	// Substances are the names of the substances the step touched.
	Substances []string
	// Trash maps substance names to the amount removed from the system, in
	// storage units.
	Trash map[string]float64
}

// Open connects to dsn and creates the tables if needed.
func Open(ctx context.Context, dsn string) (*Store, error) {
	logger := ctxlog.FromContext(ctx)
	d, source, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(d.driver, source)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.name, err)
	}
	if d.name == sqliteDialect.name {
		// ":memory:" databases live and die with their connection.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.name, err)
	}
	for _, stmt := range d.schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create audit tables: %w", err)
		}
	}
	logger.Debug("Audit store opened.", "dialect", d.name)
	return &Store{db: db, dialect: d, now: time.Now}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record writes a baked recipe and returns the id of the new bake. The
// recipe must be baked.
func (s *Store) Record(ctx context.Context, protocol string, r *recipe.Recipe) (id int64, retErr error) {
	if !r.Locked() {
		return 0, fmt.Errorf("%w: only baked recipes can be recorded", recipe.ErrState)
	}
	steps := r.Steps()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin audit transaction: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	bakedAt := s.now().UTC().Format(time.RFC3339Nano)
	err = tx.QueryRowContext(ctx,
		s.dialect.rebind(`INSERT INTO bakes (protocol, baked_at, step_count) VALUES (?, ?, ?) RETURNING id`),
		protocol, bakedAt, len(steps),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert bake: %w", err)
	}

	insert := s.dialect.rebind(`INSERT INTO bake_steps
		(bake_id, idx, operator, stage, instructions, substances, trash)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	for _, step := range steps {
		substances := make([]string, len(step.SubstancesUsed))
		for i, sub := range step.SubstancesUsed {
			substances[i] = sub.Name
		}
		trash := make(map[string]float64, len(step.Trash))
		for sub, amount := range step.Trash {
			trash[sub.Name] = amount
		}
		substancesJSON, err := json.Marshal(substances)
		if err != nil {
			return 0, fmt.Errorf("encode substances of step %d: %w", step.Index(), err)
		}
		trashJSON, err := json.Marshal(trash)
		if err != nil {
			return 0, fmt.Errorf("encode trash of step %d: %w", step.Index(), err)
		}
		_, err = tx.ExecContext(ctx, insert,
			id, step.Index(), step.Operator().String(), r.StageOf(step.Index()),
			step.Instructions, string(substancesJSON), string(trashJSON))
		if err != nil {
			return 0, fmt.Errorf("insert step %d: %w", step.Index(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit audit transaction: %w", err)
	}
	ctxlog.FromContext(ctx).Info("🗂️ Bake recorded.", "bake_id", id, "protocol", protocol, "steps", len(steps))
	return id, nil
}

// Bakes lists every recorded bake, oldest first.
func (s *Store) Bakes(ctx context.Context) ([]Bake, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, protocol, baked_at, step_count FROM bakes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select bakes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Bake
	for rows.Next() {
		var (
			b       Bake
			bakedAt string
		)
		if err := rows.Scan(&b.ID, &b.Protocol, &bakedAt, &b.StepCount); err != nil {
			return nil, fmt.Errorf("scan bake: %w", err)
		}
		if b.BakedAt, err = time.Parse(time.RFC3339Nano, bakedAt); err != nil {
			return nil, fmt.Errorf("decode baked_at of bake %d: %w", b.ID, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Steps returns the steps of bake id in order.
func (s *Store) Steps(ctx context.Context, id int64) ([]StepRecord, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT COUNT(*) FROM bakes WHERE id = ?`), id).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("select bake %d: %w", id, err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(`SELECT idx, operator, stage, instructions, substances, trash
		FROM bake_steps WHERE bake_id = ? ORDER BY idx`), id)
	if err != nil {
		return nil, fmt.Errorf("select steps of bake %d: %w", id, err)
	}
	defer func() { _ = rows.Close() }()

	var out []StepRecord
	for rows.Next() {
		var (
			rec               StepRecord
			substances, trash []byte
		)
		if err := rows.Scan(&rec.Index, &rec.Operator, &rec.Stage, &rec.Instructions, &substances, &trash); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		if err := json.Unmarshal(substances, &rec.Substances); err != nil {
			return nil, fmt.Errorf("decode substances of step %d: %w", rec.Index, err)
		}
		if err := json.Unmarshal(trash, &rec.Trash); err != nil {
			return nil, fmt.Errorf("decode trash of step %d: %w", rec.Index, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
