package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"Trestle/internal/calc/model"
)

// ErrNotFound is returned when a design does not exist or belongs to
// another user.
var ErrNotFound = errors.New("not found")

type Repository interface {
	CreateUser(ctx context.Context, login, email, password string) (int, error)
	GetBylogin(ctx context.Context, login string) (int, string, error)

	ListDesigns(ctx context.Context, userID int) ([]DesignInfo, error)
	CreateDesign(ctx context.Context, userID int, d model.Design) (int, error)
	GetDesign(ctx context.Context, userID, id int) (model.Design, error)
	UpdateDesign(ctx context.Context, userID, id int, d model.Design) error

	SaveAnalysis(ctx context.Context, designID int, a StoredAnalysis) error
	GetAnalysis(ctx context.Context, designID int) (StoredAnalysis, error)
}

// DesignInfo is a design listing entry.
type DesignInfo struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Joints    int       `json:"joints"`
	Members   int       `json:"members"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserDB(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) CreateUser(ctx context.Context, login, email, password string) (int, error) {
	var id int
	query := "INSERT INTO users (login, email, password) VALUES ($1, $2, $3) RETURNING id"
	err := r.db.QueryRowContext(ctx, query, login, email, password).Scan(&id)
	return id, err
}

func (r *PostgresUserRepository) GetBylogin(ctx context.Context, login string) (int, string, error) {
	var id int
	var hash string

	query := "SELECT id, password FROM users WHERE login=$1"

	err := r.db.QueryRowContext(ctx, query, login).Scan(&id, &hash)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, "", nil
		}
		return 0, "", err
	}
	return id, hash, nil
}

func (r *PostgresUserRepository) ListDesigns(ctx context.Context, userID int) ([]DesignInfo, error) {
	query := "SELECT id, name, body, updated_at FROM designs WHERE user_id=$1 ORDER BY updated_at DESC"
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []DesignInfo{}
	for rows.Next() {
		var info DesignInfo
		var body []byte
		if err := rows.Scan(&info.ID, &info.Name, &body, &info.UpdatedAt); err != nil {
			return nil, err
		}
		var d model.Design
		if err := json.Unmarshal(body, &d); err != nil {
			return nil, fmt.Errorf("design %d: %w", info.ID, err)
		}
		info.Joints, info.Members = len(d.Joints), len(d.Members)
		out = append(out, info)
	}
	return out, rows.Err()
}

func (r *PostgresUserRepository) CreateDesign(ctx context.Context, userID int, d model.Design) (int, error) {
	body, err := json.Marshal(d)
	if err != nil {
		return 0, err
	}
	var id int
	query := "INSERT INTO designs (user_id, name, body) VALUES ($1, $2, $3) RETURNING id"
	err = r.db.QueryRowContext(ctx, query, userID, d.Name, body).Scan(&id)
	return id, err
}

func (r *PostgresUserRepository) GetDesign(ctx context.Context, userID, id int) (model.Design, error) {
	var body []byte
	query := "SELECT body FROM designs WHERE id=$1 AND user_id=$2"
	if err := r.db.QueryRowContext(ctx, query, id, userID).Scan(&body); err != nil {
		if err == sql.ErrNoRows {
			return model.Design{}, ErrNotFound
		}
		return model.Design{}, err
	}
	var d model.Design
	if err := json.Unmarshal(body, &d); err != nil {
		return model.Design{}, fmt.Errorf("design %d: %w", id, err)
	}
	return d, nil
}

// UpdateDesign replaces the stored design and drops its stored analysis.
func (r *PostgresUserRepository) UpdateDesign(ctx context.Context, userID, id int, d model.Design) error {
	body, err := json.Marshal(d)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE designs SET name=$1, body=$2, updated_at=now() WHERE id=$3 AND user_id=$4",
		d.Name, body, id, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM analyses WHERE design_id=$1", id); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PostgresUserRepository) SaveAnalysis(ctx context.Context, designID int, a StoredAnalysis) error {
	query := `INSERT INTO analyses (design_id, version, status, passing, member_ids, compression, tension)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (design_id) DO UPDATE SET version=$2, status=$3, passing=$4,
			member_ids=$5, compression=$6, tension=$7, created_at=now()`
	ids := make([]int64, len(a.Members))
	comp := make([]string, len(a.Members))
	tens := make([]string, len(a.Members))
	for i, m := range a.Members {
		ids[i], comp[i], tens[i] = int64(m.ID), m.Compression, m.Tension
	}
	_, err := r.db.ExecContext(ctx, query, designID, int64(a.Version), a.Status, a.Passing,
		pq.Array(ids), pq.Array(comp), pq.Array(tens))
	return err
}

func (r *PostgresUserRepository) GetAnalysis(ctx context.Context, designID int) (StoredAnalysis, error) {
	var a StoredAnalysis
	var version int64
	var ids []int64
	var comp, tens []string
	query := "SELECT version, status, passing, member_ids, compression, tension FROM analyses WHERE design_id=$1"
	err := r.db.QueryRowContext(ctx, query, designID).Scan(&version, &a.Status, &a.Passing,
		pq.Array(&ids), pq.Array(&comp), pq.Array(&tens))
	if err != nil {
		if err == sql.ErrNoRows {
			return StoredAnalysis{}, ErrNotFound
		}
		return StoredAnalysis{}, err
	}
	if len(comp) != len(ids) || len(tens) != len(ids) {
		return StoredAnalysis{}, fmt.Errorf("analysis of design %d: ratio columns out of step", designID)
	}
	a.Version = uint64(version)
	a.Provisional = true
	a.Members = make([]StoredRatio, len(ids))
	for i := range ids {
		a.Members[i] = StoredRatio{ID: int(ids[i]), Compression: comp[i], Tension: tens[i]}
	}
	return a, nil
}
