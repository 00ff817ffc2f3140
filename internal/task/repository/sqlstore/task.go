package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"agent-gateway/internal/model"
)

type taskRow struct {
	bun.BaseModel `bun:"table:task_records,alias:tr"`

	TaskID         string     `bun:"task_id,pk"`
	InstallationID string     `bun:"installation_id,notnull"`
	Provider       string     `bun:"provider,notnull"`
	InputMessage   string     `bun:"input_message,notnull"`
	Priority       int        `bun:"priority,notnull"`
	Status         string     `bun:"status,notnull"`
	StartedAt      *time.Time `bun:"started_at"`
	CompletedAt    *time.Time `bun:"completed_at"`
	Output         string     `bun:"output"`
	Error          string     `bun:"error"`
	TokensUsed     int        `bun:"tokens_used"`
	CostUSD        float64    `bun:"cost_usd"`
	CreatedAt      time.Time  `bun:"created_at,notnull"`
	UpdatedAt      time.Time  `bun:"updated_at,notnull"`
}

// Repository is the bun-backed TaskRepository.
type Repository struct {
	db *bun.DB
}

func New(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// CreateSchema creates the task table if missing.
func (r *Repository) CreateSchema(ctx context.Context) error {
	_, err := r.db.NewCreateTable().
		Model((*taskRow)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (r *Repository) Create(ctx context.Context, rec *model.TaskRecord) error {
	_, err := r.db.NewInsert().Model(toRow(rec)).Exec(ctx)
	return err
}

func (r *Repository) Get(ctx context.Context, taskID string) (*model.TaskRecord, error) {
	var row taskRow
	err := r.db.NewSelect().Model(&row).Where("task_id = ?", taskID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return fromRow(&row), nil
}

func (r *Repository) Update(ctx context.Context, rec *model.TaskRecord) error {
	row := toRow(rec)
	row.UpdatedAt = time.Now().UTC()

	res, err := r.db.NewUpdate().Model(row).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("task %s not found", rec.TaskID)
	}
	return nil
}

func toRow(rec *model.TaskRecord) *taskRow {
	return &taskRow{
		TaskID:         rec.TaskID,
		InstallationID: rec.InstallationID,
		Provider:       rec.Provider,
		InputMessage:   rec.InputMessage,
		Priority:       int(rec.Priority),
		Status:         string(rec.Status),
		StartedAt:      rec.StartedAt,
		CompletedAt:    rec.CompletedAt,
		Output:         rec.Output,
		Error:          rec.Error,
		TokensUsed:     rec.TokensUsed,
		CostUSD:        rec.CostUSD,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}
}

func fromRow(row *taskRow) *model.TaskRecord {
	return &model.TaskRecord{
		TaskID:         row.TaskID,
		InstallationID: row.InstallationID,
		Provider:       row.Provider,
		InputMessage:   row.InputMessage,
		Priority:       model.TaskPriority(row.Priority),
		Status:         model.TaskStatus(row.Status),
		StartedAt:      row.StartedAt,
		CompletedAt:    row.CompletedAt,
		Output:         row.Output,
		Error:          row.Error,
		TokensUsed:     row.TokensUsed,
		CostUSD:        row.CostUSD,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}
