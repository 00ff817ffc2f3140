package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"agent-gateway/internal/model"
)

// installationRow is the persisted credential record. Scopes and metadata are
// stored as JSON strings so the schema works on both sqlite and postgres.
type installationRow struct {
	bun.BaseModel `bun:"table:installations,alias:inst"`

	ID               string     `bun:"id,pk"`
	Platform         string     `bun:"platform,notnull"`
	OrganizationID   string     `bun:"organization_id,notnull"`
	OrganizationName string     `bun:"organization_name"`
	AccessToken      string     `bun:"access_token,notnull"`
	RefreshToken     string     `bun:"refresh_token"`
	TokenExpiresAt   *time.Time `bun:"token_expires_at"`
	Scopes           string     `bun:"scopes"`
	WebhookSecret    string     `bun:"webhook_secret,notnull"`
	InstalledBy      string     `bun:"installed_by"`
	Metadata         string     `bun:"metadata"`
	IsActive         bool       `bun:"is_active,notnull"`
	CreatedAt        time.Time  `bun:"created_at,notnull"`
	UpdatedAt        time.Time  `bun:"updated_at,notnull"`
}

// Repository is the bun-backed InstallationRepository.
type Repository struct {
	db *bun.DB
}

func New(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// CreateSchema creates the installations table if missing.
func (r *Repository) CreateSchema(ctx context.Context) error {
	_, err := r.db.NewCreateTable().
		Model((*installationRow)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (r *Repository) Create(ctx context.Context, inst *model.Installation) error {
	row, err := toRow(inst)
	if err != nil {
		return err
	}
	_, err = r.db.NewInsert().Model(row).Exec(ctx)
	return err
}

func (r *Repository) GetByID(ctx context.Context, id string) (*model.Installation, error) {
	var row installationRow
	err := r.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return fromRow(&row)
}

func (r *Repository) GetActiveByOrg(ctx context.Context, platform model.Platform, organizationID string) (*model.Installation, error) {
	var row installationRow
	err := r.db.NewSelect().
		Model(&row).
		Where("platform = ? AND organization_id = ? AND is_active = ?", string(platform), organizationID, true).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return fromRow(&row)
}

func (r *Repository) Update(ctx context.Context, inst *model.Installation) error {
	row, err := toRow(inst)
	if err != nil {
		return err
	}
	row.UpdatedAt = time.Now().UTC()

	res, err := r.db.NewUpdate().Model(row).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("installation %s not found", inst.ID)
	}
	return nil
}

func (r *Repository) ListActive(ctx context.Context, platform model.Platform) ([]*model.Installation, error) {
	var rows []installationRow
	q := r.db.NewSelect().Model(&rows).Where("is_active = ?", true)
	if platform != "" {
		q = q.Where("platform = ?", string(platform))
	}
	if err := q.OrderExpr("created_at ASC").Scan(ctx); err != nil {
		return nil, err
	}

	out := make([]*model.Installation, 0, len(rows))
	for i := range rows {
		inst, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

func toRow(inst *model.Installation) (*installationRow, error) {
	metadata := ""
	if len(inst.Metadata) > 0 {
		raw, err := json.Marshal(inst.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal metadata: %w", err)
		}
		metadata = string(raw)
	}

	return &installationRow{
		ID:               inst.ID,
		Platform:         string(inst.Platform),
		OrganizationID:   inst.OrganizationID,
		OrganizationName: inst.OrganizationName,
		AccessToken:      inst.AccessToken,
		RefreshToken:     inst.RefreshToken,
		TokenExpiresAt:   inst.TokenExpiresAt,
		Scopes:           strings.Join(inst.Scopes, ","),
		WebhookSecret:    inst.WebhookSecret,
		InstalledBy:      inst.InstalledBy,
		Metadata:         metadata,
		IsActive:         inst.IsActive,
		CreatedAt:        inst.CreatedAt,
		UpdatedAt:        inst.UpdatedAt,
	}, nil
}

func fromRow(row *installationRow) (*model.Installation, error) {
	var metadata map[string]string
	if row.Metadata != "" {
		if err := json.Unmarshal([]byte(row.Metadata), &metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}

	var scopes []string
	if row.Scopes != "" {
		scopes = strings.Split(row.Scopes, ",")
	}

	return &model.Installation{
		ID:               row.ID,
		Platform:         model.Platform(row.Platform),
		OrganizationID:   row.OrganizationID,
		OrganizationName: row.OrganizationName,
		AccessToken:      row.AccessToken,
		RefreshToken:     row.RefreshToken,
		TokenExpiresAt:   row.TokenExpiresAt,
		Scopes:           scopes,
		WebhookSecret:    row.WebhookSecret,
		InstalledBy:      row.InstalledBy,
		Metadata:         metadata,
		IsActive:         row.IsActive,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}, nil
}
