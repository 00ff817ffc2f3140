package sqlstore_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"agent-gateway/internal/model"
	"agent-gateway/internal/token/repository/sqlstore"
)

func newSQLiteRepo(t *testing.T) *sqlstore.Repository {
	t.Helper()

	dsn := fmt.Sprintf("file:installations-test-%d?mode=memory&cache=shared", time.Now().UnixNano())
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	db := bun.NewDB(sqlDB, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	repo := sqlstore.New(db)
	if err := repo.CreateSchema(context.Background()); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return repo
}

func installation(id, org string) *model.Installation {
	now := time.Now().UTC()
	return &model.Installation{
		ID:             id,
		Platform:       model.PlatformGitHub,
		OrganizationID: org,
		AccessToken:    "tok-" + id,
		WebhookSecret:  "whsec-" + id,
		Scopes:         []string{"repo", "read:org"},
		Metadata:       map[string]string{"install_source": "marketplace"},
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestSQLInstallationRoundTrip(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	if err := repo.Create(ctx, installation("inst-1", "acme")); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetByID(ctx, "inst-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected installation")
	}
	if got.AccessToken != "tok-inst-1" {
		t.Errorf("access token = %q", got.AccessToken)
	}
	if len(got.Scopes) != 2 || got.Scopes[0] != "repo" {
		t.Errorf("scopes = %v", got.Scopes)
	}
	if got.Metadata["install_source"] != "marketplace" {
		t.Errorf("metadata = %v", got.Metadata)
	}
}

func TestSQLInstallationActiveLookup(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	inst := installation("inst-1", "acme")
	if err := repo.Create(ctx, inst); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetActiveByOrg(ctx, model.PlatformGitHub, "acme")
	if err != nil {
		t.Fatalf("active lookup: %v", err)
	}
	if got == nil || got.ID != "inst-1" {
		t.Fatalf("got %+v", got)
	}

	// Deactivation hides the row from active lookups but not GetByID.
	inst.IsActive = false
	if err := repo.Update(ctx, inst); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err = repo.GetActiveByOrg(ctx, model.PlatformGitHub, "acme")
	if err != nil {
		t.Fatalf("active lookup: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil after deactivation, got %+v", got)
	}

	byID, err := repo.GetByID(ctx, "inst-1")
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if byID == nil || byID.IsActive {
		t.Errorf("expected inactive row, got %+v", byID)
	}
}

func TestSQLInstallationListActive(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	github := installation("inst-1", "acme")
	slack := installation("inst-2", "acme")
	slack.Platform = model.PlatformSlack
	inactive := installation("inst-3", "umbrella")
	inactive.IsActive = false

	for _, inst := range []*model.Installation{github, slack, inactive} {
		if err := repo.Create(ctx, inst); err != nil {
			t.Fatalf("create %s: %v", inst.ID, err)
		}
	}

	all, err := repo.ListActive(ctx, "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("list all = %d rows, want 2", len(all))
	}

	onlySlack, err := repo.ListActive(ctx, model.PlatformSlack)
	if err != nil {
		t.Fatalf("list slack: %v", err)
	}
	if len(onlySlack) != 1 || onlySlack[0].ID != "inst-2" {
		t.Fatalf("list slack = %+v", onlySlack)
	}
}

func TestSQLInstallationUpdateMissing(t *testing.T) {
	repo := newSQLiteRepo(t)

	if err := repo.Update(context.Background(), installation("ghost", "acme")); err == nil {
		t.Error("expected error updating missing row")
	}
}
