package repository

import (
	"context"
	"errors"
	"testing"

	"dontpanic_backend/internal/model"
	"dontpanic_backend/internal/testutil"
	"dontpanic_backend/internal/util"
)

func TestUserCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := NewUserRepository(db)

	u := &model.User{Username: "zoe", Email: "zoe@example.com", Password: "x", Role: model.Trainee, IsActive: true}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := &model.User{Username: "zoe", Email: "other@example.com", Password: "x", Role: model.Trainee, IsActive: true}
	if err := repo.Create(ctx, dup); !errors.Is(err, util.ErrConflict) {
		t.Fatalf("duplicate err = %v", err)
	}
}

func TestUserSetActive(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	u := testutil.SeedUser(t, ctx, db, "yan", model.Trainee)
	repo := NewUserRepository(db)

	if err := repo.SetActive(ctx, u.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	// 值未变化时也应成功
	if err := repo.SetActive(ctx, u.ID, false); err != nil {
		t.Fatalf("deactivate again: %v", err)
	}
	got, _ := repo.FindByID(ctx, u.ID)
	if got.IsActive {
		t.Fatalf("user still active")
	}
	if err := repo.SetActive(ctx, 999, true); !errors.Is(err, util.ErrUserNotFound) {
		t.Fatalf("missing user err = %v", err)
	}
}
