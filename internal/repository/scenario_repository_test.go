package repository

import (
	"context"
	"errors"
	"testing"

	"dontpanic_backend/internal/model"
	"dontpanic_backend/internal/testutil"
	"dontpanic_backend/internal/util"
)

func TestScenarioSaveKeepsCachedStats(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	u := testutil.SeedUser(t, ctx, db, "ivy", model.Instructor)
	sc := testutil.SeedScenario(t, ctx, db, u.ID, "Original")
	repo := NewScenarioRepository(db)

	if err := repo.IncrementPlays(ctx, sc.ID); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := repo.UpdateAverage(ctx, sc.ID, 72.5); err != nil {
		t.Fatalf("update avg: %v", err)
	}

	// sc 中的统计字段仍为旧值，Save 不能覆盖
	sc.Title = "Renamed"
	sc.IsActive = false
	if err := repo.Save(ctx, sc); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := repo.FindByID(ctx, sc.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Title != "Renamed" || got.IsActive {
		t.Fatalf("editable fields not saved: %+v", got)
	}
	if got.TimesPlayed != 1 || got.AverageScore != 72.5 {
		t.Fatalf("stats overwritten: played=%d avg=%v", got.TimesPlayed, got.AverageScore)
	}
}

func TestScenarioDeleteCascades(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	u := testutil.SeedUser(t, ctx, db, "jack", model.Instructor)
	sc := testutil.SeedScenario(t, ctx, db, u.ID, "Doomed")
	testutil.SeedSession(t, ctx, db, u.ID, sc.ID, model.StatusCompleted, 70)
	repo := NewScenarioRepository(db)

	if err := repo.Delete(ctx, sc.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.FindByID(ctx, sc.ID); !errors.Is(err, util.ErrScenarioNotFound) {
		t.Fatalf("find after delete err = %v", err)
	}
	n, _ := NewSessionRepository(db).Count(ctx, SessionFilter{ScenarioID: sc.ID})
	if n != 0 {
		t.Fatalf("sessions left = %d", n)
	}
	if err := repo.Delete(ctx, sc.ID); !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestScenarioListFilters(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	u := testutil.SeedUser(t, ctx, db, "kim", model.Instructor)
	a := testutil.SeedScenario(t, ctx, db, u.ID, "A")
	b := testutil.SeedScenario(t, ctx, db, u.ID, "B")
	repo := NewScenarioRepository(db)

	b.IsActive = false
	if err := repo.Save(ctx, b); err != nil {
		t.Fatalf("save: %v", err)
	}

	all, _ := repo.List(ctx, ScenarioFilter{})
	active, _ := repo.List(ctx, ScenarioFilter{ActiveOnly: true})
	if len(all) != 2 || len(active) != 1 || active[0].ID != a.ID {
		t.Fatalf("all=%d active=%d", len(all), len(active))
	}
}
