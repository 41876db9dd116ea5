package service

import (
	"errors"
	"testing"

	"dontpanic_backend/internal/model"
	"dontpanic_backend/internal/util"
)

func TestRequireRole(t *testing.T) {
	trainee := &model.User{BaseModel: model.BaseModel{ID: 1}, Role: model.Trainee, IsActive: true}
	instructor := &model.User{BaseModel: model.BaseModel{ID: 2}, Role: model.Instructor, IsActive: true}
	disabled := &model.User{BaseModel: model.BaseModel{ID: 3}, Role: model.Instructor, IsActive: false}

	tests := []struct {
		name    string
		user    *model.User
		roles   []model.UserRole
		allowed bool
	}{
		{"instructor on instructor op", instructor, []model.UserRole{model.Instructor}, true},
		{"trainee on instructor op", trainee, []model.UserRole{model.Instructor}, false},
		{"trainee on shared op", trainee, []model.UserRole{model.Trainee, model.Instructor}, true},
		{"disabled instructor", disabled, []model.UserRole{model.Instructor}, false},
		{"anonymous", nil, []model.UserRole{model.Trainee}, false},
		{"no roles allowed", instructor, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireRole(tt.user, "test.op", tt.roles...)
			if tt.allowed && err != nil {
				t.Fatalf("unexpected denial: %v", err)
			}
			if !tt.allowed && !errors.Is(err, util.ErrAccessDenied) {
				t.Fatalf("err = %v, want access denied", err)
			}
		})
	}
}

func TestRequireOwner(t *testing.T) {
	owner := &model.User{BaseModel: model.BaseModel{ID: 7}, Role: model.Trainee, IsActive: true}
	other := &model.User{BaseModel: model.BaseModel{ID: 8}, Role: model.Trainee, IsActive: true}
	instructor := &model.User{BaseModel: model.BaseModel{ID: 9}, Role: model.Instructor, IsActive: true}
	session := &model.TrainingSession{UserID: 7}

	if err := RequireOwner(owner, "op", session); err != nil {
		t.Fatalf("owner denied: %v", err)
	}
	if err := RequireOwner(other, "op", session); !errors.Is(err, util.ErrAccessDenied) {
		t.Fatalf("other err = %v", err)
	}
	// 讲师可以查看，但不能代替学员操作
	if err := RequireOwner(instructor, "op", session); !errors.Is(err, util.ErrAccessDenied) {
		t.Fatalf("instructor mutate err = %v", err)
	}
	if err := RequireOwnerOrInstructor(instructor, "op", session); err != nil {
		t.Fatalf("instructor view denied: %v", err)
	}
	if err := RequireOwnerOrInstructor(other, "op", session); !errors.Is(err, util.ErrAccessDenied) {
		t.Fatalf("other view err = %v", err)
	}

	owner.IsActive = false
	if err := RequireOwner(owner, "op", session); !errors.Is(err, util.ErrAccessDenied) {
		t.Fatalf("disabled owner err = %v", err)
	}
}
