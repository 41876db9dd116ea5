package util

import (
	"dontpanic_backend/internal/model"
	"testing"
	"time"
)

func TestJWTRoundTrip(t *testing.T) {
	user := &model.User{Username: "tom", Role: model.Trainee}
	user.ID = 12

	token, err := GenerateJWT(user, "secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	claims, err := ParseJWT(token, "secret")
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if claims.UserID != 12 || claims.Role != model.Trainee || claims.Username != "tom" {
		t.Fatalf("claims = %+v", claims)
	}

	if _, err := ParseJWT(token, "other-secret"); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestJWTExpired(t *testing.T) {
	user := &model.User{Username: "tom", Role: model.Trainee}
	token, err := GenerateJWT(user, "secret", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	if _, err := ParseJWT(token, "secret"); err == nil {
		t.Fatalf("expected expiry error")
	}
}
