package seed

import (
	"context"
	"strings"
	"testing"

	"newsboard/internal/auth"
	"newsboard/internal/database"
	"newsboard/internal/models"
	"newsboard/internal/validation"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openMemory(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(sqlite.Open(":memory:?_foreign_keys=on"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func count(t *testing.T, db *gorm.DB, model any, where ...any) int64 {
	t.Helper()
	var n int64
	q := db.Model(model)
	if len(where) > 0 {
		q = q.Where(where[0], where[1:]...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count %T: %v", model, err)
	}
	return n
}

func TestLoadPresets(t *testing.T) {
	const file = `
presets:
  - name: tiny
    users: 2
    posts: 3
    comments_per_post: 2
    reply_ratio: 0.5
    likes_per_post: 1
  - name: busy
    users: 50
    posts: 400
    comments_per_post: 12
    reply_ratio: 0.6
    likes_per_post: 20
`
	presets, err := LoadPresets(strings.NewReader(file))
	if err != nil {
		t.Fatalf("LoadPresets: %v", err)
	}
	if got := PresetNames(presets); len(got) != 2 || got[0] != "busy" || got[1] != "tiny" {
		t.Fatalf("unexpected names %v", got)
	}
	if presets["tiny"].CommentsPerPost != 2 {
		t.Fatalf("comments_per_post not decoded: %+v", presets["tiny"])
	}
}

func TestLoadPresets_Rejects(t *testing.T) {
	tests := map[string]string{
		"unknown field": "presets:\n  - name: x\n    users: 1\n    avatars: 3\n",
		"no users":      "presets:\n  - name: x\n    users: 0\n",
		"bad ratio":     "presets:\n  - name: x\n    users: 1\n    reply_ratio: 2\n",
		"duplicate":     "presets:\n  - name: x\n    users: 1\n  - name: x\n    users: 2\n",
	}
	for name, file := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadPresets(strings.NewReader(file)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestSeeder_Run(t *testing.T) {
	db := openMemory(t)
	s, err := NewSeeder(db, FactoryOptions{Seed: 42, HashCost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("NewSeeder: %v", err)
	}

	preset := Preset{Name: "test", Users: 4, Posts: 5, CommentsPerPost: 3, ReplyRatio: 0.5, LikesPerPost: 10}
	sum, err := s.Run(context.Background(), preset)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sum.Users != 4 || sum.Posts != 5 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if sum.Comments+sum.Replies != 15 {
		t.Fatalf("expected 15 comments, got %+v", sum)
	}
	// likes are capped by the number of distinct users
	if sum.Likes != 20 {
		t.Fatalf("expected 20 likes, got %d", sum.Likes)
	}
	if n := count(t, db, &models.Like{}); n != 20 {
		t.Fatalf("expected 20 like rows, got %d", n)
	}
	if n := count(t, db, &models.Comment{}, "parent_id IS NOT NULL"); n != int64(sum.Replies) {
		t.Fatalf("expected %d replies, got %d", sum.Replies, n)
	}

	var users []models.User
	if err := db.Find(&users).Error; err != nil {
		t.Fatalf("find users: %v", err)
	}
	hasher := &auth.BcryptHasher{Cost: bcrypt.MinCost}
	for _, u := range users {
		if err := validation.ValidateUsername(u.Username); err != nil {
			t.Errorf("seeded username %q invalid: %v", u.Username, err)
		}
		ok, err := hasher.Compare(u.Password, DefaultPassword)
		if err != nil || !ok {
			t.Errorf("user %s cannot log in with the default password", u.Username)
		}
	}

	var replies []models.Comment
	if err := db.Where("parent_id IS NOT NULL").Find(&replies).Error; err != nil {
		t.Fatalf("find replies: %v", err)
	}
	for _, r := range replies {
		var parent models.Comment
		if err := db.First(&parent, *r.ParentID).Error; err != nil {
			t.Fatalf("reply %d has no parent: %v", r.ID, err)
		}
		if parent.PostID != r.PostID {
			t.Errorf("reply %d is on post %d but its parent is on post %d", r.ID, r.PostID, parent.PostID)
		}
	}
}

func TestSeeder_ClearAll(t *testing.T) {
	db := openMemory(t)
	s, err := NewSeeder(db, FactoryOptions{Seed: 7, HashCost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("NewSeeder: %v", err)
	}
	ctx := context.Background()
	if _, err := s.Run(ctx, Preset{Name: "small", Users: 2, Posts: 2, CommentsPerPost: 2, ReplyRatio: 1, LikesPerPost: 2}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := s.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	for _, model := range []any{&models.User{}, &models.Post{}, &models.Comment{}, &models.Like{}} {
		if n := count(t, db, model); n != 0 {
			t.Errorf("%T: %d rows left", model, n)
		}
	}
}
