// Package seed provides helpers to create demo data for development
// databases and tests.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"newsboard/internal/auth"
	"newsboard/internal/models"
	"newsboard/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPassword is the password of every seeded user.
const DefaultPassword = "password123"

// FactoryOptions tunes generated data.
type FactoryOptions struct {
	// Seed makes output reproducible; zero picks a random seed.
	Seed int64
	// MaxDays spreads post timestamps over this many past days.
	MaxDays int
	// HashCost is the bcrypt cost for the shared password.
	HashCost int
}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db    *gorm.DB
	opts  FactoryOptions
	faker *gofakeit.Faker
	hash  string
	now   time.Time
}

// NewFactory creates a Factory bound to db. The shared password is hashed
// once up front.
func NewFactory(db *gorm.DB, opts FactoryOptions) (*Factory, error) {
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}
	if opts.HashCost == 0 {
		opts.HashCost = bcrypt.DefaultCost
	}
	hasher := &auth.BcryptHasher{Cost: opts.HashCost}
	hash, err := hasher.Hash(DefaultPassword)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}
	return &Factory{
		db:    db,
		opts:  opts,
		faker: gofakeit.New(opts.Seed),
		hash:  hash,
		now:   time.Now().UTC(),
	}, nil
}

// BuildUser returns an unsaved user with a valid, likely unique username.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	user := &models.User{
		Username: f.username(),
		Password: f.hash,
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

func (f *Factory) username() string {
	var b strings.Builder
	for _, r := range f.faker.Username() {
		if r < 128 && (r == '_' || r == '-' || ('0' <= r && r <= '9') || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')) {
			b.WriteRune(r)
		}
	}
	base := strings.Trim(b.String(), "_-")
	if len(base) > validation.MaxUsernameLength-5 {
		base = base[:validation.MaxUsernameLength-5]
	}
	if base == "" {
		base = "user"
	}
	return fmt.Sprintf("%s%d", base, f.faker.Number(1000, 99999))
}

// CreateUser builds and persists a user.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)
	if err := f.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost returns an unsaved post by user. About half are link posts and
// timestamps spread over the configured window.
func (f *Factory) BuildPost(user *models.User, overrides ...func(*models.Post)) *models.Post {
	post := &models.Post{
		Title:  strings.TrimSuffix(f.faker.Sentence(f.faker.Number(4, 10)), "."),
		UserID: user.ID,
	}
	if f.faker.Bool() {
		url := f.faker.URL()
		post.URL = &url
	}
	if post.URL == nil || f.faker.Bool() {
		content := f.faker.Paragraph(1, 3, 12, "\n\n")
		post.Content = &content
	}
	post.CreatedAt = f.pastTime()
	post.UpdatedAt = post.CreatedAt

	for _, override := range overrides {
		override(post)
	}
	return post
}

func (f *Factory) pastTime() time.Time {
	back := time.Duration(f.faker.Number(0, f.opts.MaxDays*24*60)) * time.Minute
	return f.now.Add(-back)
}

// CreatePost builds and persists a post.
func (f *Factory) CreatePost(ctx context.Context, user *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(user, overrides...)
	if err := f.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreateComment persists a comment on post, replying to parent when given.
func (f *Factory) CreateComment(ctx context.Context, user *models.User, post *models.Post, parent *models.Comment) (*models.Comment, error) {
	after := post.CreatedAt
	comment := &models.Comment{
		Content: f.faker.Sentence(f.faker.Number(3, 25)),
		UserID:  user.ID,
		PostID:  post.ID,
	}
	if parent != nil {
		comment.ParentID = &parent.ID
		after = parent.CreatedAt
	}
	comment.CreatedAt = after.Add(time.Duration(f.faker.Number(1, 600)) * time.Minute)
	comment.UpdatedAt = comment.CreatedAt

	if err := f.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateLike records that user likes post. Existing likes are left alone.
func (f *Factory) CreateLike(ctx context.Context, user *models.User, post *models.Post) error {
	like := &models.Like{UserID: user.ID, PostID: post.ID}
	return f.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(like).Error
}
