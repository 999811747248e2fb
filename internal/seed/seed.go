package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"newsboard/internal/middleware"
	"newsboard/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Preset describes how much data a seeding run creates.
type Preset struct {
	Name            string  `yaml:"name"`
	Users           int     `yaml:"users"`
	Posts           int     `yaml:"posts"`
	CommentsPerPost int     `yaml:"comments_per_post"`
	ReplyRatio      float64 `yaml:"reply_ratio"`
	LikesPerPost    int     `yaml:"likes_per_post"`
}

// DefaultPreset is used when no preset file is given.
var DefaultPreset = Preset{
	Name:            "default",
	Users:           20,
	Posts:           60,
	CommentsPerPost: 4,
	ReplyRatio:      0.4,
	LikesPerPost:    5,
}

// Validate checks that the preset can be applied.
func (p Preset) Validate() error {
	switch {
	case p.Name == "":
		return errors.New("preset name is required")
	case p.Users < 1:
		return fmt.Errorf("preset %s: users must be at least 1", p.Name)
	case p.Posts < 0 || p.CommentsPerPost < 0 || p.LikesPerPost < 0:
		return fmt.Errorf("preset %s: counts must not be negative", p.Name)
	case p.ReplyRatio < 0 || p.ReplyRatio > 1:
		return fmt.Errorf("preset %s: reply_ratio must be between 0 and 1", p.Name)
	}
	return nil
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// LoadPresets decodes a YAML preset file keyed by preset name.
func LoadPresets(r io.Reader) (map[string]Preset, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file presetFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode presets: %w", err)
	}

	presets := make(map[string]Preset, len(file.Presets))
	for _, p := range file.Presets {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := presets[p.Name]; dup {
			return nil, fmt.Errorf("duplicate preset %s", p.Name)
		}
		presets[p.Name] = p
	}
	return presets, nil
}

// PresetNames lists preset names in order.
func PresetNames(presets map[string]Preset) []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Summary counts what a run created.
type Summary struct {
	Users    int
	Posts    int
	Comments int
	Replies  int
	Likes    int
}

// Seeder applies presets to a database.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

// NewSeeder creates a Seeder bound to db.
func NewSeeder(db *gorm.DB, opts FactoryOptions) (*Seeder, error) {
	factory, err := NewFactory(db, opts)
	if err != nil {
		return nil, err
	}
	return &Seeder{db: db, factory: factory}, nil
}

// ClearAll removes every board row, dependents first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	db := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []any{&models.Like{}, &models.Comment{}, &models.Post{}, &models.User{}} {
		if err := db.Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	middleware.Logger.InfoContext(ctx, "cleared board data")
	return nil
}

// Run creates the users, posts, comments and likes described by p.
func (s *Seeder) Run(ctx context.Context, p Preset) (Summary, error) {
	var sum Summary
	if err := p.Validate(); err != nil {
		return sum, err
	}
	f := s.factory

	users := make([]*models.User, 0, p.Users)
	for range p.Users {
		user, err := f.CreateUser(ctx)
		if err != nil {
			return sum, fmt.Errorf("create user: %w", err)
		}
		users = append(users, user)
	}
	sum.Users = len(users)

	for range p.Posts {
		author := users[f.faker.Number(0, len(users)-1)]
		post, err := f.CreatePost(ctx, author)
		if err != nil {
			return sum, fmt.Errorf("create post: %w", err)
		}
		sum.Posts++

		var thread []*models.Comment
		for range p.CommentsPerPost {
			var parent *models.Comment
			if len(thread) > 0 && f.faker.Float64Range(0, 1) < p.ReplyRatio {
				parent = thread[f.faker.Number(0, len(thread)-1)]
			}
			commenter := users[f.faker.Number(0, len(users)-1)]
			comment, err := f.CreateComment(ctx, commenter, post, parent)
			if err != nil {
				return sum, fmt.Errorf("create comment: %w", err)
			}
			thread = append(thread, comment)
			if parent != nil {
				sum.Replies++
			} else {
				sum.Comments++
			}
		}

		// consecutive users from a random start keeps likers distinct
		likes := min(p.LikesPerPost, len(users))
		start := f.faker.Number(0, len(users)-1)
		for i := range likes {
			if err := f.CreateLike(ctx, users[(start+i)%len(users)], post); err != nil {
				return sum, fmt.Errorf("create like: %w", err)
			}
			sum.Likes++
		}
	}

	middleware.Logger.InfoContext(ctx, "seeded board",
		"preset", p.Name,
		"users", sum.Users,
		"posts", sum.Posts,
		"comments", sum.Comments,
		"replies", sum.Replies,
		"likes", sum.Likes,
	)
	return sum, nil
}
