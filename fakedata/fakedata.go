// Package fakedata seeds a repository with generated social content.
// Intended for development and demos: everything goes through the regular
// publish path, so the generated history replays exactly like
// operator-authored commits.
package fakedata

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	petname "github.com/dustinkirkland/golang-petname"

	"github.com/gitsocial/gitsocial/social"
	"github.com/gitsocial/gitsocial/syntax"
)

// Options sizes one generation run.
type Options struct {
	Posts    int
	Comments int
	Reposts  int
	Quotes   int

	// Lists is the number of follow lists to create; each gets up to
	// FollowsPerList generated repository follows.
	Lists          int
	FollowsPerList int

	// Profile also writes a generated config snapshot.
	Profile bool
}

func DefaultOptions() *Options {
	return &Options{
		Posts:          10,
		Comments:       5,
		Reposts:        2,
		Quotes:         2,
		Lists:          1,
		FollowsPerList: 3,
		Profile:        true,
	}
}

// Stats reports what one Seed call produced.
type Stats struct {
	Posts    int
	Comments int
	Reposts  int
	Quotes   int
	Lists    int
	Follows  int
}

// Generator produces fake social content with a pinned random stream, so
// the same seed writes the same sequence of actions.
type Generator struct {
	svc   *social.Service
	faker *gofakeit.Faker
	rng   *rand.Rand
}

// NewGenerator creates a Generator publishing through svc. A zero seed
// picks one from the clock.
func NewGenerator(svc *social.Service, seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		svc:   svc,
		faker: gofakeit.New(seed),
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// Seed populates the repository at dir. Posts are generated first so
// comments, reposts and quotes have local targets to point at; roughly a
// third of the comments thread under an earlier comment instead of sitting
// directly on a post.
func (g *Generator) Seed(ctx context.Context, dir string, opts *Options) (*Stats, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	stats := &Stats{}

	var posts []syntax.PostID
	for i := 0; i < opts.Posts; i++ {
		id, err := g.svc.Post(ctx, dir, g.sentence())
		if err != nil {
			return stats, fmt.Errorf("generating post: %w", err)
		}
		posts = append(posts, id)
		stats.Posts++
	}

	type comment struct {
		target syntax.PostID
		id     syntax.PostID
	}
	var comments []comment
	if len(posts) > 0 {
		for i := 0; i < opts.Comments; i++ {
			var target, parent syntax.PostID
			if len(comments) > 0 && g.rng.Float64() < 0.33 {
				prev := comments[g.rng.Intn(len(comments))]
				target, parent = prev.target, prev.id
			} else {
				target = posts[g.rng.Intn(len(posts))]
			}
			id, err := g.svc.Comment(ctx, dir, target, parent, g.sentence())
			if err != nil {
				return stats, fmt.Errorf("generating comment: %w", err)
			}
			comments = append(comments, comment{target: target, id: id})
			stats.Comments++
		}

		for i := 0; i < opts.Reposts; i++ {
			target := posts[g.rng.Intn(len(posts))]
			if _, err := g.svc.Repost(ctx, dir, target); err != nil {
				return stats, fmt.Errorf("generating repost: %w", err)
			}
			stats.Reposts++
		}

		for i := 0; i < opts.Quotes; i++ {
			target := posts[g.rng.Intn(len(posts))]
			if _, err := g.svc.Quote(ctx, dir, target, g.sentence()); err != nil {
				return stats, fmt.Errorf("generating quote: %w", err)
			}
			stats.Quotes++
		}
	}

	for i := 0; i < opts.Lists; i++ {
		listID := petname.Generate(2, "-")
		if err := g.svc.CreateList(ctx, dir, listID, g.faker.Phrase()); err != nil {
			return stats, fmt.Errorf("generating list: %w", err)
		}
		stats.Lists++

		// re-following an existing member would write a snapshot that
		// replays as a bare list update, so draw until unique
		seen := make(map[string]bool)
		for j := 0; j < opts.FollowsPerList; j++ {
			repo := g.faker.URL()
			for seen[repo] {
				repo = g.faker.URL()
			}
			seen[repo] = true
			if err := g.svc.Follow(ctx, dir, listID, repo); err != nil {
				return stats, fmt.Errorf("generating follow: %w", err)
			}
			stats.Follows++
		}
	}

	if opts.Profile {
		cfg := social.Config{Name: g.faker.Name(), Description: g.sentence()}
		if err := g.svc.SetConfig(ctx, dir, cfg); err != nil {
			return stats, fmt.Errorf("generating profile: %w", err)
		}
	}

	return stats, nil
}

func (g *Generator) sentence() string {
	text := g.faker.Sentence(10)
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
