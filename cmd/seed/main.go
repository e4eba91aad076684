package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"shareit/internal/config"
	"shareit/internal/database"
	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Fixtures is the seed file layout. Items reference their owner by email.
type Fixtures struct {
	Users []struct {
		Name  string `yaml:"name"`
		Email string `yaml:"email"`
	} `yaml:"users"`
	Items []struct {
		OwnerEmail  string `yaml:"owner_email"`
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Available   bool   `yaml:"available"`
	} `yaml:"items"`
}

type store interface {
	domain.UserRepository
	domain.ItemRepository
}

type result struct {
	usersCreated int
	itemsCreated int
	itemsUpdated int
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		fixturesPath = flag.String("fixtures", "configs/seed.yaml", "path to seed fixtures")
		configPath   = flag.String("config", "configs/config.yaml", "path to config.yaml")
	)
	flag.Parse()

	fixtures, err := loadFixtures(*fixturesPath)
	if err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := database.Open(cfg.Database, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := apply(ctx, db, fixtures)
	if err != nil {
		return err
	}

	logger.Info().
		Int("users_created", res.usersCreated).
		Int("items_created", res.itemsCreated).
		Int("items_updated", res.itemsUpdated).
		Msg("seed done")
	return nil
}

func loadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	if len(f.Users) == 0 && len(f.Items) == 0 {
		return nil, fmt.Errorf("no users or items in %s", path)
	}
	return &f, nil
}

// apply is idempotent: users are matched by email, items by owner and name.
func apply(ctx context.Context, db store, f *Fixtures) (result, error) {
	var res result

	existing, err := db.GetAllUsers(ctx)
	if err != nil {
		return res, fmt.Errorf("list users: %w", err)
	}
	byEmail := make(map[string]int64, len(existing))
	for _, u := range existing {
		byEmail[strings.ToLower(u.Email)] = u.ID
	}

	for _, fu := range f.Users {
		email := strings.TrimSpace(fu.Email)
		if email == "" || byEmail[strings.ToLower(email)] != 0 {
			continue
		}
		u := &models.User{Name: strings.TrimSpace(fu.Name), Email: email}
		if err := db.CreateUser(ctx, u); err != nil {
			return res, fmt.Errorf("create user %s: %w", email, err)
		}
		byEmail[strings.ToLower(email)] = u.ID
		res.usersCreated++
	}

	for _, fi := range f.Items {
		if strings.TrimSpace(fi.Name) == "" {
			continue
		}
		ownerID := byEmail[strings.ToLower(strings.TrimSpace(fi.OwnerEmail))]
		if ownerID == 0 {
			return res, fmt.Errorf("%w: owner %q of item %q", domain.ErrNotFound, fi.OwnerEmail, fi.Name)
		}

		owned, err := db.GetItemsByOwner(ctx, ownerID)
		if err != nil {
			return res, fmt.Errorf("list items of %d: %w", ownerID, err)
		}
		var current *models.Item
		for _, it := range owned {
			if it.Name == fi.Name {
				current = it
				break
			}
		}

		if current != nil {
			current.Description = fi.Description
			current.Available = fi.Available
			if err := db.UpdateItem(ctx, current); err != nil {
				return res, fmt.Errorf("update item %s: %w", fi.Name, err)
			}
			res.itemsUpdated++
			continue
		}

		item := &models.Item{Name: fi.Name, Description: fi.Description, Available: fi.Available, OwnerID: ownerID}
		if err := db.CreateItem(ctx, item); err != nil {
			return res, fmt.Errorf("create item %s: %w", fi.Name, err)
		}
		res.itemsCreated++
	}

	return res, nil
}
