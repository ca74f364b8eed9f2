// Package seed loads the demo hero roster.
package seed

import (
	"context"
	"fmt"

	"github.com/heroverse/apiserver/internal/services"
	"github.com/heroverse/apiserver/types"
	"go.uber.org/zap"
)

// Hero is one roster entry. Subscribers are 1-based positions in Roster.
type Hero struct {
	Username    string
	Password    string
	Name        string
	Nickname    string
	Description string
	Power       []string
	AvatarFile  string
	Subscribers []int
}

// Roster is the demo data set.
var Roster = []Hero{
	{
		Username:    "user1",
		Password:    "123",
		Name:        "Wade Wilson",
		Nickname:    "Deadpool",
		Description: "Wade Wilson was born in Canada, but grew up to become the least Canadian person ever. When it comes to the Merc with a Mouth, with great power comes no responsibility.",
		Power:       []string{"Hand-to-Hand Combat", "Healing Factor", "Immortality", "Superior Marksmanship"},
		Subscribers: []int{2, 3, 4, 5},
	},
	{
		Username:    "Logan",
		Password:    "456",
		Name:        "James Howlett",
		Nickname:    "Wolverine",
		Description: "From the northern wilderness of Canada hails one of the gruffest, most irascible, totally cynical and brooding member of the X-Men ever to grace the team with his presence.",
		Power:       []string{"Heightened Senses", "Regeneration", "Superhuman Strength", "Superhuman Durability", "Superhuman Speed", "Superhuman Reflexes"},
		AvatarFile:  "wolverine.png",
		Subscribers: []int{1, 3},
	},
	{
		Username:    "user3",
		Password:    "789",
		Name:        "Tony Stark",
		Nickname:    "Iron Man",
		Description: "Genius. Billionaire. Philanthropist. Tony Stark confidence is only matched by his high-flying abilities as the hero called Iron Man.",
		Power:       []string{"Heightened Senses", "Regeneration", "Superhuman Strength", "Genius Intelligence"},
		AvatarFile:  "ironman.png",
	},
	{
		Username:    "user4",
		Password:    "789",
		Name:        "Max Eisenhardt",
		Nickname:    "Magneto",
		Description: "Using his mighty ability to control magnetic fields, the one called Magneto fights to help mutants replace humans as the worlds dominant species.",
		Power:       []string{"Control of Elements", "Magnetism", "Energy Manipulation", "Flight", "Superhuman Intelligence", "Superhuman Speed", "Force Field"},
		AvatarFile:  "magneto.png",
		Subscribers: []int{3},
	},
	{
		Username:    "user5",
		Password:    "789",
		Name:        "Scott Summers",
		Nickname:    "Cyclops",
		Description: "From a stoic leader of the X-Men to a hardened radical, Cyclops is always true to mutantkind and determined to make Xavier's dream of peace between mutants and humans a reality.",
		Power: []string{
			"The emission of force rays from the eyes",
			"The psionic field neutralizes the force rays",
			"Intuitive sense of geometry",
			"Natural Leadership Skills",
			"Hand-to-Hand Combat",
			"The ability to heal thanks to lasers",
			"Superhuman Strength",
		},
		AvatarFile:  "cyclops.png",
		Subscribers: []int{1},
	},
}

// PasswordHasher hashes plaintext passwords.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

// Seeder writes a roster into a user repository.
type Seeder struct {
	users         services.UserRepository
	hasher        PasswordHasher
	logger        *zap.Logger
	publicBaseURL string
}

func NewSeeder(users services.UserRepository, hasher PasswordHasher, logger *zap.Logger, publicBaseURL string) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{users: users, hasher: hasher, logger: logger, publicBaseURL: publicBaseURL}
}

// Run inserts roster and links subscribers. When reset is set every
// existing user is deleted first. It returns the created users in roster
// order.
func (s *Seeder) Run(ctx context.Context, roster []Hero, reset bool) ([]types.User, error) {
	if reset {
		if err := s.users.DeleteAll(ctx); err != nil {
			return nil, fmt.Errorf("reset users: %w", err)
		}
		s.logger.Info("cleared users")
	}

	created := make([]types.User, 0, len(roster))
	for _, hero := range roster {
		hash, err := s.hasher.HashPassword(hero.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", hero.Username, err)
		}

		avatar := ""
		if hero.AvatarFile != "" {
			avatar = s.publicBaseURL + "/" + hero.AvatarFile
		}

		user, err := s.users.Create(ctx, types.User{
			Username:     hero.Username,
			PasswordHash: hash,
			Name:         hero.Name,
			Nickname:     hero.Nickname,
			Description:  hero.Description,
			Power:        append([]string{}, hero.Power...),
			IsActive:     true,
			Avatar:       avatar,
		})
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", hero.Username, err)
		}
		created = append(created, user)
	}

	for i, hero := range roster {
		for _, pos := range hero.Subscribers {
			if pos < 1 || pos > len(created) || pos == i+1 {
				return nil, fmt.Errorf("invalid subscriber %d for %s", pos, hero.Username)
			}
			if err := s.users.AddSubscriber(ctx, created[i].ID, created[pos-1].ID); err != nil {
				return nil, fmt.Errorf("link %s <- %s: %w", hero.Username, roster[pos-1].Username, err)
			}
		}
	}

	for i := range created {
		user, err := s.users.GetByID(ctx, created[i].ID)
		if err != nil {
			return nil, err
		}
		created[i] = user
	}

	s.logger.Info("seeded users", zap.Int("count", len(created)))
	return created, nil
}
