// Package identity produces plausible random shopper profiles.
package identity

import (
	"strings"
	"sync"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
)

// Profile holds the identity fields of one simulated shopper.
type Profile struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	DeliveryAddress string `json:"delivery_address"`
}

// Generator produces fresh profiles. It must be safe for concurrent use.
type Generator interface {
	Generate() Profile
}

// FakeGenerator builds profiles from gofakeit. Emails carry a random tag so
// that registrations from concurrent sessions never collide.
type FakeGenerator struct {
	mu    sync.Mutex
	faker *gofakeit.Faker
}

// NewFakeGenerator creates a generator. A seed of 0 picks a random seed.
func NewFakeGenerator(seed uint64) *FakeGenerator {
	return &FakeGenerator{faker: gofakeit.New(seed)}
}

// Generate returns a new profile.
func (g *FakeGenerator) Generate() Profile {
	g.mu.Lock()
	name := g.faker.Name()
	email := g.faker.Email()
	password := g.faker.Password(true, true, true, false, false, 12)
	address := g.faker.Address().Address
	g.mu.Unlock()

	return Profile{
		Name:            name,
		Email:           uniqueEmail(email),
		Password:        password,
		DeliveryAddress: address,
	}
}

// uniqueEmail tags the local part with a short uuid: jane@x.org -> jane.1a2b3c4d@x.org
func uniqueEmail(email string) string {
	tag := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return email + "." + tag + "@example.com"
	}
	return local + "." + tag + "@" + domain
}
