package utils

import (
	"math/rand"

	"github.com/Pallinder/go-randomdata"
)

// RandomNameGenerator hands out unique silly names from a fixed seed.
// Zero value is ready to use; not safe for concurrent use.
type RandomNameGenerator struct {
	Seed int64

	used map[string]struct{}
}

func (rng *RandomNameGenerator) RandomName() string {
	if rng.used == nil {
		rng.used = make(map[string]struct{})
		randomdata.CustomRand(rand.New(rand.NewSource(rng.Seed)))
	}
	for {
		name := randomdata.SillyName()
		// avoid duplicate names
		if _, exists := rng.used[name]; !exists {
			rng.used[name] = struct{}{}
			return name
		}
	}
}

func (rng *RandomNameGenerator) Used() int {
	return len(rng.used)
}
