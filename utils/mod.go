package utils

import (
	"math"

	"golang.org/x/exp/rand"
	"lukechampine.com/frand"
)

func FindIndex[T comparable](slice []T, item T) int {
	for i, v := range slice {
		if v == item {
			return i
		}
	}
	return -1
}

// NewRand returns a deterministic random source for the given seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// Seed draws a fresh seed from the operating system's entropy.
func Seed() uint64 {
	return frand.Uint64n(math.MaxUint64)
}

// SeedOr returns seed, or a fresh one when seed is 0.
func SeedOr(seed uint64) uint64 {
	if seed == 0 {
		return Seed()
	}
	return seed
}
