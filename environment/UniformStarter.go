package environment

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"
)

// UniformStarter samples starting states uniformly from a box. A
// zero-width interval fixes its feature at a constant.
type UniformStarter struct {
	features int
	seed     uint64
	dist     *distmv.Uniform
}

// NewUniformStarter returns a new UniformStarter sampling each feature
// from its interval in bounds
func NewUniformStarter(bounds []r1.Interval, seed uint64) *UniformStarter {
	source := rand.NewSource(seed)
	dist := distmv.NewUniform(bounds, source)

	return &UniformStarter{len(bounds), seed, dist}
}

// Start implements the Starter interface
func (u *UniformStarter) Start() mat.Vector {
	return mat.NewVecDense(u.features, u.dist.Rand(nil))
}

// Seed returns the seed of the starter's random source
func (u *UniformStarter) Seed() uint64 {
	return u.seed
}
