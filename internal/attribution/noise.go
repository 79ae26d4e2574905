package attribution

import (
	"math"
	"math/rand"

	"github.com/lucid-ml/lucid/internal/tensor"
)

// gaussianPerturb returns input + delta where delta ~ N(0, sigma^2),
// drawn elementwise from rng using the Box-Muller transform.
func gaussianPerturb(input *tensor.RawTensor, sigma float32, rng *rand.Rand) *tensor.RawTensor {
	perturbed := input.Clone()
	data := perturbed.AsFloat32()

	// Box-Muller yields pairs of independent standard normals.
	for i := 0; i < len(data); i += 2 {
		u1 := rng.Float64()
		u2 := rng.Float64()
		for u1 == 0 {
			u1 = rng.Float64()
		}

		r := math.Sqrt(-2 * math.Log(u1))
		theta := 2 * math.Pi * u2

		data[i] += sigma * float32(r*math.Cos(theta))
		if i+1 < len(data) {
			data[i+1] += sigma * float32(r*math.Sin(theta))
		}
	}
	return perturbed
}
