package govoltcore

import (
	"math"
	"math/rand"
)

// TriangleSweep builds the voltage program of one CV cycle: n samples from
// start down to vertex and n samples back, 2n samples total with the turning
// point at index n-1.
func TriangleSweep(start, vertex float64, n int) []float64 {
	voltage := make([]float64, 0, 2*n)
	for i := 0; i < n; i++ {
		voltage = append(voltage, start+(vertex-start)*float64(i)/float64(n-1))
	}
	for i := n - 1; i >= 0; i-- {
		voltage = append(voltage, start+(vertex-start)*float64(i)/float64(n-1))
	}
	return voltage
}

// OhmicCurrent evaluates a purely resistive current response for the given
// voltage program.
func OhmicCurrent(voltage []float64, slope, intercept float64) []float64 {
	current := make([]float64, len(voltage))
	for i, v := range voltage {
		current[i] = slope*v + intercept
	}
	return current
}

// AddGaussianPeak superimposes a redox-style peak onto the current response,
// centered on the given sample index with a width in samples.
func AddGaussianPeak(current []float64, center int, width, amplitude float64) {
	for i := range current {
		d := float64(i - center)
		current[i] += amplitude * math.Exp(-d*d/(2*width*width))
	}
}

// AddNoise perturbs every current sample by up to ±level of its magnitude.
// The generator is seeded explicitly so synthetic traces are reproducible.
func AddNoise(current []float64, level float64, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	for i, v := range current {
		maxNoise := math.Abs(v) * level
		current[i] = v + (rng.Float64()*2-1)*maxNoise
	}
}
