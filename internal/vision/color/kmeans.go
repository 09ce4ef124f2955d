package color

import (
	"math"
	"math/rand"
)

const (
	kmeansSeed    = 42
	initAttempts  = 10
	maxIterations = 300
)

// cluster runs seeded k-means over the samples and returns the centroids of
// the best run (lowest within-cluster variance) along with the per-sample
// labels. The fixed seed makes repeated runs over the same crop return the
// same partition.
func cluster(samples []RGB, k int) ([]RGB, []int) {
	if k < 1 {
		k = 1
	}
	if k > len(samples) {
		k = len(samples)
	}

	rng := rand.New(rand.NewSource(kmeansSeed))

	bestInertia := math.Inf(1)
	var bestCentroids []RGB
	var bestLabels []int

	for attempt := 0; attempt < initAttempts; attempt++ {
		centroids := make([]RGB, k)
		for i := range centroids {
			centroids[i] = samples[rng.Intn(len(samples))]
		}

		labels := make([]int, len(samples))
		for iter := 0; iter < maxIterations; iter++ {
			changed := assign(samples, centroids, labels)
			recenter(samples, centroids, labels)
			if !changed && iter > 0 {
				break
			}
		}

		inertia := 0.0
		for i, s := range samples {
			inertia += distSq(s, centroids[labels[i]])
		}
		if inertia < bestInertia {
			bestInertia = inertia
			bestCentroids = append([]RGB(nil), centroids...)
			bestLabels = append([]int(nil), labels...)
		}
	}

	return bestCentroids, bestLabels
}

func assign(samples []RGB, centroids []RGB, labels []int) bool {
	changed := false
	for i, s := range samples {
		best := 0
		bestDist := distSq(s, centroids[0])
		for j := 1; j < len(centroids); j++ {
			if d := distSq(s, centroids[j]); d < bestDist {
				best = j
				bestDist = d
			}
		}
		if labels[i] != best {
			labels[i] = best
			changed = true
		}
	}
	return changed
}

func recenter(samples []RGB, centroids []RGB, labels []int) {
	sums := make([]RGB, len(centroids))
	counts := make([]int, len(centroids))
	for i, s := range samples {
		label := labels[i]
		sums[label].R += s.R
		sums[label].G += s.G
		sums[label].B += s.B
		counts[label]++
	}

	for j := range centroids {
		if counts[j] == 0 {
			// Empty cluster: relocate it to the sample furthest from its
			// current centroid so two-color crops still split cleanly.
			centroids[j] = farthestSample(samples, centroids, labels)
			continue
		}
		centroids[j] = RGB{
			R: sums[j].R / float64(counts[j]),
			G: sums[j].G / float64(counts[j]),
			B: sums[j].B / float64(counts[j]),
		}
	}
}

func farthestSample(samples []RGB, centroids []RGB, labels []int) RGB {
	worst := samples[0]
	worstDist := -1.0
	for i, s := range samples {
		if d := distSq(s, centroids[labels[i]]); d > worstDist {
			worst = s
			worstDist = d
		}
	}
	return worst
}

func distSq(a, b RGB) float64 {
	dr := a.R - b.R
	dg := a.G - b.G
	db := a.B - b.B
	return dr*dr + dg*dg + db*db
}
