// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mnemos Contributors

package index

import (
	"math"
	"math/rand"

	mnemoserr "github.com/mnemos-dev/mnemos/pkg/errors"
)

// DefaultClusterMaxIterations bounds the k-means assign/update loop.
const DefaultClusterMaxIterations = 100

// ClusterConfig tunes the k-means run. The seed is fixed so identical input
// always yields identical labeling up to cluster-index permutation.
type ClusterConfig struct {
	Seed          int64
	MaxIterations int
}

// Cluster partitions vectors into k groups with seeded k-means and returns
// one label in [0,k) per input vector, in input order. Labels are arbitrary
// cluster identities; only the grouping is meaningful. Pure function, no
// store state involved.
func Cluster(vectors [][]float32, k int, cfg ClusterConfig) ([]int, error) {
	if k < 1 {
		return nil, mnemoserr.Errorf(mnemoserr.CodeIndexClusterInvalid,
			"index: num_clusters must be >= 1, got %d", k)
	}
	if len(vectors) < k {
		return nil, mnemoserr.Errorf(mnemoserr.CodeIndexClusterInvalid,
			"index: need at least as many data points as clusters, got %d points for %d clusters",
			len(vectors), k)
	}
	dims := len(vectors[0])
	if dims == 0 {
		return nil, mnemoserr.New(mnemoserr.CodeIndexClusterInvalid,
			"index: vectors must not be empty")
	}
	for i, v := range vectors {
		if len(v) != dims {
			return nil, mnemoserr.Errorf(mnemoserr.CodeIndexClusterInvalid,
				"index: vector %d has width %d, want %d", i, len(v), dims)
		}
	}

	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultClusterMaxIterations
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	centroids := initCentroids(rng, vectors, k)
	assignments := make([]int, len(vectors))
	sums := make([][]float64, k)
	counts := make([]int, k)
	for c := 0; c < k; c++ {
		sums[c] = make([]float64, dims)
	}

	for iter := 0; iter < maxIter; iter++ {
		changed := assignToCentroids(vectors, centroids, assignments)
		updateCentroids(vectors, assignments, centroids, sums, counts)
		if changed == 0 {
			break
		}
	}

	return assignments, nil
}

// initCentroids seeds k centroids with k-means++: the first is a random
// vector, each subsequent one is sampled proportional to its squared
// distance from the nearest centroid chosen so far.
func initCentroids(rng *rand.Rand, vectors [][]float32, k int) [][]float32 {
	n := len(vectors)
	dims := len(vectors[0])

	centroids := make([][]float32, k)
	centroids[0] = make([]float32, dims)
	copy(centroids[0], vectors[rng.Intn(n)])

	minDistances := make([]float64, n)
	for i, v := range vectors {
		minDistances[i] = squaredEuclidean(v, centroids[0])
	}

	for c := 1; c < k; c++ {
		totalWeight := 0.0
		for _, d := range minDistances {
			totalWeight += d
		}

		target := rng.Float64() * totalWeight
		cumWeight := 0.0
		selected := n - 1
		for i, d := range minDistances {
			cumWeight += d
			if cumWeight >= target {
				selected = i
				break
			}
		}

		centroids[c] = make([]float32, dims)
		copy(centroids[c], vectors[selected])

		for i, v := range vectors {
			if d := squaredEuclidean(v, centroids[c]); d < minDistances[i] {
				minDistances[i] = d
			}
		}
	}
	return centroids
}

// assignToCentroids assigns each vector to its nearest centroid and returns
// how many assignments changed.
func assignToCentroids(vectors [][]float32, centroids [][]float32, assignments []int) int {
	changed := 0
	for i, v := range vectors {
		minDist := math.MaxFloat64
		nearest := 0
		for c, centroid := range centroids {
			if d := squaredEuclidean(v, centroid); d < minDist {
				minDist = d
				nearest = c
			}
		}
		if assignments[i] != nearest {
			assignments[i] = nearest
			changed++
		}
	}
	return changed
}

// updateCentroids recomputes each centroid as the mean of its assigned
// vectors, reusing the caller's accumulation buffers. Empty clusters keep
// their previous position.
func updateCentroids(vectors [][]float32, assignments []int, centroids [][]float32, sums [][]float64, counts []int) {
	dims := len(centroids[0])
	for c := range centroids {
		counts[c] = 0
		for d := 0; d < dims; d++ {
			sums[c][d] = 0
		}
	}
	for i, v := range vectors {
		c := assignments[i]
		counts[c]++
		for d := 0; d < dims; d++ {
			sums[c][d] += float64(v[d])
		}
	}
	for c := range centroids {
		if counts[c] == 0 {
			continue
		}
		for d := 0; d < dims; d++ {
			centroids[c][d] = float32(sums[c][d] / float64(counts[c]))
		}
	}
}

// squaredEuclidean computes squared Euclidean distance with 4-way loop
// unrolling for instruction-level parallelism.
func squaredEuclidean(a, b []float32) float64 {
	n := len(a)
	var sum0, sum1, sum2, sum3 float64

	i := 0
	for ; i <= n-4; i += 4 {
		d0 := float64(a[i] - b[i])
		d1 := float64(a[i+1] - b[i+1])
		d2 := float64(a[i+2] - b[i+2])
		d3 := float64(a[i+3] - b[i+3])
		sum0 += d0 * d0
		sum1 += d1 * d1
		sum2 += d2 * d2
		sum3 += d3 * d3
	}
	for ; i < n; i++ {
		diff := float64(a[i] - b[i])
		sum0 += diff * diff
	}

	return sum0 + sum1 + sum2 + sum3
}
