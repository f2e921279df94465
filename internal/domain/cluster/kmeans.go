package cluster

import (
	"fmt"
	"math"
	"math/rand"

	"skill-match/internal/domain"
)

type KMeansConfig struct {
	Seed    int64
	MaxIter int
	Tol     float64
	NInit   int
}

func DefaultKMeansConfig() KMeansConfig {
	return KMeansConfig{Seed: 42, MaxIter: 300, Tol: 1e-4, NInit: 10}
}

type KMeansResult struct {
	Centers    [][]float64
	Labels     []int
	Inertia    float64
	Iterations int
}

// KMeans runs NInit seeded k-means++ restarts and keeps the lowest-inertia fit.
func KMeans(points [][]float64, k int, cfg KMeansConfig) (KMeansResult, error) {
	if k < 1 {
		return KMeansResult{}, fmt.Errorf("%w: k must be positive", domain.ErrValidation)
	}
	if len(points) < k {
		return KMeansResult{}, fmt.Errorf("%w: %d points for %d clusters", domain.ErrInsufficientData, len(points), k)
	}
	dim := len(points[0])
	for _, p := range points {
		if len(p) != dim {
			return KMeansResult{}, fmt.Errorf("%w: mixed vector dimensions", domain.ErrValidation)
		}
	}
	if cfg.MaxIter <= 0 {
		cfg.MaxIter = 300
	}
	if cfg.NInit <= 0 {
		cfg.NInit = 1
	}
	if cfg.Tol < 0 {
		cfg.Tol = 0
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	var best KMeansResult
	for run := 0; run < cfg.NInit; run++ {
		res := lloyd(points, seedPlusPlus(points, k, rng), cfg)
		if run == 0 || res.Inertia < best.Inertia {
			best = res
		}
	}
	return best, nil
}

func seedPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centers := make([][]float64, 0, k)
	centers = append(centers, clone(points[rng.Intn(len(points))]))

	d2 := make([]float64, len(points))
	for len(centers) < k {
		sum := 0.0
		for i, p := range points {
			best := math.Inf(1)
			for _, c := range centers {
				if d := sqDist(p, c); d < best {
					best = d
				}
			}
			d2[i] = best
			sum += best
		}

		next := 0
		if sum == 0 {
			// all remaining points coincide with a center
			next = rng.Intn(len(points))
		} else {
			target := rng.Float64() * sum
			acc := 0.0
			for i, d := range d2 {
				acc += d
				if acc >= target {
					next = i
					break
				}
			}
		}
		centers = append(centers, clone(points[next]))
	}
	return centers
}

func lloyd(points [][]float64, centers [][]float64, cfg KMeansConfig) KMeansResult {
	k := len(centers)
	dim := len(points[0])
	labels := make([]int, len(points))

	iter := 0
	for iter < cfg.MaxIter {
		iter++
		for i, p := range points {
			labels[i] = nearest(p, centers)
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, p := range points {
			c := labels[i]
			counts[c]++
			for d, x := range p {
				sums[c][d] += x
			}
		}

		shift := 0.0
		for c := range centers {
			if counts[c] == 0 {
				// empty clusters keep their previous center
				continue
			}
			for d := range sums[c] {
				sums[c][d] /= float64(counts[c])
			}
			shift += sqDist(centers[c], sums[c])
			centers[c] = sums[c]
		}
		if shift <= cfg.Tol {
			break
		}
	}

	inertia := 0.0
	for i, p := range points {
		labels[i] = nearest(p, centers)
		inertia += sqDist(p, centers[labels[i]])
	}
	return KMeansResult{Centers: centers, Labels: labels, Inertia: inertia, Iterations: iter}
}

// Silhouette is the mean silhouette coefficient over at most maxPoints points sampled with seed.
func Silhouette(points [][]float64, labels []int, k, maxPoints int, seed int64) float64 {
	n := len(points)
	if n < 2 || k < 2 || len(labels) != n {
		return 0
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	if maxPoints > 0 && n > maxPoints {
		rng := rand.New(rand.NewSource(seed))
		rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		idx = idx[:maxPoints]
	}

	total := 0.0
	for _, i := range idx {
		sum := make([]float64, k)
		cnt := make([]int, k)
		for _, j := range idx {
			if i == j {
				continue
			}
			sum[labels[j]] += math.Sqrt(sqDist(points[i], points[j]))
			cnt[labels[j]]++
		}
		own := labels[i]
		if cnt[own] == 0 {
			continue
		}
		a := sum[own] / float64(cnt[own])
		b := math.Inf(1)
		for c := 0; c < k; c++ {
			if c == own || cnt[c] == 0 {
				continue
			}
			if m := sum[c] / float64(cnt[c]); m < b {
				b = m
			}
		}
		if math.IsInf(b, 1) {
			continue
		}
		if den := math.Max(a, b); den > 0 {
			total += (b - a) / den
		}
	}
	return total / float64(len(idx))
}

// ChooseK picks the cluster count for n samples.
func ChooseK(n, distinctSkills, override int) int {
	if n <= 0 {
		return 0
	}
	if override > 0 {
		if override > n {
			return n
		}
		return override
	}
	k := n / 3
	if k < 2 {
		k = 2
	}
	if k > 8 {
		k = 8
	}
	if distinctSkills < k {
		k = distinctSkills
		if k < 2 {
			k = 2
		}
	}
	if k > n {
		k = n
	}
	return k
}

func nearest(p []float64, centers [][]float64) int {
	best, bestD := 0, math.Inf(1)
	for c, center := range centers {
		if d := sqDist(p, center); d < bestD {
			best, bestD = c, d
		}
	}
	return best
}

func sqDist(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

func dist(a, b []float64) float64 {
	return math.Sqrt(sqDist(a, b))
}

func clone(v []float64) []float64 {
	return append([]float64(nil), v...)
}
