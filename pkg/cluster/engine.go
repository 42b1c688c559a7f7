package cluster

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/tubemap/backend/pkg/channel"
)

// Algorithm selects the clustering strategy.
type Algorithm string

const (
	// AlgorithmKMeans partitions into a fixed number of centroid-based groups.
	AlgorithmKMeans Algorithm = "kmeans"
	// AlgorithmDBSCAN derives the group count from data density and may
	// leave points in the noise bucket.
	AlgorithmDBSCAN Algorithm = "dbscan"
)

// ParseAlgorithm validates an algorithm name from configuration.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case AlgorithmKMeans, AlgorithmDBSCAN:
		return Algorithm(s), nil
	default:
		return "", fmt.Errorf("unknown clustering algorithm %q (want %q or %q)", s, AlgorithmKMeans, AlgorithmDBSCAN)
	}
}

const (
	defaultSeed       = 42
	defaultEps        = 0.5
	defaultMinSamples = 5

	kmeansRestarts = 10
	kmeansMaxIter  = 100
)

// EngineParams configures one clustering invocation.
type EngineParams struct {
	Algorithm Algorithm
	// K is the group count for AlgorithmKMeans; ignored by AlgorithmDBSCAN.
	K    int
	Seed int64
	// Eps and MinSamples tune AlgorithmDBSCAN; zero values take defaults.
	Eps        float64
	MinSamples int
}

// Clustering is the engine's output: one label per input row, the number of
// groups found, an optional validity score, and an optional 2-D projection
// for plotting. The projection never influences the grouping itself.
type Clustering struct {
	Algorithm  Algorithm
	Labels     []channel.Label
	NClusters  int
	Silhouette *float64
	Projection [][2]float64
	// Inertia is the within-cluster sum of squared distances; only set for
	// AlgorithmKMeans, where the optimizer's elbow heuristic consumes it.
	Inertia float64
}

// Cluster partitions the feature matrix into groups. For AlgorithmKMeans,
// k must satisfy 2 <= k < N; violating that is an input-validation error,
// never a silent clamp. The silhouette score is nil when fewer than two
// non-noise groups exist.
func Cluster(features [][]float64, params EngineParams) (*Clustering, error) {
	n := len(features)
	if n == 0 {
		return nil, fmt.Errorf("cannot cluster an empty feature matrix")
	}
	width := len(features[0])
	for i, row := range features {
		if len(row) != width {
			return nil, fmt.Errorf("ragged feature matrix: row %d has width %d, want %d", i, len(row), width)
		}
	}

	seed := params.Seed
	if seed == 0 {
		seed = defaultSeed
	}

	result := &Clustering{Algorithm: params.Algorithm}

	switch params.Algorithm {
	case AlgorithmKMeans:
		if params.K < 2 {
			return nil, fmt.Errorf("cluster count must be at least 2, got %d", params.K)
		}
		if params.K >= n {
			return nil, fmt.Errorf("cluster count %d must be smaller than the number of channels %d", params.K, n)
		}
		raw, inertia := runKMeans(features, params.K, seed)
		result.Labels = toLabels(raw)
		result.NClusters = params.K
		result.Inertia = inertia
	case AlgorithmDBSCAN:
		eps := params.Eps
		if eps <= 0 {
			eps = defaultEps
		}
		minSamples := params.MinSamples
		if minSamples <= 0 {
			minSamples = defaultMinSamples
		}
		raw := runDBSCAN(features, eps, minSamples)
		result.Labels = toLabels(raw)
		result.NClusters = countClusters(raw)
	default:
		return nil, fmt.Errorf("unknown clustering algorithm %q", params.Algorithm)
	}

	result.Silhouette = silhouetteScore(features, rawLabels(result.Labels))
	result.Projection = project2D(features, seed)

	return result, nil
}

func toLabels(raw []int) []channel.Label {
	labels := make([]channel.Label, len(raw))
	for i, l := range raw {
		if l < 0 {
			labels[i] = channel.Noise()
		} else {
			labels[i] = channel.Group(l)
		}
	}
	return labels
}

func rawLabels(labels []channel.Label) []int {
	raw := make([]int, len(labels))
	for i, l := range labels {
		if idx, ok := l.Index(); ok {
			raw[i] = idx
		} else {
			raw[i] = -1
		}
	}
	return raw
}

func countClusters(raw []int) int {
	seen := map[int]struct{}{}
	for _, l := range raw {
		if l >= 0 {
			seen[l] = struct{}{}
		}
	}
	return len(seen)
}

// runKMeans runs seeded k-means with k-means++ initialization and several
// restarts, keeping the assignment with the lowest inertia. Empty groups are
// a legitimate degenerate outcome and are kept as-is.
func runKMeans(features [][]float64, k int, seed int64) ([]int, float64) {
	bestLabels := make([]int, len(features))
	bestInertia := math.Inf(1)

	for restart := 0; restart < kmeansRestarts; restart++ {
		rng := rand.New(rand.NewSource(seed + int64(restart)))
		labels, inertia := kmeansOnce(features, k, rng)
		if inertia < bestInertia {
			bestInertia = inertia
			copy(bestLabels, labels)
		}
	}

	return bestLabels, bestInertia
}

func kmeansOnce(features [][]float64, k int, rng *rand.Rand) ([]int, float64) {
	centroids := kmeansPlusPlusInit(features, k, rng)
	labels := make([]int, len(features))
	for i := range labels {
		labels[i] = -1
	}

	for iter := 0; iter < kmeansMaxIter; iter++ {
		changed := false
		for i, row := range features {
			best := nearestCentroid(row, centroids)
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}
		recomputeCentroids(features, labels, centroids)
	}

	inertia := 0.0
	for i, row := range features {
		inertia += squaredDistance(row, centroids[labels[i]])
	}
	return labels, inertia
}

// kmeansPlusPlusInit picks initial centroids proportional to squared
// distance from the nearest already-chosen centroid.
func kmeansPlusPlusInit(features [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	first := append([]float64(nil), features[rng.Intn(len(features))]...)
	centroids = append(centroids, first)

	dists := make([]float64, len(features))
	for len(centroids) < k {
		total := 0.0
		for i, row := range features {
			d := math.Inf(1)
			for _, c := range centroids {
				if sq := squaredDistance(row, c); sq < d {
					d = sq
				}
			}
			dists[i] = d
			total += d
		}

		var next int
		if total == 0 {
			// all points coincide with a centroid; any choice is equivalent
			next = rng.Intn(len(features))
		} else {
			target := rng.Float64() * total
			acc := 0.0
			next = len(features) - 1
			for i, d := range dists {
				acc += d
				if acc >= target {
					next = i
					break
				}
			}
		}
		centroids = append(centroids, append([]float64(nil), features[next]...))
	}

	return centroids
}

func nearestCentroid(row []float64, centroids [][]float64) int {
	best := 0
	bestDist := math.Inf(1)
	for c, centroid := range centroids {
		if d := squaredDistance(row, centroid); d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}

// recomputeCentroids moves each centroid to the mean of its members.
// A centroid that lost all members stays where it is.
func recomputeCentroids(features [][]float64, labels []int, centroids [][]float64) {
	width := len(features[0])
	sums := make([][]float64, len(centroids))
	counts := make([]int, len(centroids))
	for c := range centroids {
		sums[c] = make([]float64, width)
	}
	for i, row := range features {
		c := labels[i]
		counts[c]++
		for j, val := range row {
			sums[c][j] += val
		}
	}
	for c := range centroids {
		if counts[c] == 0 {
			continue
		}
		for j := range centroids[c] {
			centroids[c][j] = sums[c][j] / float64(counts[c])
		}
	}
}

// runDBSCAN is a standard density scan: core points need at least minSamples
// neighbors (self included) within eps; clusters grow from core points and
// unreachable points end up labeled -1.
func runDBSCAN(features [][]float64, eps float64, minSamples int) []int {
	const (
		unvisited = -2
		noise     = -1
	)

	n := len(features)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = unvisited
	}

	clusterID := 0
	for i := 0; i < n; i++ {
		if labels[i] != unvisited {
			continue
		}
		neighbors := regionQuery(features, i, eps)
		if len(neighbors) < minSamples {
			labels[i] = noise
			continue
		}

		labels[i] = clusterID
		queue := append([]int(nil), neighbors...)
		for qi := 0; qi < len(queue); qi++ {
			j := queue[qi]
			if labels[j] == noise {
				labels[j] = clusterID
			}
			if labels[j] != unvisited {
				continue
			}
			labels[j] = clusterID
			jNeighbors := regionQuery(features, j, eps)
			if len(jNeighbors) >= minSamples {
				queue = append(queue, jNeighbors...)
			}
		}
		clusterID++
	}

	return labels
}

func regionQuery(features [][]float64, i int, eps float64) []int {
	epsSq := eps * eps
	neighbors := make([]int, 0)
	for j, row := range features {
		if squaredDistance(features[i], row) <= epsSq {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}

// silhouetteScore computes the mean silhouette coefficient over non-noise
// points. Returns nil when fewer than two non-noise groups exist; that is
// "not applicable", not an error.
func silhouetteScore(features [][]float64, raw []int) *float64 {
	members := map[int][]int{}
	for i, l := range raw {
		if l >= 0 {
			members[l] = append(members[l], i)
		}
	}
	if len(members) < 2 {
		return nil
	}

	total := 0.0
	count := 0
	for l, idxs := range members {
		for _, i := range idxs {
			a := meanDistance(features, i, idxs)

			b := math.Inf(1)
			for ol, oidxs := range members {
				if ol == l {
					continue
				}
				if d := meanDistance(features, i, oidxs); d < b {
					b = d
				}
			}

			s := 0.0
			if m := math.Max(a, b); m > 0 {
				s = (b - a) / m
			}
			total += s
			count++
		}
	}
	if count == 0 {
		return nil
	}

	score := total / float64(count)
	return &score
}

// meanDistance averages the distance from point i to the given members,
// excluding i itself. Returns 0 when i is the only member.
func meanDistance(features [][]float64, i int, members []int) float64 {
	sum := 0.0
	n := 0
	for _, j := range members {
		if j == i {
			continue
		}
		sum += math.Sqrt(squaredDistance(features[i], features[j]))
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// project2D reduces the feature matrix to two components for plotting.
// When the matrix is already 2-D or narrower, the raw values are used.
// The projection is deterministic for a given seed and is never fed back
// into the grouping decision.
func project2D(features [][]float64, seed int64) [][2]float64 {
	n := len(features)
	width := len(features[0])
	out := make([][2]float64, n)

	if width <= 2 {
		for i, row := range features {
			out[i][0] = row[0]
			if width == 2 {
				out[i][1] = row[1]
			}
		}
		return out
	}

	centered := make([][]float64, n)
	means := make([]float64, width)
	for _, row := range features {
		for c, val := range row {
			means[c] += val
		}
	}
	for c := range means {
		means[c] /= float64(n)
	}
	for i, row := range features {
		cr := make([]float64, width)
		for c, val := range row {
			cr[c] = val - means[c]
		}
		centered[i] = cr
	}

	rng := rand.New(rand.NewSource(seed))
	first := principalComponent(centered, nil, rng)
	second := principalComponent(centered, first, rng)

	for i, row := range centered {
		out[i][0] = dot(row, first)
		out[i][1] = dot(row, second)
	}
	return out
}

// principalComponent finds the dominant direction of the centered data via
// power iteration on the covariance, deflating against an earlier component
// when given. The iteration starts from a seeded random vector.
func principalComponent(centered [][]float64, deflate []float64, rng *rand.Rand) []float64 {
	width := len(centered[0])
	v := make([]float64, width)
	for c := range v {
		v[c] = rng.Float64() - 0.5
	}
	normalize(v)

	next := make([]float64, width)
	for iter := 0; iter < 100; iter++ {
		for c := range next {
			next[c] = 0
		}
		// next = X^T (X v), without materializing the covariance
		for _, row := range centered {
			proj := dot(row, v)
			for c, val := range row {
				next[c] += val * proj
			}
		}
		if deflate != nil {
			d := dot(next, deflate)
			for c := range next {
				next[c] -= d * deflate[c]
			}
		}
		if !normalize(next) {
			break
		}
		copy(v, next)
	}
	return v
}

func normalize(v []float64) bool {
	norm := math.Sqrt(dot(v, v))
	if norm == 0 {
		return false
	}
	for c := range v {
		v[c] /= norm
	}
	return true
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func squaredDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
