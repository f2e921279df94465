package cluster

import (
	"fmt"
	"math"
	"time"

	"skill-match/internal/domain"

	"github.com/google/uuid"
)

// NeutralFit is the cluster fit used when no compatible model is active.
const NeutralFit = 0.5

const silhouetteSample = 2000

// Scaler standardises columns with statistics captured at training time.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitScaler computes per-column mean and population standard deviation; zero spread scales by 1.
func FitScaler(matrix [][]float64) Scaler {
	if len(matrix) == 0 {
		return Scaler{}
	}
	dim := len(matrix[0])
	mean := make([]float64, dim)
	scale := make([]float64, dim)
	n := float64(len(matrix))

	for _, row := range matrix {
		for d, x := range row {
			mean[d] += x
		}
	}
	for d := range mean {
		mean[d] /= n
	}
	for _, row := range matrix {
		for d, x := range row {
			diff := x - mean[d]
			scale[d] += diff * diff
		}
	}
	for d := range scale {
		scale[d] = math.Sqrt(scale[d] / n)
		if scale[d] == 0 {
			scale[d] = 1
		}
	}
	return Scaler{Mean: mean, Scale: scale}
}

func (s Scaler) Dimension() int { return len(s.Mean) }

func (s Scaler) Transform(v []float64) []float64 {
	out := make([]float64, len(v))
	for d, x := range v {
		if d >= len(s.Mean) {
			out[d] = x
			continue
		}
		out[d] = (x - s.Mean[d]) / s.Scale[d]
	}
	return out
}

type Model struct {
	ID                 uuid.UUID
	Version            int
	K                  int
	Centers            [][]float64
	Scaler             Scaler
	Inertia            float64
	Silhouette         float64
	CandidateCount     int
	JobCount           int
	Iterations         int
	Seed               int64
	CatalogFingerprint string
	TrainedAt          time.Time
	Active             bool
}

func (m *Model) Dimension() int {
	if m == nil {
		return 0
	}
	return m.Scaler.Dimension()
}

// Compatible reports whether vectors built from a catalog with this fingerprint and dimension
// live in the same space as the model.
func (m *Model) Compatible(catalogFingerprint string, dim int) bool {
	return m != nil && len(m.Centers) > 0 && m.CatalogFingerprint == catalogFingerprint && m.Dimension() == dim
}

// Assign returns the nearest center to an unscaled job vector.
func (m *Model) Assign(jobVec []float64) int {
	if m == nil || len(m.Centers) == 0 {
		return -1
	}
	return nearest(m.Scaler.Transform(jobVec), m.Centers)
}

// MaxCenterDistance is the largest pairwise distance between centers.
func (m *Model) MaxCenterDistance() float64 {
	if m == nil {
		return 0
	}
	maxD := 0.0
	for i := range m.Centers {
		for j := i + 1; j < len(m.Centers); j++ {
			if d := dist(m.Centers[i], m.Centers[j]); d > maxD {
				maxD = d
			}
		}
	}
	return maxD
}

// FitScore compares a candidate with the center the job is assigned to, both unscaled.
func (m *Model) FitScore(candVec, jobVec []float64) float64 {
	c := m.Assign(jobVec)
	if c < 0 {
		return NeutralFit
	}
	d := dist(m.Scaler.Transform(candVec), m.Centers[c])
	maxD := m.MaxCenterDistance()
	if maxD == 0 {
		if d == 0 {
			return 1
		}
		return 0
	}
	fit := 1 - d/maxD
	if fit < 0 {
		return 0
	}
	if fit > 1 {
		return 1
	}
	return fit
}

// storedPrecision rounds centers to float32, the precision of the pgvector column, so a model
// scores the same before and after it is persisted.
func storedPrecision(centers [][]float64) [][]float64 {
	out := make([][]float64, len(centers))
	for i, c := range centers {
		out[i] = make([]float64, len(c))
		for d, x := range c {
			out[i][d] = float64(float32(x))
		}
	}
	return out
}

type TrainConfig struct {
	MinCandidates int
	MinJobs       int
	KOverride     int
	KMeans        KMeansConfig
}

// Train fits a model over the combined candidate and job matrix.
func Train(candidates, jobs [][]float64, distinctSkills int, catalogFingerprint string, cfg TrainConfig) (*Model, error) {
	if len(candidates) < cfg.MinCandidates || len(jobs) < cfg.MinJobs {
		return nil, fmt.Errorf("%w: %d candidates and %d jobs, need %d and %d",
			domain.ErrInsufficientData, len(candidates), len(jobs), cfg.MinCandidates, cfg.MinJobs)
	}
	matrix := make([][]float64, 0, len(candidates)+len(jobs))
	matrix = append(matrix, candidates...)
	matrix = append(matrix, jobs...)
	if len(matrix) < 2 {
		return nil, fmt.Errorf("%w: need at least two samples", domain.ErrInsufficientData)
	}

	scaler := FitScaler(matrix)
	scaled := make([][]float64, len(matrix))
	for i, row := range matrix {
		scaled[i] = scaler.Transform(row)
	}

	k := ChooseK(len(scaled), distinctSkills, cfg.KOverride)
	res, err := KMeans(scaled, k, cfg.KMeans)
	if err != nil {
		return nil, err
	}

	return &Model{
		ID:                 uuid.New(),
		K:                  k,
		Centers:            storedPrecision(res.Centers),
		Scaler:             scaler,
		Inertia:            res.Inertia,
		Silhouette:         Silhouette(scaled, res.Labels, k, silhouetteSample, cfg.KMeans.Seed),
		CandidateCount:     len(candidates),
		JobCount:           len(jobs),
		Iterations:         res.Iterations,
		Seed:               cfg.KMeans.Seed,
		CatalogFingerprint: catalogFingerprint,
	}, nil
}
