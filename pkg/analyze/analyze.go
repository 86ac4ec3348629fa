// Package analyze finds the point of diminishing returns in a swept
// metric curve: the knee (Kneedle) and, separately, the longest linear
// region in a curve (RANSAC-fitted slope). Both operate on plain
// (x, y) points and know nothing about workloads or trials.
package analyze

import (
	"math"
	"math/rand"
	"sort"
)

// Point is one (x, y) sample in a swept curve. OriginalValue carries the
// caller's own representation of x (an int queue depth, a block size in
// bytes, ...) through to the result without the curve math needing to
// know its type.
type Point struct {
	X             float64
	Y             float64
	OriginalValue int
}

// FindKnee returns the point of maximum distance above the diagonal
// connecting a curve's first and last point, after normalizing both
// axes to [0, 1]. It assumes the curve is concave: increasing, then
// flattening, the shape a throughput-vs-concurrency sweep produces once
// a device saturates.
func FindKnee(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}
	if len(points) < 3 {
		return points[len(points)-1]
	}

	sorted := append([]Point(nil), points...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	minX, maxX := sorted[0].X, sorted[len(sorted)-1].X
	minY, maxY := sorted[0].Y, sorted[0].Y
	for _, p := range sorted {
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	if maxX == minX || maxY == minY {
		return sorted[len(sorted)-1]
	}

	maxDist := math.Inf(-1)
	var knee Point
	for _, p := range sorted {
		xNorm := (p.X - minX) / (maxX - minX)
		yNorm := (p.Y - minY) / (maxY - minY)
		dist := yNorm - xNorm
		if dist > maxDist {
			maxDist = dist
			knee = p
		}
	}
	return knee
}

// LinearFit is the line that the most points of a curve fit within a
// relative error tolerance, found by RANSAC and refined with an
// ordinary least-squares pass on its inliers. The inliers need not be
// contiguous; StartX and EndX are the smallest and largest inlier X.
type LinearFit struct {
	Slope       float64
	Intercept   float64
	Coverage    float64 // fraction of all points that are inliers
	StartX      float64
	EndX        float64
	InlierCount int
}

// FindDominantLinearRegion fits the line that the most points fall
// within tolerance (a relative error) of, counting inliers over all
// points rather than over a contiguous run.
func FindDominantLinearRegion(points []Point, tolerance float64) LinearFit {
	n := len(points)
	if n < 2 {
		return LinearFit{}
	}

	const iterations = 500
	var bestInliers []Point

	for i := 0; i < iterations; i++ {
		a := rand.Intn(n)
		b := rand.Intn(n)
		if a == b {
			continue
		}
		p1, p2 := points[a], points[b]
		if math.Abs(p2.X-p1.X) < 1e-9 {
			continue
		}
		m := (p2.Y - p1.Y) / (p2.X - p1.X)
		c := p1.Y - m*p1.X

		inliers := make([]Point, 0, n)
		for _, p := range points {
			predicted := m*p.X + c
			var relErr float64
			if math.Abs(p.Y) < 1e-9 {
				relErr = math.Abs(predicted - p.Y)
			} else {
				relErr = math.Abs(predicted-p.Y) / math.Abs(p.Y)
			}
			if relErr <= tolerance {
				inliers = append(inliers, p)
			}
		}
		if len(inliers) > len(bestInliers) {
			bestInliers = inliers
		}
	}

	if len(bestInliers) < 2 {
		return LinearFit{}
	}

	m, c := leastSquares(bestInliers)
	minX, maxX := bestInliers[0].X, bestInliers[0].X
	for _, p := range bestInliers {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
	}

	return LinearFit{
		Slope:       m,
		Intercept:   c,
		Coverage:    float64(len(bestInliers)) / float64(n),
		StartX:      minX,
		EndX:        maxX,
		InlierCount: len(bestInliers),
	}
}

func leastSquares(points []Point) (slope, intercept float64) {
	var sumX, sumY, sumXY, sumXX float64
	n := float64(len(points))
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
		sumXY += p.X * p.Y
		sumXX += p.X * p.X
	}
	slope = (n*sumXY - sumX*sumY) / (n*sumXX - sumX*sumX)
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}
