package vec

import "math"

// Vec2 представляет 2D координаты (колонку X/Z для карты высот)
type Vec2 struct {
	X, Y int
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2) DistanceTo(other Vec2) float64 {
	dx := float64(v.X - other.X)
	dy := float64(v.Y - other.Y)
	return math.Sqrt(dx*dx + dy*dy)
}
