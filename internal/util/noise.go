package util

import (
	"github.com/aquilax/go-perlin"
)

// HeightNoise обёртка над шумом Перлина с фиксированным сидом
type HeightNoise struct {
	seed  int64
	noise *perlin.Perlin
}

// NewHeightNoise создаёт генератор шума Перлина с указанным сидом
func NewHeightNoise(seed int64) *HeightNoise {
	alpha := 2.0  // Сглаживание шума
	beta := 2.0   // Частота шума
	n := int32(3) // Количество октав
	return &HeightNoise{seed: seed, noise: perlin.NewPerlin(alpha, beta, n, seed)}
}

// Seed возвращает сид генератора
func (h *HeightNoise) Seed() int64 { return h.seed }

// Noise2D возвращает значение шума Перлина для указанных координат (от 0 до 1)
func (h *HeightNoise) Noise2D(x, y float64) float64 {
	// Получаем значение шума (от -1 до 1) и преобразуем в диапазон от 0 до 1
	v := (h.noise.Noise2D(x, y) + 1.0) / 2.0
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
