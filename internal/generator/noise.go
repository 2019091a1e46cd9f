package generator

import "github.com/aquilax/go-perlin"

// noiseMap - шум Перлина с несколькими октавами
type noiseMap struct {
	perlin      *perlin.Perlin
	scale       float64 // Масштаб (чем меньше, тем более плавный рельеф)
	persistence float64 // Множитель амплитуды между октавами
	lacunarity  float64 // Множитель частоты между октавами
}

func newNoiseMap(seed int64, scale float64) *noiseMap {
	// alpha, beta и n - параметры самого perlin.NewPerlin
	return &noiseMap{
		perlin:      perlin.NewPerlin(2.0, 2.0, 3, seed),
		scale:       scale,
		persistence: 0.5,
		lacunarity:  2.0,
	}
}

// octave2D возвращает сумму октав шума в диапазоне примерно [-1, 1]
func (nm *noiseMap) octave2D(x, y float64, octaves int) float64 {
	x *= nm.scale
	y *= nm.scale

	amplitude := 1.0
	frequency := 1.0
	total := 0.0
	maxValue := 0.0

	for i := 0; i < octaves; i++ {
		total += nm.perlin.Noise2D(x*frequency, y*frequency) * amplitude
		maxValue += amplitude

		amplitude *= nm.persistence
		frequency *= nm.lacunarity
	}
	return total / maxValue
}

// normalized2D переводит octave2D в диапазон [0, 1]
func (nm *noiseMap) normalized2D(x, y float64, octaves int) float64 {
	v := (nm.octave2D(x, y, octaves) + 1) / 2
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
