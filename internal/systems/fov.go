package systems

import (
	"github.com/sirupsen/logrus"

	"tactics-sim/pkg/logger"
)

// SightMap - то, что нужно FOV и LOS от зоны: террейн, пропы, высоты.
type SightMap interface {
	InBounds(x, y int) bool
	Transparent(x, y int) bool
	Elevation(x, y int) uint8
}

// Мультипликаторы для трансформации координат в 8 октантов
var multipliers = [4][8]int{
	{1, 0, 0, -1, -1, 0, 0, 1},
	{0, 1, -1, 0, 0, -1, 1, 0},
	{0, 1, 1, 0, 0, -1, -1, 0},
	{1, 0, 0, 1, -1, 0, 0, -1},
}

// fovPass - состояние одного расчёта.
type fovPass struct {
	m         SightMap
	eye       int
	tolerance int
	visit     func(x, y int)
}

// ComputeFOV вызывает visit для каждой видимой клетки (центр включительно).
// Клетка выше глаза наблюдателя более чем на tolerance закрывает обзор.
func ComputeFOV(m SightMap, tolerance, x, y, radius int, visit func(x, y int)) {
	fovLogger := logger.Log.WithFields(logrus.Fields{
		"component":    "fov_system",
		"observer_pos": [2]int{x, y},
		"radius":       radius,
	})

	if radius <= 0 || !m.InBounds(x, y) {
		fovLogger.Debug("FOV calculation skipped for blind or misplaced observer.")
		return
	}

	// 1. Центр всегда виден
	visit(x, y)

	// 2. Рекурсивный Shadowcasting для 8 октантов
	p := &fovPass{m: m, eye: int(m.Elevation(x, y)), tolerance: tolerance, visit: visit}
	for i := 0; i < 8; i++ {
		p.castLight(x, y, 1, 1.0, 0.0, radius,
			multipliers[0][i], multipliers[1][i],
			multipliers[2][i], multipliers[3][i])
	}
}

func (p *fovPass) castLight(cx, cy, row int, start, end float64, radius, xx, xy, yx, yy int) {
	if start < end {
		return
	}

	radiusSq := float64(radius * radius)

	for j := row; j <= radius; j++ {
		dx, dy := -j-1, -j
		blocked := false
		newStart := start

		for {
			dx++
			if dx > 0 {
				break
			}

			// Расчет наклонов (Slopes)
			lSlope := (float64(dx) - 0.5) / (float64(dy) + 0.5)
			rSlope := (float64(dx) + 0.5) / (float64(dy) - 0.5)

			if start < rSlope {
				continue
			}
			if end > lSlope {
				break
			}

			// Трансформация координат в глобальные
			X := cx + dx*xx + dy*xy
			Y := cy + dx*yx + dy*yy

			if p.m.InBounds(X, Y) && float64(dx*dx+dy*dy) < radiusSq {
				p.visit(X, Y)
			}

			// Логика теней
			if blocked {
				if p.blocks(X, Y) {
					newStart = rSlope
					continue
				}
				blocked = false
				start = newStart
			} else if p.blocks(X, Y) && j < radius {
				blocked = true
				p.castLight(cx, cy, j+1, start, lSlope, radius, xx, xy, yx, yy)
				newStart = rSlope
			}
		}
		if blocked {
			break
		}
	}
}

func (p *fovPass) blocks(x, y int) bool {
	return BlocksSight(p.m, p.eye, p.tolerance, x, y)
}

// BlocksSight: за границами, непрозрачная клетка или слишком высокая.
func BlocksSight(m SightMap, eye, tolerance, x, y int) bool {
	if !m.InBounds(x, y) {
		return true
	}
	if !m.Transparent(x, y) {
		return true
	}
	return int(m.Elevation(x, y)) > eye+tolerance
}
