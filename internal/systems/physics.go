package systems

import (
	"github.com/sirupsen/logrus"

	"tactics-sim/internal/domain"
	"tactics-sim/pkg/logger"
)

// HasLineOfSight проверяет прямую видимость между двумя точками.
// Использует алгоритм Брезенхэма (только целочисленная арифметика).
// Начальная и конечная клетки не проверяются.
func HasLineOfSight(m SightMap, tolerance int, p1, p2 domain.Position) bool {
	losLogger := logger.Log.WithFields(logrus.Fields{
		"component": "physics_system",
		"function":  "HasLineOfSight",
		"start_pos": p1,
		"end_pos":   p2,
	})

	if p1 == p2 {
		return true
	}

	eye := int(m.Elevation(p1.X, p1.Y))
	x0, y0 := p1.X, p1.Y
	x1, y1 := p2.X, p2.Y

	dx := domain.Abs(x1 - x0)
	dy := domain.Abs(y1 - y0)
	sx, sy := p1.DirectionTo(p2)

	err := dx - dy

	for {
		isStartPoint := x0 == p1.X && y0 == p1.Y
		isEndPoint := x0 == p2.X && y0 == p2.Y

		if !isStartPoint && !isEndPoint && BlocksSight(m, eye, tolerance, x0, y0) {
			losLogger.WithField("blocking_point", map[string]int{"x": x0, "y": y0}).
				Debug("Line of sight blocked.")
			return false
		}

		if x0 == x1 && y0 == y1 {
			break
		}

		e2 := err * 2
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}

	return true
}
