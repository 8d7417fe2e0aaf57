package systems

import (
	"tactics-sim/internal/domain"
	"tactics-sim/internal/grid"
)

// World - минимальный интерфейс зоны для систем.
type World interface {
	SightMap
	IsPassable(req grid.Requester, ignore []domain.EntityID, x, y int) bool
	EntityAt(x, y int) domain.EntityID
}

// MovementResult - результат вычисления движения
type MovementResult struct {
	NewPos    domain.Position
	HasMoved  bool
	BlockedBy domain.EntityID // Если врезались в кого-то (для атаки)
	IsWall    bool            // Если врезались в стену или проп
}

// CalculateMove вычисляет новую позицию. Не меняет состояние мира!
func CalculateMove(e *domain.Entity, dx, dy int, w World) MovementResult {
	targetPos := e.Pos.Shift(dx, dy)
	res := MovementResult{NewPos: targetPos}

	if w.IsPassable(grid.RequesterOf(e), nil, targetPos.X, targetPos.Y) {
		res.HasMoved = true
		return res
	}

	// Разбираемся, что мешает: сущность или статика
	blocker := domain.NilEntityID
	domain.FootprintOf(targetPos, e.Size).Each(func(x, y int) {
		if !blocker.IsNil() {
			return
		}
		if other := w.EntityAt(x, y); !other.IsNil() && other != e.ID {
			blocker = other
		}
	})
	if !blocker.IsNil() {
		res.BlockedBy = blocker
		return res
	}

	res.IsWall = true
	return res
}

// StepToward выбирает шаг к цели: сначала по диагонали,
// затем скольжение вдоль приоритетной оси. (0, 0) - тупик.
func StepToward(e *domain.Entity, goal domain.Position, w World) (int, int) {
	dxRaw := goal.X - e.Pos.X
	dyRaw := goal.Y - e.Pos.Y

	stepX := domain.Sign(dxRaw)
	stepY := domain.Sign(dyRaw)
	if stepX == 0 && stepY == 0 {
		return 0, 0
	}

	// Попытка 1: Идеальный путь
	if CalculateMove(e, stepX, stepY, w).HasMoved {
		return stepX, stepY
	}

	// Попытка 2: Smart Sliding (выбор приоритетной оси)
	tryXFirst := domain.Abs(dxRaw) > domain.Abs(dyRaw)

	if tryXFirst {
		if stepX != 0 && CalculateMove(e, stepX, 0, w).HasMoved {
			return stepX, 0
		}
		if stepY != 0 && CalculateMove(e, 0, stepY, w).HasMoved {
			return 0, stepY
		}
	} else {
		if stepY != 0 && CalculateMove(e, 0, stepY, w).HasMoved {
			return 0, stepY
		}
		if stepX != 0 && CalculateMove(e, stepX, 0, w).HasMoved {
			return stepX, 0
		}
	}

	return 0, 0
}
