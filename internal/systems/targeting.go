package systems

import (
	"tactics-sim/internal/domain"
)

// ValidationResult - результат проверки цели
type ValidationResult struct {
	Valid   bool
	Message string // Сообщение об ошибке, если Valid == false
}

// ValidateAttack проверяет, может ли actor атаковать target.
// Ближняя атака ограничена Reach, дальняя - радиусом зрения; обе требуют LOS.
func ValidateAttack(actor, target *domain.Entity, ranged bool, w World, tolerance int) ValidationResult {
	// 1. Цель
	if target == nil || !target.IsAlive() {
		return ValidationResult{Message: "Цель не найдена."}
	}
	if actor.AreaID != target.AreaID {
		return ValidationResult{Message: "Цель слишком далеко."}
	}

	// 2. Дистанция
	limit := 1
	if actor.Stats != nil && actor.Stats.Reach > 0 {
		limit = actor.Stats.Reach
	}
	if ranged {
		limit = domain.DefaultVisionRadius
		if actor.Vision != nil {
			limit = actor.Vision.Radius
		}
	}
	if gap := actor.Footprint().GapTo(target.Footprint()); gap > limit {
		return ValidationResult{Message: "Цель слишком далеко."}
	}

	// 3. Видимость (Line of Sight)
	if !HasLineOfSight(w, tolerance, actor.Center(), target.Center()) {
		return ValidationResult{Message: "Вы не видите цель."}
	}

	return ValidationResult{Valid: true}
}
