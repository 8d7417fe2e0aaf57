package systems

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"tactics-sim/internal/domain"
	"tactics-sim/pkg/logger"
)

// AttackResult - итог одной атаки.
type AttackResult struct {
	Damage  int
	Killed  bool
	Message string
}

// ApplyAttack наносит урон: сила атакующего минус защита цели, минимум 1.
func ApplyAttack(attacker, target *domain.Entity) AttackResult {
	combatLogger := logger.Log.WithFields(logrus.Fields{
		"component":     "combat_system",
		"attacker_id":   attacker.ID,
		"attacker_name": attacker.Name,
		"target_id":     target.ID,
		"target_name":   target.Name,
	})

	// --- Проверка граничных условий ---

	if target.Stats == nil {
		combatLogger.Warn("Attack failed: target has no StatsComponent.")
		return AttackResult{Message: fmt.Sprintf("%s атакует %s, но это бесполезно.", attacker.Name, target.Name)}
	}
	if target.Stats.IsDead {
		combatLogger.Info("Attack ineffective: target is already dead.")
		return AttackResult{Message: fmt.Sprintf("%s пинает труп %s.", attacker.Name, target.Name)}
	}

	// --- Расчёт урона ---

	baseDamage := 1
	if attacker.Stats != nil {
		baseDamage = attacker.Stats.Strength
	}
	defense := target.Stats.Defense

	finalDamage := baseDamage - defense
	if finalDamage < 1 {
		finalDamage = 1
	}

	hpBefore := target.Stats.HP
	died := target.Stats.TakeDamage(finalDamage)

	combatLogger.WithFields(logrus.Fields{
		"base_damage":  baseDamage,
		"defense":      defense,
		"final_damage": finalDamage,
		"hp_before":    hpBefore,
		"hp_after":     target.Stats.HP,
		"target_died":  died,
	}).Info("Attack resolved.")

	msg := fmt.Sprintf("%s наносит %d урона по %s.", attacker.Name, finalDamage, target.Name)
	if died {
		if target.AI != nil {
			target.AI.CalmDown()
		}
		msg += fmt.Sprintf(" %s погибает.", target.Name)
	}

	return AttackResult{Damage: finalDamage, Killed: died, Message: msg}
}
