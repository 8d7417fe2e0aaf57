package systems

import (
	"github.com/sirupsen/logrus"

	"tactics-sim/internal/domain"
	"tactics-sim/pkg/logger"
)

// AIAction - решение ИИ на один ход.
type AIAction uint8

const (
	AIActionWait AIAction = iota
	AIActionMove
	AIActionAttack
)

var aiActionToString = map[AIAction]string{
	AIActionWait:   "WAIT",
	AIActionMove:   "MOVE",
	AIActionAttack: "ATTACK",
}

func (a AIAction) String() string {
	if val, ok := aiActionToString[a]; ok {
		return val
	}
	return "UNKNOWN"
}

type AIDecision struct {
	Action AIAction
	Target domain.EntityID
	DX, DY int
}

// ComputeNPCAction решает, что делать NPC по отношению к цели.
func ComputeNPCAction(npc, target *domain.Entity, w World, tolerance int) AIDecision {
	aiLogger := logger.Log.WithFields(logrus.Fields{
		"component": "ai_system",
		"entity_id": npc.ID,
		"name":      npc.Name,
	})

	wait := AIDecision{Action: AIActionWait}

	if npc.AI == nil || !npc.IsAlive() || target == nil || !target.IsAlive() || !npc.IsHostileTo(target) {
		aiLogger.Debug("Invalid state (dead, no target, not hostile). Action: WAIT")
		return wait
	}

	gap := npc.Footprint().GapTo(target.Footprint())

	// Проверка видимости
	if !HasLineOfSight(w, tolerance, npc.Center(), target.Center()) {
		aiLogger.Debug("Target not visible. Action: WAIT")
		return wait
	}

	// Если в радиусе атаки (включая диагонали)
	reach := 1
	if npc.Stats != nil && npc.Stats.Reach > 0 {
		reach = npc.Stats.Reach
	}
	if gap <= reach {
		aiLogger.WithField("gap", gap).Debug("Target in attack range. Action: ATTACK")
		return AIDecision{Action: AIActionAttack, Target: target.ID}
	}

	// Видим, но цель за пределами агро-радиуса
	radius := domain.DefaultVisionRadius
	if npc.Vision != nil {
		radius = npc.Vision.Radius
	}
	if gap > radius {
		aiLogger.WithField("gap", gap).Debug("Target out of aggro range. Action: WAIT")
		return wait
	}

	dx, dy := StepToward(npc, target.Pos, w)
	if dx == 0 && dy == 0 {
		aiLogger.Debug("Path is blocked. Action: WAIT")
		return wait
	}

	aiLogger.WithFields(logrus.Fields{"dx": dx, "dy": dy}).Debug("Action: MOVE")
	return AIDecision{Action: AIActionMove, DX: dx, DY: dy}
}

// NearestHostile - ближайший живой враг из списка кандидатов.
func NearestHostile(npc *domain.Entity, candidates []*domain.Entity) *domain.Entity {
	var best *domain.Entity
	bestGap := 0
	for _, c := range candidates {
		if c == nil || c.ID == npc.ID || !c.IsAlive() || !npc.IsHostileTo(c) {
			continue
		}
		gap := npc.Footprint().GapTo(c.Footprint())
		if best == nil || gap < bestGap || (gap == bestGap && c.ID < best.ID) {
			best, bestGap = c, gap
		}
	}
	return best
}
