package domain

// TakeDamage наносит урон. Возвращает true, если цель погибла.
func (s *StatsComponent) TakeDamage(amount int) bool {
	if s.IsDead {
		return false
	}
	if amount < 0 {
		amount = 0
	}

	s.HP -= amount

	if s.HP <= 0 {
		s.HP = 0
		s.IsDead = true
		return true
	}
	return false
}

// Heal лечит сущность
func (s *StatsComponent) Heal(amount int) {
	if s.IsDead {
		return // Трупы лечит только Revive
	}
	s.HP += amount
	if s.HP > s.MaxHP {
		s.HP = s.MaxHP
	}
}

// Revive поднимает сущность с заданным HP (минимум 1).
func (s *StatsComponent) Revive(hp int) {
	if hp < 1 {
		hp = 1
	}
	if hp > s.MaxHP {
		hp = s.MaxHP
	}
	s.HP = hp
	s.IsDead = false
}
