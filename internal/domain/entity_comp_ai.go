package domain

// Wait добавляет задержку к следующему действию
func (a *AIComponent) Wait(ticks int) {
	a.NextActionTick += ticks
}

// BeginTurn восстанавливает очки действий.
func (a *AIComponent) BeginTurn() {
	a.ActionPoints = a.MaxAP
}

// SpendAP тратит очки действий. Возвращает false, если не хватило.
func (a *AIComponent) SpendAP(cost int) bool {
	if a.ActionPoints < cost {
		return false
	}
	a.ActionPoints -= cost
	return true
}

// EnterCombat переводит актора в боевой режим
func (a *AIComponent) EnterCombat() {
	a.State = AIStateCombat
}

// CalmDown возвращает актора в мирный режим
func (a *AIComponent) CalmDown() {
	a.State = AIStateIdle
	a.ActionPoints = a.MaxAP
}

// IsReady проверяет, настал ли ход (относительно глобального времени)
func (a *AIComponent) IsReady(globalTick int) bool {
	return a.NextActionTick <= globalTick
}
