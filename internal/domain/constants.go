package domain

// Стоимость действий в тиках хода (Time Units)
const (
	TimeCostMove   = 100
	TimeCostAttack = 150
	TimeCostWait   = 50
	TimeCostRound  = 600 // полный круг очереди в бою
)

// Очки действий
const (
	DefaultMaxAP = 6
	APCostMove   = 1
	APCostAttack = 3
)

// Параметры восприятия
const (
	DefaultVisionRadius = 9
	MinVisionRadius     = 1
)

// Анимации по умолчанию (мс)
const (
	MoveMillisPerSquare = 120
	MeleeMillis         = 500
	RangedMillis        = 600
	DeathMillis         = 800
	MeleeFireFraction   = 0.8
)
