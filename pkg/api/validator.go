package api

import "errors"

// MaxPathLength - самый длинный путь, который принимает PATH.
const MaxPathLength = 64

// Validator - интерфейс, который могут реализовать DTO
type Validator interface {
	Validate() error
}

func (p DirectionPayload) Validate() error {
	if p.Dx == 0 && p.Dy == 0 {
		return errors.New("movement vector cannot be zero")
	}
	if p.Dx < -1 || p.Dx > 1 || p.Dy < -1 || p.Dy > 1 {
		return errors.New("movement step too large")
	}
	return nil
}

func (p PathPayload) Validate() error {
	if len(p.Path) == 0 {
		return errors.New("path is empty")
	}
	if len(p.Path) > MaxPathLength {
		return errors.New("path too long")
	}
	for _, step := range p.Path {
		if err := step.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (p EntityPayload) Validate() error {
	if p.TargetID == "" {
		return errors.New("targetId is required")
	}
	return nil
}

func (p PositionPayload) Validate() error {
	if p.X < 0 || p.Y < 0 {
		return errors.New("position must be non-negative")
	}
	return nil
}

func (p ItemPayload) Validate() error {
	if p.ItemID == "" {
		return errors.New("itemId is required")
	}
	if p.Count < 0 {
		return errors.New("count must be non-negative")
	}
	return PositionPayload{X: p.X, Y: p.Y}.Validate()
}

func (p TradePayload) Validate() error {
	if p.MerchantID == "" || p.ItemID == "" {
		return errors.New("merchantId and itemId are required")
	}
	if p.Count < 0 {
		return errors.New("count must be non-negative")
	}
	return nil
}
