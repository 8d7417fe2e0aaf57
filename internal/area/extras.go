package area

import (
	"sort"

	"tactics-sim/internal/domain"
	"tactics-sim/internal/systems"
)

// Merchant - торговец зоны. Ассортимент сохраняется вместе с зоной.
type Merchant struct {
	ID    string             `json:"id"`
	Items []domain.ItemStack `json:"items"`
}

// Feedback - всплывающий текст над клеткой.
type Feedback struct {
	Text string          `json:"text"`
	Pos  domain.Position `json:"pos"`
	Age  uint32          `json:"age"`
}

// Targeter - активный режим выбора цели (заклинание, бросок).
type Targeter interface {
	// ShouldCancel вызывается каждый кадр; true - режим снимается.
	ShouldCancel(s *State) bool
	Cancel()
}

// Merchant возвращает торговца по id или nil.
func (s *State) Merchant(id string) *Merchant {
	return s.merchants[id]
}

// Merchants - торговцы в порядке id.
func (s *State) Merchants() []*Merchant {
	out := make([]*Merchant, 0, len(s.merchants))
	for _, m := range s.merchants {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Buy перекладывает товар от торговца покупателю.
func (m *Merchant) Buy(itemID string, qty int, into []domain.ItemStack) ([]domain.ItemStack, error) {
	rest, out, err := systems.TransferItem(m.Items, into, itemID, qty)
	if err != nil {
		return into, err
	}
	m.Items = rest
	return out, nil
}

// Sell возвращает товар торговцу.
func (m *Merchant) Sell(itemID string, qty int, from []domain.ItemStack) ([]domain.ItemStack, error) {
	rest, stock, err := systems.TransferItem(from, m.Items, itemID, qty)
	if err != nil {
		return from, err
	}
	m.Items = stock
	return rest, nil
}

func (s *State) AddFeedback(text string, pos domain.Position) {
	s.feedback = append(s.feedback, Feedback{Text: text, Pos: pos})
}

// Feedback - копия активных надписей.
func (s *State) Feedback() []Feedback {
	return append([]Feedback(nil), s.feedback...)
}

func (s *State) SetTargeter(t Targeter) {
	if s.targeter != nil {
		s.targeter.Cancel()
	}
	s.targeter = t
}

func (s *State) Targeter() Targeter {
	return s.targeter
}

func (s *State) CancelTargeter() {
	if s.targeter == nil {
		return
	}
	s.targeter.Cancel()
	s.targeter = nil
}

// Update - покадровое обслуживание зоны.
func (s *State) Update(deltaMillis uint32) {
	// 1. Пропы, помеченные на удаление
	s.sweepProps()

	// 2. Всплывающий текст
	if len(s.feedback) > 0 {
		kept := s.feedback[:0]
		for _, f := range s.feedback {
			f.Age += deltaMillis
			if f.Age < s.env.FeedbackMillis {
				kept = append(kept, f)
			}
		}
		s.feedback = kept
	}

	// 3. Таргетер
	if s.targeter != nil && s.targeter.ShouldCancel(s) {
		s.log.Debug("Targeter cancelled")
		s.CancelTargeter()
	}
}
