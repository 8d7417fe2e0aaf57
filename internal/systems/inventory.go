package systems

import (
	"fmt"

	"tactics-sim/internal/domain"
)

// CountItem - сколько единиц id лежит в стопках.
func CountItem(stacks []domain.ItemStack, id string) int {
	n := 0
	for _, s := range stacks {
		if s.ID == id {
			n += s.Quantity
		}
	}
	return n
}

// AddItem добавляет qty к существующей стопке или заводит новую.
func AddItem(stacks []domain.ItemStack, id string, qty int) []domain.ItemStack {
	if qty <= 0 {
		return stacks
	}
	for i := range stacks {
		if stacks[i].ID == id {
			stacks[i].Quantity += qty
			return stacks
		}
	}
	return append(stacks, domain.ItemStack{ID: id, Quantity: qty})
}

// TakeItem убирает qty единиц. Пустые стопки выкидываются.
func TakeItem(stacks []domain.ItemStack, id string, qty int) ([]domain.ItemStack, error) {
	if qty <= 0 {
		return stacks, fmt.Errorf("некорректное количество: %d", qty)
	}
	if have := CountItem(stacks, id); have < qty {
		return stacks, fmt.Errorf("недостаточно %s: есть %d, нужно %d", id, have, qty)
	}

	out := stacks[:0]
	for _, s := range stacks {
		if s.ID == id && qty > 0 {
			take := s.Quantity
			if take > qty {
				take = qty
			}
			s.Quantity -= take
			qty -= take
		}
		if s.Quantity > 0 {
			out = append(out, s)
		}
	}
	return out, nil
}

// TransferItem перекладывает qty единиц из from в to.
func TransferItem(from, to []domain.ItemStack, id string, qty int) ([]domain.ItemStack, []domain.ItemStack, error) {
	rest, err := TakeItem(from, id, qty)
	if err != nil {
		return from, to, err
	}
	return rest, AddItem(to, id, qty), nil
}
