package domain

// Registry - плоский реестр сущностей сессии. Владеет сущностями;
// зоны, анимации и эффекты держат только EntityID.
type Registry struct {
	slots []registrySlot
	free  []uint32
	count int
}

type registrySlot struct {
	gen    uint16
	entity *Entity
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Insert занимает слот (свободный или новый) и проставляет e.ID.
func (r *Registry) Insert(kind EntityKind, e *Entity) EntityID {
	var idx uint32
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		r.slots = append(r.slots, registrySlot{})
		idx = uint32(len(r.slots) - 1)
	}

	slot := &r.slots[idx]
	slot.gen++
	if slot.gen == 0 {
		slot.gen = 1 // поколение 0 зарезервировано под NilEntityID
	}
	slot.entity = e
	e.ID = PackEntityID(kind, slot.gen, idx)
	r.count++
	return e.ID
}

// Get возвращает сущность или nil, если хэндл устарел.
func (r *Registry) Get(id EntityID) *Entity {
	if id.IsNil() {
		return nil
	}
	idx := id.Index()
	if int(idx) >= len(r.slots) {
		return nil
	}
	slot := r.slots[idx]
	if slot.entity == nil || slot.gen != id.Generation() {
		return nil
	}
	return slot.entity
}

// Remove освобождает слот. Повторное удаление - no-op.
func (r *Registry) Remove(id EntityID) bool {
	if r.Get(id) == nil {
		return false
	}
	idx := id.Index()
	r.slots[idx].entity = nil
	r.free = append(r.free, idx)
	r.count--
	return true
}

// Each обходит живые сущности в порядке слотов.
func (r *Registry) Each(fn func(e *Entity)) {
	for i := range r.slots {
		if e := r.slots[i].entity; e != nil {
			fn(e)
		}
	}
}

func (r *Registry) Len() int {
	return r.count
}
