package anim

import (
	"strings"

	"tactics-sim/internal/domain"
)

// Tag - вид анимации.
type Tag uint8

const (
	TagUnknown Tag = iota
	TagWait
	TagNonBlockingWait
	TagMove
	TagMeleeAttack
	TagRangedAttack
	TagEntityColor
	TagEntityScale
	TagEntitySubpos
	TagEntityImageLayer
	TagParticleGenerator
	TagEntityDeath
)

var tagToString = map[Tag]string{
	TagWait:              "wait",
	TagNonBlockingWait:   "non_blocking_wait",
	TagMove:              "move",
	TagMeleeAttack:       "melee_attack",
	TagRangedAttack:      "ranged_attack",
	TagEntityColor:       "entity_color",
	TagEntityScale:       "entity_scale",
	TagEntitySubpos:      "entity_subpos",
	TagEntityImageLayer:  "entity_image_layer",
	TagParticleGenerator: "particle_generator",
	TagEntityDeath:       "entity_death",
}

var tagStringToType = func() map[string]Tag {
	m := make(map[string]Tag, len(tagToString))
	for t, s := range tagToString {
		m[s] = t
	}
	return m
}()

func (t Tag) String() string {
	if val, ok := tagToString[t]; ok {
		return val
	}
	return "unknown"
}

func ParseTag(s string) Tag {
	if val, ok := tagStringToType[strings.ToLower(s)]; ok {
		return val
	}
	return TagUnknown
}

// Bucket - слой отрисовки. На логику не влияет.
type Bucket uint8

const (
	BucketNoDraw Bucket = iota
	BucketBelow
	BucketAbove
	bucketCount
)

var bucketToString = map[Bucket]string{
	BucketNoDraw: "no_draw",
	BucketBelow:  "below_entities",
	BucketAbove:  "above_entities",
}

func (b Bucket) String() string {
	if val, ok := bucketToString[b]; ok {
		return val
	}
	return "unknown"
}

// Env - то, что планировщик видит снаружи.
type Env interface {
	Entity(id domain.EntityID) *domain.Entity
	IsVisible(areaID string, r domain.Rect) bool
	// MoveEntity проверяет проходимость и двигает сущность на одну клетку.
	MoveEntity(id domain.EntityID, x, y, squares int) error
}

// Primitive - команда отрисовки для рендера.
type Primitive struct {
	Tag    Tag             `json:"kind"`
	Owner  domain.EntityID `json:"owner"`
	AreaID string          `json:"areaId"`
	Image  string          `json:"image,omitempty"`
	X      float32         `json:"x"`
	Y      float32         `json:"y"`
	Scale  float32         `json:"scale"`
	Color  domain.Color    `json:"color"`
	Count  int             `json:"count,omitempty"`
}

// frame собирает однократные события кадра.
type frame struct {
	attacks []domain.Deferred
}

// Kind - закрытое множество видов анимации. Каждый вид обязан реализовать
// все точки касания; новый вид без одной из них не скомпилируется.
type Kind interface {
	tag() Tag
	update(t *Task, e *domain.Entity, env Env, f *frame)
	cleanup(t *Task, e *domain.Entity)
	removable(t *Task) bool
	blocking(t *Task) bool
	placement(t *Task, e *domain.Entity, env Env) Bucket
	draw(t *Task, e *domain.Entity) (Primitive, bool)
	snapshot(s *TaskSnapshot) bool
}

// baseDraw - примитив в позиции сущности с учётом субпозиции.
func baseDraw(t *Task, e *domain.Entity) Primitive {
	return Primitive{
		Tag:    t.Tag(),
		Owner:  t.owner,
		AreaID: e.AreaID,
		X:      float32(e.Pos.X) + e.Visual.Subpos.X,
		Y:      float32(e.Pos.Y) + e.Visual.Subpos.Y,
		Scale:  e.Visual.Scale,
		Color:  e.Visual.Color,
	}
}

func isVisible(e *domain.Entity, env Env) bool {
	return e != nil && env.IsVisible(e.AreaID, e.Footprint())
}

// --- WAIT ---

// Wait - пауза, блокирующая владельца.
type Wait struct{}

func NewWait(owner domain.EntityID, millis uint32) *Task {
	return NewTask(owner, &Wait{}, Millis(millis))
}

func (*Wait) tag() Tag { return TagWait }
func (*Wait) update(*Task, *domain.Entity, Env, *frame) {}
func (*Wait) cleanup(*Task, *domain.Entity) {}
func (*Wait) removable(*Task) bool { return true }
func (*Wait) blocking(*Task) bool { return true }
func (*Wait) placement(*Task, *domain.Entity, Env) Bucket { return BucketNoDraw }
func (*Wait) draw(*Task, *domain.Entity) (Primitive, bool) { return Primitive{}, false }
func (*Wait) snapshot(*TaskSnapshot) bool { return true }

// NonBlockingWait - таймер для колбэков, владелец может действовать.
type NonBlockingWait struct{}

func NewNonBlockingWait(owner domain.EntityID, d Duration) *Task {
	return NewTask(owner, &NonBlockingWait{}, d)
}

func (*NonBlockingWait) tag() Tag { return TagNonBlockingWait }
func (*NonBlockingWait) update(*Task, *domain.Entity, Env, *frame) {}
func (*NonBlockingWait) cleanup(*Task, *domain.Entity) {}
func (*NonBlockingWait) removable(*Task) bool { return true }
func (*NonBlockingWait) blocking(*Task) bool { return false }
func (*NonBlockingWait) placement(*Task, *domain.Entity, Env) Bucket { return BucketNoDraw }
func (*NonBlockingWait) draw(*Task, *domain.Entity) (Primitive, bool) { return Primitive{}, false }
func (*NonBlockingWait) snapshot(*TaskSnapshot) bool { return true }

// --- MOVE ---

// Move ведёт владельца по пути, по клетке за MoveMillisPerSquare.
// Снимается только после того, как достигнута последняя клетка пути
// (или путь оказался перекрыт).
type Move struct {
	Path    []domain.Position
	step    int
	aborted bool
}

func NewMove(owner domain.EntityID, path []domain.Position) *Task {
	return NewTask(owner, &Move{Path: path}, Millis(uint32(len(path))*domain.MoveMillisPerSquare))
}

func (*Move) tag() Tag { return TagMove }

func (m *Move) update(t *Task, e *domain.Entity, env Env, _ *frame) {
	if e == nil {
		m.aborted = true
		return
	}
	if m.done() {
		e.Visual.Subpos = domain.Subpos{}
		return
	}

	per := t.duration.Millis / uint32(len(m.Path))
	if per == 0 {
		per = 1
	}
	want := int(t.elapsed / per)
	if want > len(m.Path) {
		want = len(m.Path)
	}

	// 1. Шагаем по клеткам, до которых дошло время
	for m.step < want {
		next := m.Path[m.step]
		if err := env.MoveEntity(t.owner, next.X, next.Y, 1); err != nil {
			m.aborted = true
			break
		}
		m.step++
	}

	// 2. Плавное смещение к следующей клетке
	if m.done() {
		e.Visual.Subpos = domain.Subpos{}
		return
	}
	next := m.Path[m.step]
	frac := float32(t.elapsed%per) / float32(per)
	e.Visual.Subpos = domain.Subpos{
		X: float32(next.X-e.Pos.X) * frac,
		Y: float32(next.Y-e.Pos.Y) * frac,
	}
}

func (m *Move) done() bool {
	return m.aborted || m.step >= len(m.Path)
}

func (m *Move) cleanup(_ *Task, e *domain.Entity) {
	if e != nil {
		e.Visual.Subpos = domain.Subpos{}
	}
}

func (m *Move) removable(*Task) bool { return m.done() }
func (*Move) blocking(*Task) bool { return true }

func (*Move) placement(_ *Task, e *domain.Entity, env Env) Bucket {
	if e != nil && e.IsParty() && isVisible(e, env) {
		return BucketBelow
	}
	return BucketNoDraw
}

func (*Move) draw(t *Task, e *domain.Entity) (Primitive, bool) {
	return baseDraw(t, e), true
}

func (*Move) snapshot(*TaskSnapshot) bool { return false }

// --- ATTACKS ---

// lungeAmplitude - максимальный выпад в долях клетки.
const lungeAmplitude = 0.3

// MeleeAttack срабатывает ровно один раз, когда время переходит FireAt.
type MeleeAttack struct {
	Defender  domain.EntityID
	FireAt    uint32
	Callbacks []domain.Callback
	fired     bool
}

func NewMeleeAttack(attacker, defender domain.EntityID, callbacks ...domain.Callback) *Task {
	d := uint32(domain.MeleeMillis)
	return NewTask(attacker, &MeleeAttack{
		Defender:  defender,
		FireAt:    uint32(float64(d) * domain.MeleeFireFraction),
		Callbacks: callbacks,
	}, Millis(d))
}

func (*MeleeAttack) tag() Tag { return TagMeleeAttack }

func (m *MeleeAttack) update(t *Task, e *domain.Entity, env Env, f *frame) {
	if !m.fired && t.elapsed >= m.FireAt {
		m.fired = true
		f.attacks = append(f.attacks, domain.Deferred{
			At: m.FireAt,
			Attack: &domain.AttackEvent{
				Attacker:  t.owner,
				Defender:  m.Defender,
				Callbacks: m.Callbacks,
			},
		})
	}

	if e == nil {
		return
	}
	def := env.Entity(m.Defender)
	if def == nil {
		return
	}
	dx, dy := e.Center().DirectionTo(def.Center())
	p := t.Progress()
	amp := float32(lungeAmplitude) * (1 - abs32(2*p-1))
	e.Visual.Subpos = domain.Subpos{X: float32(dx) * amp, Y: float32(dy) * amp}
}

func (*MeleeAttack) cleanup(_ *Task, e *domain.Entity) {
	if e != nil {
		e.Visual.Subpos = domain.Subpos{}
	}
}

func (m *MeleeAttack) removable(*Task) bool { return m.fired }
func (*MeleeAttack) blocking(*Task) bool { return true }
func (*MeleeAttack) placement(*Task, *domain.Entity, Env) Bucket { return BucketNoDraw }
func (*MeleeAttack) draw(*Task, *domain.Entity) (Primitive, bool) {
	return Primitive{}, false
}
func (*MeleeAttack) snapshot(*TaskSnapshot) bool { return false }

// Fired - сработала ли атака.
func (m *MeleeAttack) Fired() bool { return m.fired }

// RangedAttack - снаряд летит от атакующего к цели и попадает в FireAt.
type RangedAttack struct {
	Defender   domain.EntityID
	FireAt     uint32
	Projectile string
	DrawAbove  bool
	Callbacks  []domain.Callback
	fired      bool
	from, to   domain.Position
	areaID     string
}

func NewRangedAttack(attacker, defender domain.EntityID, projectile string, callbacks ...domain.Callback) *Task {
	d := uint32(domain.RangedMillis)
	return NewTask(attacker, &RangedAttack{
		Defender:   defender,
		FireAt:     d * 3 / 4,
		Projectile: projectile,
		DrawAbove:  true,
		Callbacks:  callbacks,
	}, Millis(d))
}

func (*RangedAttack) tag() Tag { return TagRangedAttack }

func (r *RangedAttack) update(t *Task, e *domain.Entity, env Env, f *frame) {
	if e != nil {
		r.from = e.Center()
		r.areaID = e.AreaID
	}
	if def := env.Entity(r.Defender); def != nil {
		r.to = def.Center()
	}

	if !r.fired && t.elapsed >= r.FireAt {
		r.fired = true
		f.attacks = append(f.attacks, domain.Deferred{
			At: r.FireAt,
			Attack: &domain.AttackEvent{
				Attacker:  t.owner,
				Defender:  r.Defender,
				Ranged:    true,
				Callbacks: r.Callbacks,
			},
		})
	}
}

func (*RangedAttack) cleanup(*Task, *domain.Entity) {}
func (r *RangedAttack) removable(*Task) bool { return r.fired }
func (*RangedAttack) blocking(*Task) bool { return true }

func (r *RangedAttack) placement(_ *Task, e *domain.Entity, env Env) Bucket {
	visible := isVisible(e, env)
	if !visible {
		if def := env.Entity(r.Defender); def != nil {
			visible = isVisible(def, env)
		}
	}
	if visible && r.DrawAbove {
		return BucketAbove
	}
	return BucketNoDraw
}

func (r *RangedAttack) draw(t *Task, _ *domain.Entity) (Primitive, bool) {
	if r.fired || r.FireAt == 0 {
		return Primitive{}, false
	}
	p := float32(t.elapsed) / float32(r.FireAt)
	if p > 1 {
		p = 1
	}
	return Primitive{
		Tag:    TagRangedAttack,
		Owner:  t.owner,
		AreaID: r.areaID,
		Image:  r.Projectile,
		X:      float32(r.from.X) + float32(r.to.X-r.from.X)*p,
		Y:      float32(r.from.Y) + float32(r.to.Y-r.from.Y)*p,
		Scale:  1,
		Color:  domain.White,
	}, true
}

func (*RangedAttack) snapshot(*TaskSnapshot) bool { return false }

func (r *RangedAttack) Fired() bool { return r.fired }

// --- VISUAL STATE ---

// EntityColor тонирует владельца, пока задача жива.
type EntityColor struct {
	Color    domain.Color
	ColorSec domain.Color
}

func NewEntityColor(owner domain.EntityID, c, sec domain.Color, d Duration) *Task {
	return NewTask(owner, &EntityColor{Color: c, ColorSec: sec}, d)
}

func (*EntityColor) tag() Tag { return TagEntityColor }

func (c *EntityColor) update(_ *Task, e *domain.Entity, _ Env, _ *frame) {
	if e != nil {
		e.Visual.Color = c.Color
		e.Visual.ColorSec = c.ColorSec
	}
}

func (*EntityColor) cleanup(_ *Task, e *domain.Entity) {
	if e != nil {
		e.Visual.Color = domain.White
		e.Visual.ColorSec = domain.Color{}
	}
}

func (*EntityColor) removable(*Task) bool { return true }
func (*EntityColor) blocking(*Task) bool { return false }
func (*EntityColor) placement(*Task, *domain.Entity, Env) Bucket { return BucketNoDraw }
func (*EntityColor) draw(*Task, *domain.Entity) (Primitive, bool) { return Primitive{}, false }

func (c *EntityColor) snapshot(s *TaskSnapshot) bool {
	s.Color = &c.Color
	s.ColorSec = &c.ColorSec
	return true
}

// EntityScale плавно меняет масштаб от From к To.
type EntityScale struct {
	From, To float32
}

func NewEntityScale(owner domain.EntityID, from, to float32, d Duration) *Task {
	return NewTask(owner, &EntityScale{From: from, To: to}, d)
}

func (*EntityScale) tag() Tag { return TagEntityScale }

func (s *EntityScale) update(t *Task, e *domain.Entity, _ Env, _ *frame) {
	if e == nil {
		return
	}
	if t.duration.Infinite {
		e.Visual.Scale = s.To
		return
	}
	e.Visual.Scale = s.From + (s.To-s.From)*t.Progress()
}

func (*EntityScale) cleanup(_ *Task, e *domain.Entity) {
	if e != nil {
		e.Visual.Scale = 1
	}
}

func (*EntityScale) removable(*Task) bool { return true }
func (*EntityScale) blocking(t *Task) bool { return t.duration.Infinite }
func (*EntityScale) placement(*Task, *domain.Entity, Env) Bucket { return BucketNoDraw }
func (*EntityScale) draw(*Task, *domain.Entity) (Primitive, bool) { return Primitive{}, false }

func (s *EntityScale) snapshot(out *TaskSnapshot) bool {
	out.ScaleFrom, out.ScaleTo = s.From, s.To
	return true
}

// EntitySubpos сдвигает спрайт владельца на (X, Y) долей клетки.
type EntitySubpos struct {
	X, Y float32
}

func NewEntitySubpos(owner domain.EntityID, x, y float32, d Duration) *Task {
	return NewTask(owner, &EntitySubpos{X: x, Y: y}, d)
}

func (*EntitySubpos) tag() Tag { return TagEntitySubpos }

func (s *EntitySubpos) update(t *Task, e *domain.Entity, _ Env, _ *frame) {
	if e == nil {
		return
	}
	p := t.Progress()
	if t.duration.Infinite {
		p = 1
	}
	e.Visual.Subpos = domain.Subpos{X: s.X * p, Y: s.Y * p}
}

func (*EntitySubpos) cleanup(_ *Task, e *domain.Entity) {
	if e != nil {
		e.Visual.Subpos = domain.Subpos{}
	}
}

func (*EntitySubpos) removable(*Task) bool { return true }
func (*EntitySubpos) blocking(*Task) bool { return true }
func (*EntitySubpos) placement(*Task, *domain.Entity, Env) Bucket { return BucketNoDraw }
func (*EntitySubpos) draw(*Task, *domain.Entity) (Primitive, bool) { return Primitive{}, false }

func (s *EntitySubpos) snapshot(out *TaskSnapshot) bool {
	out.SubX, out.SubY = s.X, s.Y
	return true
}

// EntityImageLayer временно подменяет слои изображения владельца.
type EntityImageLayer struct {
	Layers map[string]string
}

func NewEntityImageLayer(owner domain.EntityID, layers map[string]string, d Duration) *Task {
	return NewTask(owner, &EntityImageLayer{Layers: layers}, d)
}

func (*EntityImageLayer) tag() Tag { return TagEntityImageLayer }

func (l *EntityImageLayer) update(_ *Task, e *domain.Entity, _ Env, _ *frame) {
	if e == nil {
		return
	}
	if e.Visual.ImageLayers == nil {
		e.Visual.ImageLayers = make(map[string]string, len(l.Layers))
	}
	for slot, img := range l.Layers {
		e.Visual.ImageLayers[slot] = img
	}
}

func (l *EntityImageLayer) cleanup(_ *Task, e *domain.Entity) {
	if e == nil {
		return
	}
	for slot := range l.Layers {
		delete(e.Visual.ImageLayers, slot)
	}
}

func (*EntityImageLayer) removable(*Task) bool { return true }
func (*EntityImageLayer) blocking(t *Task) bool { return t.duration.Infinite }
func (*EntityImageLayer) placement(*Task, *domain.Entity, Env) Bucket { return BucketNoDraw }
func (*EntityImageLayer) draw(*Task, *domain.Entity) (Primitive, bool) { return Primitive{}, false }

func (l *EntityImageLayer) snapshot(out *TaskSnapshot) bool {
	out.Layers = l.Layers
	return true
}

// --- PARTICLES ---

// ParticleGenerator испускает Rate частиц в секунду в точке Pos
// (или в центре владельца, если он есть).
type ParticleGenerator struct {
	Image     string
	AreaID    string
	Pos       domain.Position
	Rate      float32
	DrawAbove bool
	emitted   int
}

func NewParticleGenerator(owner domain.EntityID, areaID, image string, pos domain.Position, rate float32, above bool, d Duration) *Task {
	return NewTask(owner, &ParticleGenerator{Image: image, AreaID: areaID, Pos: pos, Rate: rate, DrawAbove: above}, d)
}

func (*ParticleGenerator) tag() Tag { return TagParticleGenerator }

func (p *ParticleGenerator) update(t *Task, e *domain.Entity, _ Env, _ *frame) {
	if e != nil {
		p.Pos = e.Center()
		p.AreaID = e.AreaID
	}
	p.emitted = int(float32(t.elapsed) * p.Rate / 1000)
}

func (*ParticleGenerator) cleanup(*Task, *domain.Entity) {}
func (*ParticleGenerator) removable(*Task) bool { return true }
func (*ParticleGenerator) blocking(t *Task) bool { return t.duration.Infinite }

func (p *ParticleGenerator) placement(_ *Task, e *domain.Entity, env Env) Bucket {
	pos, area := p.Pos, p.AreaID
	if e != nil {
		pos, area = e.Center(), e.AreaID
	}
	if p.DrawAbove && env.IsVisible(area, domain.Rect{X: pos.X, Y: pos.Y, W: 1, H: 1}) {
		return BucketAbove
	}
	return BucketNoDraw
}

func (p *ParticleGenerator) draw(t *Task, _ *domain.Entity) (Primitive, bool) {
	return Primitive{
		Tag:    TagParticleGenerator,
		Owner:  t.owner,
		AreaID: p.AreaID,
		Image:  p.Image,
		X:      float32(p.Pos.X),
		Y:      float32(p.Pos.Y),
		Scale:  1,
		Color:  domain.White,
		Count:  p.emitted,
	}, true
}

func (p *ParticleGenerator) snapshot(out *TaskSnapshot) bool {
	out.Image = p.Image
	out.AreaID = p.AreaID
	out.X, out.Y = p.Pos.X, p.Pos.Y
	out.Rate = p.Rate
	out.DrawAbove = p.DrawAbove
	return true
}

// --- DEATH ---

// EntityDeath растворяет владельца. Его завершение снимает тело с карты.
type EntityDeath struct{}

func NewEntityDeath(owner domain.EntityID) *Task {
	return NewTask(owner, &EntityDeath{}, Millis(domain.DeathMillis))
}

func (*EntityDeath) tag() Tag { return TagEntityDeath }

func (*EntityDeath) update(t *Task, e *domain.Entity, _ Env, _ *frame) {
	if e != nil {
		e.Visual.Color[3] = 1 - t.Progress()
	}
}

func (*EntityDeath) cleanup(_ *Task, e *domain.Entity) {
	if e != nil {
		e.Visual.Color[3] = 1
	}
}

func (*EntityDeath) removable(*Task) bool { return true }
func (*EntityDeath) blocking(*Task) bool { return true }
func (*EntityDeath) placement(*Task, *domain.Entity, Env) Bucket { return BucketNoDraw }
func (*EntityDeath) draw(*Task, *domain.Entity) (Primitive, bool) { return Primitive{}, false }
func (*EntityDeath) snapshot(*TaskSnapshot) bool { return false }

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
