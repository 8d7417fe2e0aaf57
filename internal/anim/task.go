package anim

import (
	"sort"

	"tactics-sim/internal/domain"
)

// Duration - конечная длительность в мс или бесконечная.
type Duration struct {
	Millis   uint32
	Infinite bool
}

// Millis - конечная длительность.
func Millis(ms uint32) Duration {
	return Duration{Millis: ms}
}

// Forever - анимация живёт, пока её не снимут флагом.
var Forever = Duration{Infinite: true}

// RemovalFlag - общий флаг снятия. Его могут держать эффект, действие
// или глобальная очистка; планировщик читает его только в начале тика.
type RemovalFlag struct {
	requested bool
	forced    bool
}

// Request просит снять задачу; колбэки завершения сработают.
func (f *RemovalFlag) Request() {
	f.requested = true
}

// RequestForced снимает задачу без колбэков завершения.
func (f *RemovalFlag) RequestForced() {
	f.requested = true
	f.forced = true
}

func (f *RemovalFlag) Requested() bool {
	return f != nil && f.requested
}

func (f *RemovalFlag) Forced() bool {
	return f != nil && f.forced
}

// Update - колбэк, запланированный на момент At от начала анимации.
type Update struct {
	At       uint32
	Callback domain.Callback
}

// NoEffect - у задачи нет эффекта-владельца.
const NoEffect = -1

// Task - одна анимация. Держит хэндл владельца, но не наоборот.
type Task struct {
	kind     Kind
	owner    domain.EntityID
	elapsed  uint32
	duration Duration
	flag     *RemovalFlag

	updates     []Update // по возрастанию At
	nextUpdate  int
	completions []domain.Callback

	effect int
	bucket Bucket
}

// NewTask создаёт задачу со своим флагом снятия.
func NewTask(owner domain.EntityID, kind Kind, d Duration) *Task {
	return &Task{
		kind:     kind,
		owner:    owner,
		duration: d,
		flag:     &RemovalFlag{},
		effect:   NoEffect,
	}
}

// WithUpdate добавляет колбэк на момент at (мс от старта).
func (t *Task) WithUpdate(at uint32, cb domain.Callback) *Task {
	t.updates = append(t.updates, Update{At: at, Callback: cb})
	sort.SliceStable(t.updates, func(i, j int) bool {
		return t.updates[i].At < t.updates[j].At
	})
	return t
}

// WithCompletion добавляет колбэк завершения.
func (t *Task) WithCompletion(cb domain.Callback) *Task {
	t.completions = append(t.completions, cb)
	return t
}

// WithFlag заменяет флаг снятия общим (например, флагом эффекта).
func (t *Task) WithFlag(f *RemovalFlag) *Task {
	if f != nil {
		t.flag = f
	}
	return t
}

// WithEffect привязывает задачу к эффекту, который может её отменить.
func (t *Task) WithEffect(idx int) *Task {
	t.effect = idx
	return t
}

func (t *Task) Kind() Kind { return t.kind }
func (t *Task) Tag() Tag { return t.kind.tag() }
func (t *Task) Owner() domain.EntityID { return t.owner }
func (t *Task) Elapsed() uint32 { return t.elapsed }
func (t *Task) Duration() Duration { return t.duration }
func (t *Task) Flag() *RemovalFlag { return t.flag }
func (t *Task) Effect() int { return t.effect }
func (t *Task) Bucket() Bucket { return t.bucket }
func (t *Task) Completions() []domain.Callback { return t.completions }

// IsBlocking - должен ли владелец дождаться конца анимации.
func (t *Task) IsBlocking() bool {
	return t.kind.blocking(t)
}

// Progress - доля прошедшего времени в [0, 1]. Для бесконечных всегда 0.
func (t *Task) Progress() float32 {
	if t.duration.Infinite {
		return 0
	}
	if t.duration.Millis == 0 {
		return 1
	}
	p := float32(t.elapsed) / float32(t.duration.Millis)
	if p > 1 {
		p = 1
	}
	return p
}

// overdue - закончилось ли время (строго больше длительности).
func (t *Task) overdue() bool {
	return !t.duration.Infinite && t.elapsed > t.duration.Millis
}
