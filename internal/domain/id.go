package domain

import (
	"fmt"
	"strconv"
)

// EntityID - 64-битный хэндл сущности в плоском реестре сессии.
//
// Формат битов (от старших к младшим):
//
//	[ Reserved (8) | Kind (8) | Generation (16) | Index (32) ]
//
// Где:
//   - Kind - вид сущности (Party, Actor)
//   - Generation - версия слота (защита от устаревших ссылок)
//   - Index - индекс слота в Registry
//
// Анимации и эффекты хранят EntityID, а не указатель: так между
// сущностью, зоной и анимацией не возникает циклов владения.
type EntityID uint64

// NilEntityID - нулевой хэндл. Поколение слотов начинается с 1,
// поэтому валидный хэндл никогда не равен нулю.
const NilEntityID EntityID = 0

const (
	bitsIndex = 32
	bitsGen   = 16
	bitsKind  = 8

	shiftGen  = bitsIndex
	shiftKind = bitsIndex + bitsGen

	maskIndex = (1 << bitsIndex) - 1
	maskGen   = (1 << bitsGen) - 1
	maskKind  = (1 << bitsKind) - 1
)

// EntityKind - вид сущности, зашитый в хэндл.
type EntityKind uint8

const (
	KindUnknown EntityKind = iota
	KindParty
	KindActor
)

var entityKindToString = map[EntityKind]string{
	KindParty: "PARTY",
	KindActor: "ACTOR",
}

func (k EntityKind) String() string {
	if val, ok := entityKindToString[k]; ok {
		return val
	}
	return "UNKNOWN"
}

// PackEntityID собирает хэндл из составных частей. Проверок диапазонов нет.
func PackEntityID(kind EntityKind, gen uint16, index uint32) EntityID {
	return EntityID(
		(uint64(kind)&maskKind)<<shiftKind |
			(uint64(gen)&maskGen)<<shiftGen |
			uint64(index),
	)
}

func (id EntityID) Index() uint32 {
	return uint32(id & maskIndex)
}

func (id EntityID) Generation() uint16 {
	return uint16((id >> shiftGen) & maskGen)
}

func (id EntityID) Kind() EntityKind {
	return EntityKind((id >> shiftKind) & maskKind)
}

func (id EntityID) IsNil() bool {
	return id == NilEntityID
}

// String для логов: [kind gen:idx]
func (id EntityID) String() string {
	if id.IsNil() {
		return "<nil>"
	}
	return fmt.Sprintf("[%s %d:%d]", id.Kind(), id.Generation(), id.Index())
}

// Token - хэндл в виде строки протокола.
func (id EntityID) Token() string {
	return strconv.FormatUint(uint64(id), 10)
}

// MarshalJSON сериализует хэндл строкой (JS теряет точность на uint64).
func (id EntityID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.Token() + `"`), nil
}

// UnmarshalJSON принимает и строку, и число.
func (id *EntityID) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) > 1 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" || s == "null" {
		*id = NilEntityID
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	*id = EntityID(v)
	return nil
}
