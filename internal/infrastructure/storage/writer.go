package storage

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"tactics-sim/pkg/logger"
)

const (
	MagicHeader string = `TSAV` // 4 байта
	Version1    uint32 = 1

	// FileExt - расширение файлов сохранений.
	FileExt = ".tsav"

	maxIDLen   = 1<<16 - 1
	maxBodyLen = 64 << 20
)

var (
	ErrBadMagic           = errors.New("storage: bad magic")
	ErrUnsupportedVersion = errors.New("storage: unsupported version")
	ErrCorrupt            = errors.New("storage: corrupt save")
)

// SaveFileHeader - точное представление заголовка файла.
// binary.Write пишет его целиком: тут только массивы и числа.
type SaveFileHeader struct {
	Magic      [4]byte   // 4 байта
	Version    uint32    // 4 байта
	SaveID     ulid.ULID // 16 байт
	Timestamp  int64     // 8 байт, unix millis
	BuildID    int32     // 4 байта
	AreaCount  uint32    // 4 байта
	SessionLen uint32    // 4 байта, JSON блока сессии
}

// AreaHeader - заголовок секции одной зоны.
type AreaHeader struct {
	IDLen         uint16 // 2
	ExploredWords uint32 // 4
	BodyLen       uint32 // 4
}

// AreaSection - зона в сохранении: id, разведанная карта словами
// и JSON-тело (пропы, триггеры, торговцы, акторы, эффекты, анимации).
type AreaSection struct {
	ID       string
	Explored []uint64
	Body     []byte
}

// SaveFile - содержимое файла сохранения.
type SaveFile struct {
	SaveID    ulid.ULID
	Timestamp int64
	BuildID   int
	Session   []byte
	Areas     []AreaSection
}

// Time - момент сохранения.
func (f *SaveFile) Time() time.Time {
	return time.UnixMilli(f.Timestamp)
}

// Store пишет и читает сохранения в каталоге.
type Store struct {
	Dir string
	log *logrus.Entry
}

func NewStore(dir string) *Store {
	return &Store{Dir: dir, log: logger.For("storage")}
}

// Save пишет файл save_<ulid>.tsav. Пустой SaveID генерируется.
func (s *Store) Save(f *SaveFile) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: create dir: %w", err)
	}
	if f.SaveID == (ulid.ULID{}) {
		f.SaveID = ulid.Make()
	}
	if f.Timestamp == 0 {
		f.Timestamp = int64(f.SaveID.Time())
	}

	path := filepath.Join(s.Dir, "save_"+f.SaveID.String()+FileExt)
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	bw := bufio.NewWriter(file)
	if err := Write(bw, f); err != nil {
		return "", err
	}
	if err := bw.Flush(); err != nil {
		return "", err
	}

	s.log.WithFields(logrus.Fields{
		"save_id": f.SaveID.String(),
		"areas":   len(f.Areas),
		"path":    path,
	}).Info("Save written")
	return path, nil
}

// Write сериализует сохранение в w.
func Write(w io.Writer, f *SaveFile) error {
	// 1. Глобальный заголовок
	header := SaveFileHeader{
		Version:    Version1,
		SaveID:     f.SaveID,
		Timestamp:  f.Timestamp,
		BuildID:    int32(f.BuildID),
		AreaCount:  uint32(len(f.Areas)),
		SessionLen: uint32(len(f.Session)),
	}
	copy(header.Magic[:], MagicHeader)

	if len(f.Session) > maxBodyLen {
		return fmt.Errorf("storage: session block too long: %d", len(f.Session))
	}
	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := w.Write(f.Session); err != nil {
		return err
	}

	// 2. Секции зон
	for _, sec := range f.Areas {
		if len(sec.ID) > maxIDLen {
			return fmt.Errorf("storage: area id too long: %d", len(sec.ID))
		}
		if len(sec.Body) > maxBodyLen {
			return fmt.Errorf("storage: area %s body too long: %d", sec.ID, len(sec.Body))
		}

		ah := AreaHeader{
			IDLen:         uint16(len(sec.ID)),
			ExploredWords: uint32(len(sec.Explored)),
			BodyLen:       uint32(len(sec.Body)),
		}
		if err := binary.Write(w, binary.LittleEndian, &ah); err != nil {
			return err
		}
		if _, err := io.WriteString(w, sec.ID); err != nil {
			return err
		}
		if len(sec.Explored) > 0 {
			if err := binary.Write(w, binary.LittleEndian, sec.Explored); err != nil {
				return err
			}
		}
		if _, err := w.Write(sec.Body); err != nil {
			return err
		}
	}
	return nil
}
