package storage

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// Load читает файл сохранения.
func (s *Store) Load(path string) (*SaveFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Read(bufio.NewReader(f))
}

// List - файлы сохранений каталога, от старых к новым.
// Имена содержат ULID, поэтому сортировка по имени хронологическая.
func (s *Store) List() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.Dir, "save_*"+FileExt))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// Read разбирает сохранение из r.
func Read(r io.Reader) (*SaveFile, error) {
	// 1. Заголовок целиком
	var header SaveFileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	// Валидация
	if string(header.Magic[:]) != MagicHeader {
		return nil, fmt.Errorf("%w: %q", ErrBadMagic, header.Magic[:])
	}
	if header.Version != Version1 {
		return nil, fmt.Errorf("%w: %d (expected %d)", ErrUnsupportedVersion, header.Version, Version1)
	}
	if header.SessionLen > maxBodyLen {
		return nil, fmt.Errorf("%w: session block length %d", ErrCorrupt, header.SessionLen)
	}

	f := &SaveFile{
		SaveID:    header.SaveID,
		Timestamp: header.Timestamp,
		BuildID:   int(header.BuildID),
		Session:   make([]byte, header.SessionLen),
	}
	if _, err := io.ReadFull(r, f.Session); err != nil {
		return nil, fmt.Errorf("failed to read session block: %w", err)
	}

	// 2. Секции зон
	for i := 0; i < int(header.AreaCount); i++ {
		var ah AreaHeader
		if err := binary.Read(r, binary.LittleEndian, &ah); err != nil {
			return nil, fmt.Errorf("area %d: %w", i, err)
		}
		if ah.BodyLen > maxBodyLen || ah.ExploredWords > maxBodyLen/8 {
			return nil, fmt.Errorf("%w: area %d section sizes", ErrCorrupt, i)
		}

		idBuf := make([]byte, ah.IDLen)
		if _, err := io.ReadFull(r, idBuf); err != nil {
			return nil, fmt.Errorf("area %d id: %w", i, err)
		}
		sec := AreaSection{ID: string(idBuf)}

		if ah.ExploredWords > 0 {
			sec.Explored = make([]uint64, ah.ExploredWords)
			if err := binary.Read(r, binary.LittleEndian, sec.Explored); err != nil {
				return nil, fmt.Errorf("area %s explored: %w", sec.ID, err)
			}
		}

		sec.Body = make([]byte, ah.BodyLen)
		if _, err := io.ReadFull(r, sec.Body); err != nil {
			return nil, fmt.Errorf("area %s body: %w", sec.ID, err)
		}
		f.Areas = append(f.Areas, sec)
	}

	return f, nil
}
