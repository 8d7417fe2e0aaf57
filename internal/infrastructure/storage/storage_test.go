package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"testing"

	"github.com/oklog/ulid/v2"

	"tactics-sim/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func sampleSave() *SaveFile {
	return &SaveFile{
		SaveID:    ulid.Make(),
		Timestamp: 1700000000000,
		BuildID:   9000,
		Session:   []byte(`{"current":"start"}`),
		Areas: []AreaSection{
			{ID: "start", Explored: []uint64{0xFF, 1 << 63}, Body: []byte(`{"actors":[]}`)},
			{ID: "cellar", Body: []byte(`{}`)},
		},
	}
}

func TestWriteRead(t *testing.T) {
	in := sampleSave()
	var buf bytes.Buffer
	if err := Write(&buf, in); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	out, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if out.SaveID != in.SaveID {
		t.Errorf("Expected save id %s, got %s", in.SaveID, out.SaveID)
	}
	if out.BuildID != in.BuildID || out.Timestamp != in.Timestamp {
		t.Errorf("Header mismatch: got build %d ts %d", out.BuildID, out.Timestamp)
	}
	if string(out.Session) != string(in.Session) {
		t.Errorf("Expected session %s, got %s", in.Session, out.Session)
	}
	if len(out.Areas) != 2 {
		t.Fatalf("Expected 2 areas, got %d", len(out.Areas))
	}
	if out.Areas[0].ID != "start" || len(out.Areas[0].Explored) != 2 || out.Areas[0].Explored[1] != 1<<63 {
		t.Errorf("Area section mismatch: %+v", out.Areas[0])
	}
	if out.Areas[1].Explored != nil {
		t.Errorf("Expected no explored words for cellar, got %v", out.Areas[1].Explored)
	}
}

func TestReadErrors(t *testing.T) {
	var good bytes.Buffer
	if err := Write(&good, sampleSave()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	badMagic := append([]byte(nil), good.Bytes()...)
	copy(badMagic, "XXXX")

	badVersion := append([]byte(nil), good.Bytes()...)
	binary.LittleEndian.PutUint32(badVersion[4:], 99)

	truncated := good.Bytes()[:good.Len()-3]

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"bad magic", badMagic, ErrBadMagic},
		{"bad version", badVersion, ErrUnsupportedVersion},
		{"truncated", truncated, nil},
		{"empty", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(bytes.NewReader(tt.data))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestStoreSaveLoad(t *testing.T) {
	store := NewStore(t.TempDir())

	f := sampleSave()
	f.SaveID = ulid.ULID{}
	f.Timestamp = 0

	path, err := store.Save(f)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if f.SaveID == (ulid.ULID{}) {
		t.Error("Expected SaveID to be generated")
	}
	if f.Timestamp == 0 {
		t.Error("Expected Timestamp to be filled")
	}

	list, err := store.List()
	if err != nil || len(list) != 1 || list[0] != path {
		t.Fatalf("Expected [%s], got %v (err %v)", path, list, err)
	}

	loaded, err := store.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.SaveID != f.SaveID {
		t.Errorf("Expected save id %s, got %s", f.SaveID, loaded.SaveID)
	}
}
