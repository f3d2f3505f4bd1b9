package wav

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	samples := []int16{0, 1000, -1000, 32767, -32768}
	data := Encode(samples, 16000, 1)

	decoded, rate, channels, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if rate != 16000 || channels != 1 {
		t.Errorf("rate = %d channels = %d", rate, channels)
	}
	if len(decoded) != len(samples) {
		t.Fatalf("samples = %d, want %d", len(decoded), len(samples))
	}
	for i := range samples {
		if decoded[i] != samples[i] {
			t.Errorf("sample %d = %d, want %d", i, decoded[i], samples[i])
		}
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, _, _, err := Decode([]byte("not a wav")); err == nil {
		t.Fatal("expected error")
	}
}

func TestDecodeSkipsExtraChunks(t *testing.T) {
	data := Encode([]int16{5, 6}, 24000, 1)
	// Splice a LIST chunk between fmt and data.
	list := append([]byte("LIST"), 0x04, 0x00, 0x00, 0x00, 'I', 'N', 'F', 'O')
	spliced := append(append(append([]byte{}, data[:36]...), list...), data[36:]...)

	samples, rate, _, err := Decode(spliced)
	if err != nil {
		t.Fatal(err)
	}
	if rate != 24000 || len(samples) != 2 || samples[0] != 5 {
		t.Errorf("samples = %v rate = %d", samples, rate)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seg.wav")
	if err := WriteFile(path, []int16{1, 2, 3}, 16000, 1); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	samples, _, _, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 3 {
		t.Errorf("samples = %v", samples)
	}
}
