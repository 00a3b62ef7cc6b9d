package scml

import (
	"bytes"
	"strings"
	"testing"
)

func TestEmbedExtractRoundTrip(t *testing.T) {
	xml := []byte("<scml><version>9.1</version></scml>")

	block, err := Embed(xml, 512)
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(block)&(len(block)-1) != 0 {
		t.Errorf("block size %d is not a power of two", len(block))
	}
	if string(block[:8]) != Marker {
		t.Errorf("marker: got %q", block[:8])
	}

	got, ok, err := Extract(bytes.NewReader(block))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !ok {
		t.Fatal("Extract did not find the embedded description")
	}
	if !bytes.Equal(got, xml) {
		t.Errorf("round trip: got %q, want %q", got, xml)
	}
}

func TestExtractNoMarker(t *testing.T) {
	// A plain HDF5 file starts with its own signature; absence of the
	// marker is not an error.
	data := append([]byte("\x89HDF\r\n\x1a\n"), make([]byte, 64)...)
	xml, ok, err := Extract(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || xml != nil {
		t.Errorf("got ok=%v xml=%q, want absent", ok, xml)
	}
}

func TestExtractShortFile(t *testing.T) {
	_, ok, err := Extract(strings.NewReader("EVE"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("short file reported an embedded description")
	}
}

func TestExtractTruncatedPayload(t *testing.T) {
	block, err := Embed([]byte("<scml><version>9.0</version></scml>"), 512)
	if err != nil {
		t.Fatal(err)
	}
	// Cut into the compressed payload.
	_, _, err = Extract(bytes.NewReader(block[:20]))
	if err == nil {
		t.Error("truncated payload should fail")
	}
}

func TestEmbedGrowsBlock(t *testing.T) {
	big := []byte("<scml><version>9.2</version>" + strings.Repeat("<x>abcdefgh</x>", 200) + "</scml>")
	block, err := Embed(big, 512)
	if err != nil {
		t.Fatal(err)
	}
	got, ok, err := Extract(bytes.NewReader(block))
	if err != nil || !ok {
		t.Fatalf("extract: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(got, big) {
		t.Error("large payload round trip mismatch")
	}
}
