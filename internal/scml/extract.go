// Package scml extracts and decodes the scan description ("SCML") that the
// measurement program embeds in the container's user block: an 8-byte ASCII
// marker, two big-endian uint32 lengths and a deflate-compressed XML payload,
// zero-padded up to the user-block size required by the container format.
package scml

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"fmt"
	"io"
)

// Marker identifies an embedded scan description at the start of the file.
const Marker = "EVEcSCML"

const headerSize = 16

// Extract reads an embedded scan description from the beginning of a
// measurement file. It returns ok=false, with no error, when the marker is
// absent: files without an embedded description are valid.
func Extract(r io.Reader) (xml []byte, ok bool, err error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading user block header: %w", err)
	}
	if string(header[:8]) != Marker {
		return nil, false, nil
	}

	compressed := binary.BigEndian.Uint32(header[8:12])
	// header[12:16] holds the uncompressed length; informational only.

	payload := make([]byte, compressed)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, false, fmt.Errorf("reading embedded description (%d bytes): %w", compressed, err)
	}

	fr := flate.NewReader(bytes.NewReader(payload))
	defer fr.Close()
	xml, err = io.ReadAll(fr)
	if err != nil {
		return nil, false, fmt.Errorf("decompressing embedded description: %w", err)
	}
	return xml, true, nil
}

// Embed produces the user-block bytes for an XML payload, padded with zeros
// to the next power of two not below minSize. Used by tests and by tools
// that write synthetic files.
func Embed(xml []byte, minSize int) ([]byte, error) {
	var compressed bytes.Buffer
	fw, err := flate.NewWriter(&compressed, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(xml); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}

	block := make([]byte, headerSize, headerSize+compressed.Len())
	copy(block, Marker)
	binary.BigEndian.PutUint32(block[8:12], uint32(compressed.Len()))
	binary.BigEndian.PutUint32(block[12:16], uint32(len(xml)))
	block = append(block, compressed.Bytes()...)

	size := minSize
	if size < 512 {
		size = 512
	}
	for size < len(block) {
		size *= 2
	}
	padded := make([]byte, size)
	copy(padded, block)
	return padded, nil
}
