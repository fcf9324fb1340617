// ABOUTME: Minimal single-entry ZIP container used for project export and import
// ABOUTME: Writes stored (uncompressed) entries and reads them back with bounds and CRC checks
package archive

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math"
)

const (
	localHeaderSignature   = 0x04034b50
	centralHeaderSignature = 0x02014b50
	endRecordSignature     = 0x06054b50

	localHeaderSize   = 30
	centralHeaderSize = 46
	endRecordSize     = 22

	versionNeeded      = 20
	methodStore        = 0
	flagDataDescriptor = 0x8
)

// ErrCorruptArchive is returned for buffers the reader cannot decode.
var ErrCorruptArchive = errors.New("corrupt archive")

// Entry is a named payload stored in an archive.
type Entry struct {
	Name    string
	Content []byte
}

// Build returns a ZIP container holding content under filename.
func Build(filename string, content []byte) ([]byte, error) {
	if filename == "" {
		return nil, fmt.Errorf("filename is required")
	}
	if len(filename) > math.MaxUint16 {
		return nil, fmt.Errorf("filename too long: %d bytes", len(filename))
	}
	for i := 0; i < len(filename); i++ {
		if filename[i] > 0x7f {
			return nil, fmt.Errorf("filename must be ASCII: %q", filename)
		}
	}
	if uint64(len(content)) > math.MaxUint32 {
		return nil, fmt.Errorf("content too large: %d bytes", len(content))
	}

	crc := crc32.ChecksumIEEE(content)
	size := uint32(len(content))
	nameLen := uint16(len(filename))

	var buf bytes.Buffer
	buf.Grow(localHeaderSize + centralHeaderSize + endRecordSize + 2*len(filename) + len(content))

	// Local file header
	w := writer{&buf}
	w.uint32(localHeaderSignature)
	w.uint16(versionNeeded)
	w.uint16(0) // flags
	w.uint16(methodStore)
	w.uint16(0) // mod time
	w.uint16(0) // mod date
	w.uint32(crc)
	w.uint32(size) // compressed
	w.uint32(size) // uncompressed
	w.uint16(nameLen)
	w.uint16(0) // extra
	buf.WriteString(filename)
	buf.Write(content)

	centralOffset := uint32(buf.Len())

	// Central directory record
	w.uint32(centralHeaderSignature)
	w.uint16(versionNeeded) // version made by
	w.uint16(versionNeeded)
	w.uint16(0)
	w.uint16(methodStore)
	w.uint16(0)
	w.uint16(0)
	w.uint32(crc)
	w.uint32(size)
	w.uint32(size)
	w.uint16(nameLen)
	w.uint16(0) // extra
	w.uint16(0) // comment
	w.uint16(0) // disk number start
	w.uint16(0) // internal attributes
	w.uint32(0) // external attributes
	w.uint32(0) // local header offset
	buf.WriteString(filename)

	centralSize := uint32(buf.Len()) - centralOffset

	// End of central directory
	w.uint32(endRecordSignature)
	w.uint16(0) // this disk
	w.uint16(0) // disk with central directory
	w.uint16(1) // entries on this disk
	w.uint16(1) // entries total
	w.uint32(centralSize)
	w.uint32(centralOffset)
	w.uint16(0) // comment length

	return buf.Bytes(), nil
}

// ReadFirstEntry returns the payload of the first entry in data.
func ReadFirstEntry(data []byte) ([]byte, error) {
	entry, err := ReadEntry(data)
	if err != nil {
		return nil, err
	}
	return entry.Content, nil
}

// ReadEntry decodes the first entry of data. Only stored entries are
// supported; the payload is checked against the header CRC.
func ReadEntry(data []byte) (Entry, error) {
	if len(data) < localHeaderSize {
		return Entry{}, corrupt("truncated local header: %d bytes", len(data))
	}
	if sig := binary.LittleEndian.Uint32(data[0:4]); sig != localHeaderSignature {
		return Entry{}, corrupt("bad local header signature 0x%08x", sig)
	}

	if flags := binary.LittleEndian.Uint16(data[6:8]); flags&flagDataDescriptor != 0 {
		return Entry{}, corrupt("data descriptors are not supported")
	}

	method := binary.LittleEndian.Uint16(data[8:10])
	if method != methodStore {
		return Entry{}, corrupt("unsupported compression method %d", method)
	}

	crc := binary.LittleEndian.Uint32(data[14:18])
	size := uint64(binary.LittleEndian.Uint32(data[22:26]))
	nameLen := uint64(binary.LittleEndian.Uint16(data[26:28]))
	extraLen := uint64(binary.LittleEndian.Uint16(data[28:30]))

	start := localHeaderSize + nameLen + extraLen
	end := start + size
	if end > uint64(len(data)) {
		return Entry{}, corrupt("entry runs past end of buffer (%d > %d)", end, len(data))
	}

	content := data[start:end]
	if got := crc32.ChecksumIEEE(content); got != crc {
		return Entry{}, corrupt("crc mismatch: header 0x%08x, payload 0x%08x", crc, got)
	}

	out := make([]byte, len(content))
	copy(out, content)

	return Entry{
		Name:    string(data[localHeaderSize : localHeaderSize+nameLen]),
		Content: out,
	}, nil
}

func corrupt(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrCorruptArchive, fmt.Sprintf(format, args...))
}

type writer struct {
	buf *bytes.Buffer
}

func (w writer) uint16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

func (w writer) uint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}
