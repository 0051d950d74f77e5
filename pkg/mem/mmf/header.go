package mmf

import (
	"encoding/binary"

	"github.com/tomatelib/tomate/pkg/procprovider"
	"github.com/tomatelib/tomate/pkg/xsync"
)

// Root header layout, byte-exact, little-endian:
//
//	[0..16)  magic "TOMATE-MMF-V001", zero-padded
//	[16..20) version u32
//	[20..28) total size u64
//	[28..36) free-space index offset u64
//	[36..44) cross-process AccessControl state (CrossExclusive identity)
//	[44..48) creator process id u32
//	[48..64) reserved, zero
const (
	magic          = "TOMATE-MMF-V001"
	rootHeaderSize = 64
	formatVersion  = uint32(1)

	offMagic         = 0
	offVersion       = 16
	offTotalSize     = 20
	offFreeIndexOff  = 28
	offMetaLock      = 36
	offCreatorPID    = 44
	offReservedStart = 48
)

func writeMagicAndVersion(data []byte) {
	var m [16]byte
	copy(m[:], magic)
	copy(data[offMagic:offMagic+16], m[:])
	binary.LittleEndian.PutUint32(data[offVersion:offVersion+4], formatVersion)
}

func checkMagicAndVersion(data []byte) error {
	if len(data) < rootHeaderSize {
		return ErrCorrupt
	}
	var m [16]byte
	copy(m[:], magic)
	if string(data[offMagic:offMagic+16]) != string(m[:]) {
		return ErrCorrupt
	}
	if binary.LittleEndian.Uint32(data[offVersion:offVersion+4]) != formatVersion {
		return ErrVersionMismatch
	}
	return nil
}

func readTotalSize(data []byte) uint64 {
	return binary.LittleEndian.Uint64(data[offTotalSize : offTotalSize+8])
}

func writeTotalSize(data []byte, v uint64) {
	binary.LittleEndian.PutUint64(data[offTotalSize:offTotalSize+8], v)
}

func readFreeIndexOffset(data []byte) uint64 {
	return binary.LittleEndian.Uint64(data[offFreeIndexOff : offFreeIndexOff+8])
}

func writeFreeIndexOffset(data []byte, v uint64) {
	binary.LittleEndian.PutUint64(data[offFreeIndexOff:offFreeIndexOff+8], v)
}

func readCreatorPID(data []byte) uint32 {
	return binary.LittleEndian.Uint32(data[offCreatorPID : offCreatorPID+4])
}

func writeCreatorPID(data []byte, pid uint32) {
	binary.LittleEndian.PutUint32(data[offCreatorPID:offCreatorPID+4], pid)
}

// metaLockSegment returns the 8 bytes backing the root header's embedded
// cross-process AccessControl.
func metaLockSegment(data []byte) []byte {
	return data[offMetaLock : offMetaLock+8]
}

// openMetaLock wraps the root header's embedded identity field as a
// CrossExclusive, contended by every process that maps this file.
func openMetaLock(data []byte, provider procprovider.Provider) *xsync.CrossExclusive {
	return xsync.CrossExclusiveAt(metaLockSegment(data), provider)
}
