package pe

import (
	"encoding/binary"
)

// CalculateChecksum computes the PE image checksum of data. The four bytes at
// checksumOffset are treated as zero; pass a negative offset to include
// every byte. A trailing partial dword is zero padded.
func CalculateChecksum(data []byte, checksumOffset int) uint32 {
	var sum uint64
	var buf [4]byte

	for off := 0; off < len(data); off += 4 {
		n := copy(buf[:], data[off:])
		for i := n; i < 4; i++ {
			buf[i] = 0
		}
		for i := 0; i < 4; i++ {
			if checksumOffset >= 0 && off+i >= checksumOffset && off+i < checksumOffset+4 {
				buf[i] = 0
			}
		}

		sum += uint64(binary.LittleEndian.Uint32(buf[:]))
		// Fold the carry back into the low 32 bits.
		if sum > 0xFFFFFFFF {
			sum = (sum & 0xFFFFFFFF) + (sum >> 32)
		}
	}

	sum = (sum & 0xFFFF) + (sum >> 16)
	sum += sum >> 16
	sum &= 0xFFFF

	return uint32(sum) + uint32(len(data))
}
