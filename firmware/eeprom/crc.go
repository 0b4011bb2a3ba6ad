package eeprom

const crcInitial = 0xFFFF

// CRC16 computes the table-free CRC-16/CCITT-FALSE used by the log records. Appending the
// big-endian result to the data makes the CRC of the whole sequence zero.
func CRC16(data []byte) uint16 {
	crc := uint16(crcInitial)
	for _, b := range data {
		x := byte(crc>>8) ^ b
		x ^= x >> 4
		crc = (crc << 8) ^ uint16(x)<<12 ^ uint16(x)<<5 ^ uint16(x)
	}
	return crc
}

// ValidateCRC reports whether data, including its two trailing CRC bytes, checks to zero
func ValidateCRC(data []byte) bool {
	return CRC16(data) == 0
}

// AppendCRC appends the big-endian CRC16 of data to data
func AppendCRC(data []byte) []byte {
	crc := CRC16(data)
	return append(data, byte(crc>>8), byte(crc))
}
