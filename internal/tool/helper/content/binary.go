// Package content holds checks shared by tools that return file or process
// output to the model.
package content

// binarySampleSize is the number of bytes scanned for NUL, as git does.
const binarySampleSize = 8000

// IsBinary reports whether data looks binary by looking for null bytes in
// its first binarySampleSize bytes. UTF-16 and UTF-32 BOMs are treated as text.
func IsBinary(data []byte) bool {
	if len(data) >= 2 && ((data[0] == 0xFF && data[1] == 0xFE) || (data[0] == 0xFE && data[1] == 0xFF)) {
		return false
	}
	if len(data) >= 4 && data[0] == 0x00 && data[1] == 0x00 && data[2] == 0xFE && data[3] == 0xFF {
		return false
	}

	for _, b := range data[:min(len(data), binarySampleSize)] {
		if b == 0 {
			return true
		}
	}
	return false
}
