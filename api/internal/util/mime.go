package util

// SniffImageFormat detects the image container from magic bytes, returning
// the short format name the Gemini SDK expects ("jpeg", "png", "webp").
// Unknown data defaults to jpeg, which is what Telegram photo downloads are.
func SniffImageFormat(b []byte) string {
	if len(b) >= 8 &&
		b[0] == 0x89 && b[1] == 0x50 && b[2] == 0x4E && b[3] == 0x47 &&
		b[4] == 0x0D && b[5] == 0x0A && b[6] == 0x1A && b[7] == 0x0A {
		return "png"
	}
	if len(b) >= 12 && string(b[0:4]) == "RIFF" && string(b[8:12]) == "WEBP" {
		return "webp"
	}
	return "jpeg"
}

// IsPDF reports whether the bytes start with a PDF header.
func IsPDF(b []byte) bool {
	return len(b) >= 5 && b[0] == '%' && b[1] == 'P' && b[2] == 'D' && b[3] == 'F' && b[4] == '-'
}
