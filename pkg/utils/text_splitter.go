package utils

// SplitText cuts attachment text into chunks of roughly chunkSize runes with
// overlap runes shared between neighbors, so embedding a segment keeps the
// context that straddles a boundary. Character-based on purpose: segments are
// embedded, not displayed, and strict slicing never loses input.
func SplitText(text string, chunkSize int, overlap int) []string {
	if len(text) <= chunkSize {
		return []string{text}
	}

	step := chunkSize - overlap
	if step <= 0 {
		step = chunkSize
	}

	runes := []rune(text)
	var chunks []string
	for i := 0; i < len(runes); i += step {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
