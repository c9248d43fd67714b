package extractor

import (
	"strings"
)

// scanPdfBytes pulls readable text straight out of raw PDF bytes. Last
// resort for files whose structure is too damaged for ocrmypdf: it walks
// BT...ET text objects collecting parenthesized string literals, then sweeps
// the whole file for runs of printable ASCII, and joins whatever survives
// after dropping single-character tokens. Returns "" when nothing readable
// remains.
func scanPdfBytes(data []byte) string {
	var extracted strings.Builder

	inTextObject := false
	inString := false
	escapeNext := false
	for i := 0; i < len(data); i++ {
		b := data[i]

		if !inString && i+1 < len(data) {
			if !inTextObject && b == 'B' && data[i+1] == 'T' {
				inTextObject = true
				i++
				continue
			}
			if inTextObject && b == 'E' && data[i+1] == 'T' {
				inTextObject = false
				extracted.WriteByte(' ')
				i++
				continue
			}
		}

		if !inTextObject {
			continue
		}

		switch {
		case inString && escapeNext:
			escapeNext = false
			extracted.WriteByte(b)
		case inString && b == '\\':
			escapeNext = true
		case inString && b == ')':
			inString = false
			extracted.WriteByte(' ')
		case inString:
			extracted.WriteByte(b)
		case b == '(':
			inString = true
		}
	}

	// Second sweep: any printable ASCII run of at least 4 bytes, wherever it
	// sits in the file.
	var ascii strings.Builder
	runStart := -1
	flush := func(end int) {
		if runStart >= 0 && end-runStart > 3 {
			ascii.Write(data[runStart:end])
			ascii.WriteByte(' ')
		}
		runStart = -1
	}
	for i, b := range data {
		if b >= 32 && b <= 126 {
			if runStart < 0 {
				runStart = i
			}
		} else {
			flush(i)
		}
	}
	flush(len(data))

	combined := extracted.String()
	if ascii.Len() > 0 {
		combined += "\n" + ascii.String()
	}

	var kept []string
	for _, token := range strings.Fields(combined) {
		if len(token) > 1 {
			kept = append(kept, token)
		}
	}
	return strings.Join(kept, " ")
}
