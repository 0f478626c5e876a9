package streamjson

// chunkBuffer accumulates raw chunks for one session and tracks delimiter
// balance incrementally so the parser can cheaply decide whether the
// buffered text could form a complete document. Not safe for concurrent
// use; each session guards its buffer with the session lock.
type chunkBuffer struct {
	buf     []byte
	maxSize int

	braceCount   int
	bracketCount int
	inString     bool
	escapeNext   bool
	quote        byte
	sawOpen      bool

	totalBytes int64
	trims      int64
}

func newChunkBuffer(maxSize int) *chunkBuffer {
	if maxSize <= 0 {
		maxSize = DefaultBufferSize
	}
	return &chunkBuffer{
		buf:     make([]byte, 0, min(maxSize, DefaultBufferSize)),
		maxSize: maxSize,
	}
}

// append adds a chunk, updating balance state as the bytes arrive. When
// the chunk would push the buffer past its bound, append reports
// overflowed=true and trims the front to the last safe boundary before
// admitting the chunk, so the unfinished tail is preserved. A chunk that
// alone exceeds the bound is rejected outright.
func (b *chunkBuffer) append(chunk string) (overflowed bool, err error) {
	if len(chunk) > b.maxSize {
		return false, newOverflowError("buffer_append", "", len(chunk), b.maxSize)
	}
	if len(b.buf)+len(chunk) > b.maxSize {
		overflowed = true
		b.trimToSafePoint()
		// Trimming may not free enough when the tail itself is huge;
		// drop from the front until the chunk fits.
		if excess := len(b.buf) + len(chunk) - b.maxSize; excess > 0 {
			b.buf = b.buf[excess:]
			b.rescan()
		}
	}
	b.buf = append(b.buf, chunk...)
	b.totalBytes += int64(len(chunk))
	b.scan(chunk)
	return overflowed, nil
}

// scan advances the balance state over s.
func (b *chunkBuffer) scan(s string) {
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if b.escapeNext {
			b.escapeNext = false
			continue
		}
		if b.inString {
			switch ch {
			case '\\':
				b.escapeNext = true
			case b.quote:
				b.inString = false
			}
			continue
		}
		switch ch {
		case '"', '\'':
			b.inString = true
			b.quote = ch
		case '{':
			b.braceCount++
			b.sawOpen = true
		case '}':
			b.braceCount--
		case '[':
			b.bracketCount++
			b.sawOpen = true
		case ']':
			b.bracketCount--
		}
	}
}

// rescan rebuilds the balance state from the current buffer contents.
// Needed after any trim that does not land exactly on tracked state.
func (b *chunkBuffer) rescan() {
	b.braceCount, b.bracketCount = 0, 0
	b.inString, b.escapeNext = false, false
	b.sawOpen = false
	b.scan(string(b.buf))
}

// trimToSafePoint drops the buffer's front up to the last safe boundary
// and returns the number of bytes dropped. Safe boundaries are positions
// just after a delimiter closes back to the top level, or after a comma
// separating top-level-ish members. With no safe boundary the front half
// is dropped.
func (b *chunkBuffer) trimToSafePoint() int {
	if len(b.buf) == 0 {
		return 0
	}
	pos := lastSafePosition(b.buf)
	if pos <= 0 {
		pos = len(b.buf) / 2
	}
	if pos <= 0 {
		return 0
	}
	b.buf = append(b.buf[:0], b.buf[pos:]...)
	b.trims++
	b.rescan()
	return pos
}

// lastSafePosition scans data with fresh balance state and returns the
// byte offset just past the last safe boundary, or 0 when none exists.
func lastSafePosition(data []byte) int {
	var (
		brace, bracket int
		inString       bool
		escape         bool
		quote          byte
		last           int
	)
	for i := 0; i < len(data); i++ {
		ch := data[i]
		if escape {
			escape = false
			continue
		}
		if inString {
			switch ch {
			case '\\':
				escape = true
			case quote:
				inString = false
			}
			continue
		}
		switch ch {
		case '"', '\'':
			inString = true
			quote = ch
		case '{':
			brace++
		case '[':
			bracket++
		case '}':
			brace--
			if brace == 0 && bracket == 0 {
				last = i + 1
			}
		case ']':
			bracket--
			if brace == 0 && bracket == 0 {
				last = i + 1
			}
		case ',':
			if brace <= 1 && bracket == 0 {
				last = i + 1
			}
		}
	}
	return last
}

// content returns the buffered text.
func (b *chunkBuffer) content() string {
	return string(b.buf)
}

// softTrimmedContent returns the prefix of the buffer up to the last safe
// boundary, without modifying the buffer. Parsing this prefix instead of
// the raw buffer keeps a dangling key or half token away from the repair
// tiers mid-stream. Inside a string, or when no boundary exists yet, the
// full content is returned rather than forcing a bad cut.
func (b *chunkBuffer) softTrimmedContent() string {
	if len(b.buf) == 0 {
		return ""
	}
	if b.inString {
		return string(b.buf)
	}
	pos := lastSafePosition(b.buf)
	if pos <= 0 {
		return string(b.buf)
	}
	return string(b.buf[:pos])
}

func (b *chunkBuffer) size() int {
	return len(b.buf)
}

// balanced reports whether every opened delimiter has been closed and no
// string is open. A buffer that never saw an opening delimiter is not
// considered balanced.
func (b *chunkBuffer) balanced() bool {
	return b.sawOpen && b.braceCount == 0 && b.bracketCount == 0 && !b.inString
}

// reset clears the buffer and its balance state, keeping the allocation.
func (b *chunkBuffer) reset() {
	b.buf = b.buf[:0]
	b.braceCount, b.bracketCount = 0, 0
	b.inString, b.escapeNext = false, false
	b.sawOpen = false
}
