package streamjson

import (
	"encoding/json"
	"regexp"
	"strings"
	"sync/atomic"
)

// Completer repairs truncated or slightly malformed JSON text so that a
// partial stream can be parsed ahead of its final chunk. Repair is
// best-effort: an invalid result is a signal to keep buffering, not an
// error. Safe for concurrent use.
type Completer struct {
	strategy CompletionStrategy

	attempts  atomic.Int64
	successes atomic.Int64
}

var (
	trailingCommaFix    = regexp.MustCompile(`,(\s*[}\]])`)
	missingCommaFix     = regexp.MustCompile(`(["}\]])(\s*\n\s*)(["{\[])`)
	bareKeyFix          = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)(\s*:)`)
	trailingLiteralOnly = regexp.MustCompile(`(?:^|[\s:,\[{])(t|tr|tru|f|fa|fal|fals|n|nu|nul)$`)
)

// NewCompleter returns a Completer using the given strategy. An empty
// strategy defaults to StrategySmart.
func NewCompleter(strategy CompletionStrategy) (*Completer, error) {
	if strategy == "" {
		strategy = StrategySmart
	}
	switch strategy {
	case StrategyConservative, StrategySmart, StrategyAggressive:
	default:
		return nil, newValidationError("new_completer", "",
			"completion strategy must be 'conservative', 'smart' or 'aggressive', got '"+string(strategy)+"'")
	}
	return &Completer{strategy: strategy}, nil
}

// Strategy returns the configured repair strategy.
func (c *Completer) Strategy() CompletionStrategy {
	return c.strategy
}

// Complete attempts to turn input into valid JSON. Confidence is derived
// from how much text had to change: an input returned untouched scores
// 1.0, and heavier repairs score lower, floored at 0.1.
func (c *Completer) Complete(input string) CompletionResult {
	c.attempts.Add(1)

	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return CompletionResult{Errs: []string{"empty input"}}
	}
	if json.Valid([]byte(trimmed)) {
		c.successes.Add(1)
		return CompletionResult{Completed: trimmed, IsValid: true, Confidence: 1.0}
	}

	var trace []RepairStep
	changed := 0

	body := trimmed
	if stripped := stripLineComments(body); stripped != body {
		changed += lenDiff(body, stripped)
		body = stripped
		trace = append(trace, RepairStep{Description: "stripped line comments", Confidence: 0.9})
	}

	state := scanBalance(body)

	if state.inString {
		body += string(state.quote)
		changed++
		trace = append(trace, RepairStep{Description: "closed unterminated string", Confidence: 0.7})
	} else if c.strategy != StrategyConservative {
		fixed, steps, delta := fixDanglingTail(body)
		body, changed = fixed, changed+delta
		trace = append(trace, steps...)
	}

	if len(state.stack) > 0 {
		closers := make([]byte, len(state.stack))
		for i, open := range state.stack {
			if open == '{' {
				closers[len(state.stack)-1-i] = '}'
			} else {
				closers[len(state.stack)-1-i] = ']'
			}
		}
		body += string(closers)
		changed += len(closers)
		trace = append(trace, RepairStep{Description: "balanced " + string(closers), Confidence: 0.8})
	}

	if c.strategy != StrategyConservative {
		if fixed := missingCommaFix.ReplaceAllString(body, "$1,$2$3"); fixed != body {
			changed += lenDiff(body, fixed)
			body = fixed
			trace = append(trace, RepairStep{Description: "inserted missing commas", Confidence: 0.5})
		}
		if fixed := trailingCommaFix.ReplaceAllString(body, "$1"); fixed != body {
			changed += lenDiff(body, fixed)
			body = fixed
			trace = append(trace, RepairStep{Description: "removed trailing commas", Confidence: 0.8})
		}
	}
	if c.strategy == StrategyAggressive {
		if fixed := bareKeyFix.ReplaceAllString(body, `$1"$2"$3`); fixed != body {
			changed += lenDiff(body, fixed)
			body = fixed
			trace = append(trace, RepairStep{Description: "quoted bare keys", Confidence: 0.4})
		}
	}

	result := CompletionResult{
		Completed:         body,
		CompletionApplied: changed > 0,
		Confidence:        repairConfidence(changed, len(trimmed)),
		Trace:             trace,
	}
	if json.Valid([]byte(body)) {
		result.IsValid = true
		c.successes.Add(1)
	} else {
		result.Errs = append(result.Errs, "repaired text is still not valid JSON")
	}
	return result
}

// IsLikelyIncomplete reports whether input looks like a truncated JSON
// document: unbalanced delimiters, an open string, a dangling comma or
// colon, or a cut-off true/false/null literal.
func (c *Completer) IsLikelyIncomplete(input string) bool {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return true
	}
	if json.Valid([]byte(trimmed)) {
		return false
	}
	state := scanBalance(trimmed)
	if state.inString || len(state.stack) > 0 {
		return true
	}
	switch trimmed[len(trimmed)-1] {
	case ',', ':':
		return true
	}
	return trailingLiteralOnly.MatchString(trimmed)
}

// Stats returns the number of repair attempts and how many produced valid
// JSON since construction.
func (c *Completer) Stats() (attempts, successes int64) {
	return c.attempts.Load(), c.successes.Load()
}

// balance is the delimiter state after scanning a JSON fragment.
type balance struct {
	stack    []byte // Open '{' and '[' in order
	inString bool
	quote    byte
}

// scanBalance walks text once, tracking string boundaries (with escape
// handling) and the stack of unclosed braces and brackets.
func scanBalance(text string) balance {
	var st balance
	escape := false
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if escape {
			escape = false
			continue
		}
		if st.inString {
			switch ch {
			case '\\':
				escape = true
			case st.quote:
				st.inString = false
			}
			continue
		}
		switch ch {
		case '"', '\'':
			st.inString = true
			st.quote = ch
		case '{', '[':
			st.stack = append(st.stack, ch)
		case '}':
			if n := len(st.stack); n > 0 && st.stack[n-1] == '{' {
				st.stack = st.stack[:n-1]
			}
		case ']':
			if n := len(st.stack); n > 0 && st.stack[n-1] == '[' {
				st.stack = st.stack[:n-1]
			}
		}
	}
	return st
}

// fixDanglingTail repairs the unfinished construct at the end of body:
// a trailing comma is dropped, a dangling "key": gets a null value, and a
// cut-off true/false/null literal is completed.
func fixDanglingTail(body string) (string, []RepairStep, int) {
	var steps []RepairStep
	changed := 0

	tail := strings.TrimRight(body, " \t\r\n")
	switch {
	case tail == "":
		return body, nil, 0
	case strings.HasSuffix(tail, ","):
		changed += len(body) - len(tail) + 1
		body = tail[:len(tail)-1]
		steps = append(steps, RepairStep{Description: "removed dangling comma", Confidence: 0.8})
	case strings.HasSuffix(tail, ":"):
		body += " null"
		changed += 5
		steps = append(steps, RepairStep{Description: "completed dangling key with null", Confidence: 0.6})
	default:
		if m := trailingLiteralOnly.FindStringSubmatch(tail); m != nil {
			full := literalFor(m[1])
			body = tail + full[len(m[1]):]
			changed += len(full) - len(m[1])
			steps = append(steps, RepairStep{Description: "completed literal " + full, Confidence: 0.6})
		}
	}
	return body, steps, changed
}

func literalFor(prefix string) string {
	switch prefix[0] {
	case 't':
		return "true"
	case 'f':
		return "false"
	default:
		return "null"
	}
}

// stripLineComments removes // comments that occur outside string values.
// Quoted text is left untouched, so URLs inside strings survive.
func stripLineComments(text string) string {
	if !strings.Contains(text, "//") {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	inString, escape := false, false
	var quote byte
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if inString {
			b.WriteByte(ch)
			if escape {
				escape = false
			} else if ch == '\\' {
				escape = true
			} else if ch == quote {
				inString = false
			}
			continue
		}
		if ch == '"' || ch == '\'' {
			inString = true
			quote = ch
			b.WriteByte(ch)
			continue
		}
		if ch == '/' && i+1 < len(text) && text[i+1] == '/' {
			for i < len(text) && text[i] != '\n' {
				i++
			}
			if i < len(text) {
				b.WriteByte('\n')
			}
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}

// repairConfidence maps the amount of repair relative to the input size to
// a score in [0.1, 1.0].
func repairConfidence(changed, inputLen int) float64 {
	if inputLen <= 0 {
		return 0.1
	}
	ratio := float64(changed) / float64(inputLen)
	if ratio > 0.9 {
		ratio = 0.9
	}
	conf := 1.0 - ratio
	if conf < 0.1 {
		conf = 0.1
	}
	return conf
}

func lenDiff(a, b string) int {
	if len(a) > len(b) {
		return len(a) - len(b)
	}
	return len(b) - len(a)
}
