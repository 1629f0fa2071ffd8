// Package grammar expands L-system axioms into turtle command strings.
package grammar

import "strings"

// Turtle command symbols. Any other symbol is a no-op for the interpreter.
const (
	Forward  = 'F'
	TurnPos  = '+'
	TurnNeg  = '-'
	Push     = '['
	Pop      = ']'
	DragonAx = "FX"
)

// Rules maps a symbol to its replacement. Symbols without a rule are kept.
type Rules map[rune]string

// Dragon returns the dragon-curve rule table.
func Dragon() Rules {
	return Rules{
		'F': "F",
		'X': "X+YF+",
		'Y': "-FX-Y",
	}
}

// Expand rewrites axiom with rules the given number of times.
func Expand(axiom string, rules Rules, iterations int) string {
	current := axiom
	for i := 0; i < iterations; i++ {
		var b strings.Builder
		b.Grow(len(current) * 2)
		for _, ch := range current {
			if rep, ok := rules[ch]; ok {
				b.WriteString(rep)
			} else {
				b.WriteRune(ch)
			}
		}
		current = b.String()
	}
	return current
}

// Length returns len([]rune(Expand(axiom, rules, iterations))) without
// building the string.
func Length(axiom string, rules Rules, iterations int) int {
	counts := make(map[rune]int)
	for _, ch := range axiom {
		counts[ch]++
	}
	for i := 0; i < iterations; i++ {
		next := make(map[rune]int, len(counts))
		for ch, n := range counts {
			rep, ok := rules[ch]
			if !ok {
				next[ch] += n
				continue
			}
			for _, r := range rep {
				next[r] += n
			}
		}
		counts = next
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}
