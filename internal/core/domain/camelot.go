package domain

import "strconv"

// CamelotKey is a position on the Camelot wheel: 1-12 plus A (minor) or B (major).
type CamelotKey struct {
	Number int
	Letter byte
}

// Wheel positions indexed by pitch class. These are fixed tables, not derived.
var (
	majorWheel = [12]int{5, 12, 7, 2, 9, 4, 11, 6, 1, 8, 3, 10}
	minorWheel = [12]int{2, 9, 4, 11, 6, 1, 8, 3, 10, 5, 12, 7}
)

// CamelotOf maps a pitch class and mode onto the wheel. Pitch classes outside
// 0-11 land on the table fallback: 1B for major, 1A for minor.
func CamelotOf(key int, mode Mode) CamelotKey {
	if mode == Major {
		if key < 0 || key > 11 {
			return CamelotKey{Number: 1, Letter: 'B'}
		}
		return CamelotKey{Number: majorWheel[key], Letter: 'B'}
	}
	if key < 0 || key > 11 {
		return CamelotKey{Number: 1, Letter: 'A'}
	}
	return CamelotKey{Number: minorWheel[key], Letter: 'A'}
}

// String renders the key the way DJs write it, e.g. "8A".
func (c CamelotKey) String() string {
	if c.Number == 0 {
		return ""
	}
	return strconv.Itoa(c.Number) + string(c.Letter)
}

// MarshalText lets CamelotKey appear as "8A" in JSON.
func (c CamelotKey) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Step returns how many positions clockwise other sits from c, in [0,12).
func (c CamelotKey) Step(other CamelotKey) int {
	return ((other.Number-c.Number)%12 + 12) % 12
}
