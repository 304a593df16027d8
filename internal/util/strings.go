package util

import "strconv"

// Plural formats n with noun, adding "s" unless n is 1: "1 host", "3 hosts".
func Plural(n int, noun string) string {
	s := strconv.Itoa(n) + " " + noun
	if n != 1 {
		s += "s"
	}
	return s
}
