// Package xpath builds XPath 1.0 predicate fragments
package xpath

import "fmt"

const (
	upper = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lower = "abcdefghijklmnopqrstuvwxyz"
)

// ToLower folds term to lower case. XPath 1.0 has no lower-case(), so this
// translates the ASCII range.
func ToLower(term string) string {
	return fmt.Sprintf("translate(%s, '%s', '%s')", term, upper, lower)
}

// StringUpper folds the string value of the context node to upper case
func StringUpper() string {
	return fmt.Sprintf("translate(string(), '%s', '%s')", lower, upper)
}

// StringLower folds the string value of the context node to lower case
func StringLower() string {
	return ToLower("string()")
}

func Contains(container, contained string) string {
	return fmt.Sprintf(`contains(%s, "%s")`, container, contained)
}

func ExactMatch(term, keyword string) string {
	return fmt.Sprintf(`%s = "%s"`, term, keyword)
}

func Not(term string) string {
	return fmt.Sprintf("not(%s)", term)
}
