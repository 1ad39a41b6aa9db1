package syntax

import (
	"strconv"
	"strings"
)

// Flag is the set of compile flags. The bit values are fixed and match the
// values Python's re module uses, so integers round-trip between the two.
type Flag uint32

const (
	FlagTemplate   Flag = 1 << iota // unused; kept for bit compatibility
	FlagIgnoreCase                  // I: case-insensitive matching
	FlagLocale                      // L: locale-dependent \w \b \s for binary patterns
	FlagMultiline                   // M: ^ and $ match at line boundaries
	FlagDotAll                      // S: . matches newline
	FlagUnicode                     // U: Unicode categories (default for text)
	FlagVerbose                     // X: ignore whitespace and comments
	FlagDebug                       // dump the compiled pattern, bypass the cache
	FlagASCII                       // A: ASCII-only categories and folding
	FlagFallback                    // always use the backtracking engine
)

const (
	// TypeFlags are the mutually exclusive alphabet modes.
	TypeFlags = FlagASCII | FlagLocale | FlagUnicode

	// GlobalFlags may only be turned on for the whole pattern.
	GlobalFlags = FlagDebug
)

var flagNames = [...]struct {
	flag Flag
	name string
}{
	{FlagTemplate, "TEMPLATE"},
	{FlagIgnoreCase, "IGNORECASE"},
	{FlagLocale, "LOCALE"},
	{FlagMultiline, "MULTILINE"},
	{FlagDotAll, "DOTALL"},
	{FlagUnicode, "UNICODE"},
	{FlagVerbose, "VERBOSE"},
	{FlagDebug, "DEBUG"},
	{FlagASCII, "ASCII"},
	{FlagFallback, "FALLBACK"},
}

// String renders f the way Python prints a RegexFlag value:
// re.IGNORECASE|re.MULTILINE, with unknown bits as a trailing hex literal.
func (f Flag) String() string {
	if f == 0 {
		return "re.NOFLAG"
	}
	var parts []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			parts = append(parts, "re."+fn.name)
			f &^= fn.flag
		}
	}
	if f != 0 {
		parts = append(parts, "0x"+strconv.FormatUint(uint64(f), 16))
	}
	return strings.Join(parts, "|")
}

// inlineFlag maps an inline flag letter to its flag.
func inlineFlag(c rune) (Flag, bool) {
	switch c {
	case 'i':
		return FlagIgnoreCase, true
	case 'L':
		return FlagLocale, true
	case 'm':
		return FlagMultiline, true
	case 's':
		return FlagDotAll, true
	case 'x':
		return FlagVerbose, true
	case 'a':
		return FlagASCII, true
	case 'u':
		return FlagUnicode, true
	}
	return 0, false
}

// CombineFlags applies a scoped (?add-del:...) group to the flags in force.
// Turning on an alphabet mode replaces the current one.
func CombineFlags(flags, add, del Flag) Flag {
	if add&TypeFlags != 0 {
		flags &^= TypeFlags
	}
	return (flags | add) &^ del
}

// ResolveFlags validates the caller and global inline flags of a pattern
// and adds the implicit UNICODE mode to text patterns.
func ResolveFlags(flags Flag, binary bool) (Flag, error) {
	if !binary {
		if flags&FlagLocale != 0 {
			return 0, usageError("cannot use LOCALE flag with a str pattern")
		}
		if flags&FlagASCII == 0 {
			flags |= FlagUnicode
		} else if flags&FlagUnicode != 0 {
			return 0, usageError("ASCII and UNICODE flags are incompatible")
		}
		return flags, nil
	}
	if flags&FlagUnicode != 0 {
		return 0, usageError("cannot use UNICODE flag with a bytes pattern")
	}
	if flags&FlagLocale != 0 && flags&FlagASCII != 0 {
		return 0, usageError("ASCII and LOCALE flags are incompatible")
	}
	return flags, nil
}
