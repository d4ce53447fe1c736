// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package grammar

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownAlphabet is returned by ParseAlphabet for unrecognized names.
var ErrUnknownAlphabet = errors.New("unknown alphabet")

// Alphabet is the character pool the expander draws from for the
// CharSymbol nonterminal and input generators draw from for random
// strings.
type Alphabet []rune

// Predefined alphabets. Circuit compilers consume byte/codepoint
// streams, so the extended set exercises multi-byte handling.
var (
	// AlphabetLower is the lowercase ASCII letters.
	AlphabetLower = Alphabet("abcdefghijklmnopqrstuvwxyz")

	// AlphabetAlnum is ASCII letters and digits.
	AlphabetAlnum = Alphabet("abcdefghijklmnopqrstuvwxyz" +
		"ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")

	// AlphabetPrintable is the ASCII printable range (space through tilde).
	AlphabetPrintable = func() Alphabet {
		out := make(Alphabet, 0, 95)
		for r := rune(' '); r <= '~'; r++ {
			out = append(out, r)
		}
		return out
	}()

	// AlphabetExtended adds Latin Extended, Greek, and Cyrillic samples
	// on top of the printable set.
	AlphabetExtended = append(append(Alphabet{}, AlphabetPrintable...),
		[]rune("āĂćĐēğĩŁńŕśŧūźžαβγδεζηθικλμνξπρστυφχψωАБВГДЕЖЗИЙКЛМНОПРСТУФХЦЧШЩЪЫЬЭЮЯабвгдежзийклмнопрстуфхцчшщъыьэюя")...)
)

// patternMetachars are characters with regex meaning; they are removed
// from literal positions so generated patterns stay well formed.
const patternMetachars = `\.+*?()|[]{}^$-`

// PatternSafe returns a copy with regex metacharacters removed.
func (a Alphabet) PatternSafe() Alphabet {
	out := make(Alphabet, 0, len(a))
	for _, r := range a {
		if !strings.ContainsRune(patternMetachars, r) {
			out = append(out, r)
		}
	}
	return out
}

// Contains reports whether r is in the alphabet.
func (a Alphabet) Contains(r rune) bool {
	for _, c := range a {
		if c == r {
			return true
		}
	}
	return false
}

// String renders the alphabet as its characters.
func (a Alphabet) String() string {
	return string([]rune(a))
}

// ParseAlphabet resolves a named alphabet.
//
// Recognized names: "lower", "alnum", "printable", "extended".
func ParseAlphabet(name string) (Alphabet, error) {
	switch strings.ToLower(name) {
	case "lower", "":
		return AlphabetLower, nil
	case "alnum":
		return AlphabetAlnum, nil
	case "printable":
		return AlphabetPrintable, nil
	case "extended":
		return AlphabetExtended, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlphabet, name)
	}
}
