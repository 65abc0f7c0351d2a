/*
Package code defines the 3-letter station code and its compact integer form.

A code packs into 15 bits, 5 bits per letter, with the first letter in the
least significant bits:

	value = (c0-'A') | (c1-'A')<<5 | (c2-'A')<<10

so "AAA" is 0 and "ZZZ" is 25 | 25<<5 | 25<<10.
*/
package code

import (
	"errors"
	"fmt"
)

// Length is the number of letters in every code.
const Length = 3

const (
	bitsPerLetter = 5
	letterMask    = 1<<bitsPerLetter - 1
	alphabetSize  = 26
	valueBits     = Length * bitsPerLetter
)

var (
	// ErrInvalidCode is returned for strings that are not 3 letters A-Z.
	ErrInvalidCode = errors.New("invalid station code")
	// ErrInvalidValue is returned when an integer does not decode to a code.
	ErrInvalidValue = errors.New("invalid encoded value")
)

// Code is a 3-letter uppercase station code.
type Code string

// Parse checks that s is a valid code.
func Parse(s string) (Code, error) {
	c := Code(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCode, s)
	}
	return c, nil
}

// Valid reports whether c holds exactly 3 letters in A-Z.
func (c Code) Valid() bool {
	if len(c) != Length {
		return false
	}
	for i := 0; i < len(c); i++ {
		if c[i] < 'A' || c[i] > 'Z' {
			return false
		}
	}
	return true
}

func (c Code) String() string {
	return string(c)
}

// Encode packs c into its integer form. It panics on an invalid code;
// use EncodeString for unchecked input.
func (c Code) Encode() uint16 {
	if !c.Valid() {
		panic(fmt.Sprintf("code: Encode called on invalid code %q", string(c)))
	}
	var v uint16
	for i := 0; i < Length; i++ {
		v += uint16(c[i]-'A') << (bitsPerLetter * i)
	}
	return v
}

// EncodeString validates s and returns its encoded value.
func EncodeString(s string) (uint16, error) {
	c, err := Parse(s)
	if err != nil {
		return 0, err
	}
	return c.Encode(), nil
}

// Decode is the inverse of Encode.
func Decode(v uint16) (Code, error) {
	if v>>valueBits != 0 {
		return "", fmt.Errorf("%w: %d uses more than %d bits", ErrInvalidValue, v, valueBits)
	}
	buf := make([]byte, Length)
	for i := 0; i < Length; i++ {
		letter := (v >> (bitsPerLetter * i)) & letterMask
		if letter >= alphabetSize {
			return "", fmt.Errorf("%w: %d has letter group %d out of range", ErrInvalidValue, v, letter)
		}
		buf[i] = 'A' + byte(letter)
	}
	return Code(buf), nil
}

// MaxValue is the encoded value of "ZZZ".
func MaxValue() uint16 {
	return Code("ZZZ").Encode()
}
