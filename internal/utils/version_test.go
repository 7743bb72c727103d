package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePHPVersion(t *testing.T) {
	cases := map[string]string{
		"^8.2.1":      "8.2",
		"8.3":         "8.3",
		">=8.1 <9.0":  "8.1",
		"~7.4":        "7.4",
		"*":           "unknown",
		"":            "unknown",
		"php8":        "unknown",
		"^8.2|^8.3.0": "8.2",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizePHPVersion(in), "input %q", in)
	}
}

func TestParseVersionNumber(t *testing.T) {
	v := ParseVersionNumber("8.2.1")
	if assert.NotNil(t, v) {
		assert.Equal(t, VersionNumber{Major: 8, Minor: 2, Micro: 1}, *v)
	}
	v = ParseVersionNumber("8.3")
	if assert.NotNil(t, v) {
		assert.Equal(t, VersionNumber{Major: 8, Minor: 3}, *v)
	}
	assert.Nil(t, ParseVersionNumber("8"))
	assert.Nil(t, ParseVersionNumber("a.b"))
	assert.Nil(t, ParseVersionNumber("unknown"))
}

func TestCompareVersion(t *testing.T) {
	assert.Equal(t, -1, CompareVersion(VersionNumber{8, 2, 0}, VersionNumber{8, 3, 0}))
	assert.Equal(t, 1, CompareVersion(VersionNumber{9, 0, 0}, VersionNumber{8, 3, 9}))
	assert.Equal(t, 0, CompareVersion(VersionNumber{8, 3, 1}, VersionNumber{8, 3, 1}))
	assert.Equal(t, 1, CompareVersion(VersionNumber{8, 3, 2}, VersionNumber{8, 3, 1}))
}

func TestValidPHPVersion(t *testing.T) {
	assert.True(t, ValidPHPVersion("8.3"))
	assert.False(t, ValidPHPVersion("8.3.1"))
	assert.False(t, ValidPHPVersion("unknown"))
}
