package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalize_SemverForms(t *testing.T) {
	want := Canonicalize("1.2.3")
	assert.Equal(t, "1.2.3", want)
	assert.Equal(t, want, Canonicalize("v1.2.3"))
	assert.Equal(t, want, Canonicalize("V 1.2.3"))
	assert.Equal(t, want, Canonicalize("quill-ls 1.2.3 (release)"))
}

func TestCanonicalize_WeeklyTag(t *testing.T) {
	got := Canonicalize("weekly.2024.15")
	assert.Equal(t, "weekly.2024.15", got)
	assert.NotEqual(t, got, Canonicalize("2024.15.0"))

	// Weekly wins over an embedded numeric triple.
	assert.Equal(t, "weekly.2024.15", Canonicalize("quill-ls weekly.2024.15"))
}

func TestCanonicalize_Fallback(t *testing.T) {
	assert.Equal(t, "", Canonicalize(""))
	assert.Equal(t, "", Canonicalize("   "))
	assert.Equal(t, "dev-build", Canonicalize("v-DEV-build"))
	assert.Equal(t, "nightly", Canonicalize("Nightly"))
}

func TestIsUpToDate(t *testing.T) {
	assert.True(t, IsUpToDate("v1.2.3", "1.2.3"))
	assert.True(t, IsUpToDate("weekly.2024.15", "weekly.2024.15"))

	// A weekly install never matches a semver target.
	assert.False(t, IsUpToDate("weekly.2024.15", "1.2.3"))

	// Unknown on either side forces reconciliation.
	assert.False(t, IsUpToDate("", "1.2.3"))
	assert.False(t, IsUpToDate("1.2.3", ""))
	assert.False(t, IsUpToDate("", ""))

	assert.False(t, IsUpToDate("1.2.3", "1.2.4"))
}
