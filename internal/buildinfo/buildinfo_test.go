package buildinfo

import (
    "testing"

    "github.com/stretchr/testify/assert"
)

func TestCurrentPrefersLinkTimeValues(t *testing.T) {
    oldV, oldC := Version, Commit
    t.Cleanup(func() { Version, Commit = oldV, oldC })
    Version, Commit = "v9.9.9", "deadbeef"

    b := Current()
    assert.Equal(t, "v9.9.9", b.Version)
    assert.Equal(t, "deadbeef", b.Commit)
    assert.NotEmpty(t, b.GoVersion)
}
