package sys

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVersion(t *testing.T) {
	assert.Equal(t, "1.25.7", ShortVersion(ParseVersion("go1.25.7")))
	assert.Equal(t, "0.19.0", ShortVersion(ParseVersion("v0.19.0-rc.15.0.20260211231526-733e186766a7")))
	assert.Equal(t, "1.2.0", ShortVersion(ParseVersion("1.2")))
	assert.Equal(t, "0.0.0", ShortVersion(ParseVersion("devel +abc")))
	assert.Equal(t, "0.0.0", ShortVersion(ParseVersion("")))
}

func TestCurrentVersions(t *testing.T) {
	v := CurrentVersions()
	assert.Equal(t, ShortVersion(ParseVersion(Version)), v.Bot)
	assert.NotEmpty(t, v.Go)
	assert.NotEmpty(t, v.Library)
}
