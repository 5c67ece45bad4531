package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeToUnixFloat(t *testing.T) {
	tm := time.Date(2026, 1, 1, 0, 0, 1, 500000000, time.UTC)
	assert.InDelta(t, float64(tm.Unix())+0.5, TimeToUnixFloat(tm), 1e-6)
}
