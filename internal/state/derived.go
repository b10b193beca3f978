package state

import (
	"math"
	"strconv"

	"github.com/five82/devpanel/internal/backend"
)

// Health is a three-level severity.
type Health string

const (
	HealthSuccess Health = "success"
	HealthWarning Health = "warning"
	HealthDanger  Health = "danger"
)

// Thresholds are strict: a value equal to a threshold does not cross it.
const (
	cpuDanger     = 80
	memoryDanger  = 80
	diskDanger    = 90
	cpuWarning    = 60
	memoryWarning = 60
	diskWarning   = 70
)

// SystemHealth classifies metrics. Danger is checked before warning.
func SystemHealth(m backend.Metrics) Health {
	switch {
	case m.CPUUsage > cpuDanger || m.Memory.Percent > memoryDanger || m.Disk.Percent > diskDanger:
		return HealthDanger
	case m.CPUUsage > cpuWarning || m.Memory.Percent > memoryWarning || m.Disk.Percent > diskWarning:
		return HealthWarning
	default:
		return HealthSuccess
	}
}

// ClusterHealth is danger with no active servers, warning with any failed
// server, success otherwise.
func ClusterHealth(c backend.ClusterStatus) Health {
	switch {
	case len(c.ActiveServers) == 0:
		return HealthDanger
	case len(c.FailedServers) > 0:
		return HealthWarning
	default:
		return HealthSuccess
	}
}

var byteUnits = []string{"Bytes", "KB", "MB", "GB", "TB", "PB"}

// FormatBytes renders a byte count with a 1024-based unit, rounded to
// decimals places (default 2, negative treated as 0) with trailing zeros
// dropped: 1536 → "1.5 KB". Counts past the PB range stay in PB.
func FormatBytes(bytes uint64, decimals ...int) string {
	if bytes == 0 {
		return "0 Bytes"
	}
	dm := 2
	if len(decimals) > 0 {
		dm = max(decimals[0], 0)
	}

	value := float64(bytes)
	unit := 0
	for value >= 1024 && unit < len(byteUnits)-1 {
		value /= 1024
		unit++
	}

	scale := math.Pow(10, float64(dm))
	rounded := math.Round(value*scale) / scale
	return strconv.FormatFloat(rounded, 'f', -1, 64) + " " + byteUnits[unit]
}
