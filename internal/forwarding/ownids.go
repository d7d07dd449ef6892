package forwarding

import (
	"strconv"
	"strings"

	"github.com/angelmondragon/distribridge/internal/supplier"
)

const ownOrderPrefix = "SH"

// AssignOwnOrderIDs returns one supplier order reference per distributor
// group, in group order: "SH<number>" for the first, "SH<number>/<i>" after.
// References are capped at the supplier limit by shortening the order number
// so the "/<i>" suffix survives and groups never collide.
func AssignOwnOrderIDs(orderNumber string, groups int) []string {
	number := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(orderNumber), "#"))
	ids := make([]string, 0, groups)
	for i := 0; i < groups; i++ {
		suffix := ""
		if i > 0 {
			suffix = "/" + strconv.Itoa(i)
		}
		base := ownOrderPrefix + number
		if room := supplier.MaxOwnOrderIDLength - len(suffix); len(base) > room {
			base = base[:room]
		}
		ids = append(ids, base+suffix)
	}
	return ids
}
