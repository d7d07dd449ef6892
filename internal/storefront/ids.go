package storefront

import (
	"fmt"
	"strconv"
	"strings"
)

// OrderGID builds the admin API id of an order from its numeric id.
func OrderGID(id int64) string {
	return fmt.Sprintf("gid://shopify/Order/%d", id)
}

// ProductGID builds the admin API id of a product from its numeric id.
func ProductGID(id int64) string {
	return fmt.Sprintf("gid://shopify/Product/%d", id)
}

// NumericID extracts the trailing numeric id of a gid; plain numbers pass through.
func NumericID(gid string) (int64, error) {
	tail := gid
	if i := strings.LastIndex(gid, "/"); i >= 0 {
		tail = gid[i+1:]
	}
	if q := strings.IndexByte(tail, '?'); q >= 0 {
		tail = tail[:q]
	}
	id, err := strconv.ParseInt(tail, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", gid)
	}
	return id, nil
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
