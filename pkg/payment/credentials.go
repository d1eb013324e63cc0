package payment

import (
	"encoding/base64"
	"time"
)

// eat is the gateway's wall clock (UTC+3, no DST).
var eat = time.FixedZone("EAT", 3*60*60)

// Timestamp formats t as YYYYMMDDHHMMSS in East Africa Time.
func Timestamp(t time.Time) string {
	return t.In(eat).Format("20060102150405")
}

// Password is base64(shortCode + passKey + timestamp). The timestamp must be
// the same one sent in the request body.
func Password(shortCode, passKey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passKey + timestamp))
}
