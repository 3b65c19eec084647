package binance

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Sign appends timestamp and an HMAC-SHA256 signature to query.
func Sign(query, secret string, ts time.Time) string {
	data := query
	if data != "" {
		data += "&"
	}
	data += "timestamp=" + strconv.FormatInt(ts.UnixMilli(), 10)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	return data + "&signature=" + hex.EncodeToString(mac.Sum(nil))
}
