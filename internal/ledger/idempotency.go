package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fundwatch/internal/models"
)

// IdempotencyKey hashes the canonical form of a trade request. Identical
// logical requests, including reruns from a crashed sender, always hash to
// the same key; any field difference changes it. The "None"/"none" sentinels
// for absent amount and client message id are part of the wire contract and
// must not change.
func IdempotencyKey(userID int64, fundCode string, tradeType models.TradeType, tradeDate time.Time, amount *decimal.Decimal, navPrice decimal.Decimal, clientMsgID string) string {
	amountPart := "None"
	if amount != nil {
		amountPart = amount.StringFixed(2)
	}
	if clientMsgID == "" {
		clientMsgID = "none"
	}

	parts := []string{
		strconv.FormatInt(userID, 10),
		fundCode,
		string(tradeType),
		tradeDate.Format("2006-01-02"),
		amountPart,
		navPrice.StringFixed(6),
		clientMsgID,
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, ":")))
	return hex.EncodeToString(sum[:])
}
