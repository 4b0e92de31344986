package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"tick-backtest/internal/domain"
)

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(strategy|config|sorted symbols joined by ","|data_fingerprint)
// Returns hex-encoded hash (64 characters).
func ComputeRunID(
	strategy string,
	config []byte,
	symbols []string,
	dataFingerprint string,
) string {
	sorted := append([]string(nil), symbols...)
	sort.Strings(sorted)

	data := fmt.Sprintf("%s|%s|%s|%s",
		strategy,
		string(config),
		strings.Join(sorted, ","),
		dataFingerprint,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeDataFingerprint hashes the content of a tick stream.
// Formula: SHA256 over "symbol|id|time|price|volume|bid|ask\n" per tick, in order.
// Returns hex-encoded hash (64 characters).
func ComputeDataFingerprint(ticks []domain.Tick) string {
	h := sha256.New()
	var buf []byte
	for _, t := range ticks {
		buf = buf[:0]
		buf = append(buf, t.Symbol...)
		buf = append(buf, '|')
		buf = strconv.AppendInt(buf, t.ID, 10)
		buf = append(buf, '|')
		buf = strconv.AppendFloat(buf, t.Time, 'g', -1, 64)
		buf = append(buf, '|')
		buf = strconv.AppendFloat(buf, t.Price, 'g', -1, 64)
		buf = append(buf, '|')
		buf = strconv.AppendInt(buf, t.Volume, 10)
		buf = append(buf, '|')
		buf = strconv.AppendFloat(buf, t.Bid, 'g', -1, 64)
		buf = append(buf, '|')
		buf = strconv.AppendFloat(buf, t.Ask, 'g', -1, 64)
		buf = append(buf, '\n')
		h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil))
}
