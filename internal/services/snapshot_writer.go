package services

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/ruralpay/payment-engine/internal/models"
)

// DisplayPrecision is the number of fractional digits printed for amounts.
const DisplayPrecision = 4

var snapshotHeader = []string{"client", "available", "held", "total", "locked"}

// WriteSnapshot renders accounts as CSV, one row per account, in the order given.
func WriteSnapshot(w io.Writer, accounts []models.AccountSnapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(snapshotHeader); err != nil {
		return err
	}
	for _, acc := range accounts {
		row := []string{
			strconv.FormatUint(uint64(acc.ClientID), 10),
			acc.Available.StringFixed(DisplayPrecision),
			acc.Held.StringFixed(DisplayPrecision),
			acc.Total.StringFixed(DisplayPrecision),
			strconv.FormatBool(acc.Locked),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
