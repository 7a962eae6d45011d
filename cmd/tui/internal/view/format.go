package view

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/elpasofurniture/invoicer/internal/invoice"
)

const apiTimeout = 10 * time.Second

// FormatAmount renders a stored dollar amount, e.g. "$1,082.50".
func FormatAmount(amount float64) string {
	return invoice.FormatAmount(amount)
}

// FormatSize renders a byte count the way a file manager would.
func FormatSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// FormatTime renders a timestamp in local time with a relative hint.
func FormatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04") + " (" + humanize.Time(t) + ")"
}

// APICtx returns a context with the standard timeout for API calls.
func APICtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), apiTimeout)
}
