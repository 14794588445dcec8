package utils

import (
	"fmt"
	"strconv"
	"strings"

	"seatledger/internal/domain"
)

// FormatAmount renders an amount with thousand separators and two decimals, e.g. "12,500.00".
func FormatAmount(amount domain.Money) string {
	v := int64(amount)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%s.%02d", sign, formatThousand(v/100), v%100)
}

func formatThousand(n int64) string {
	if n == 0 {
		return "0"
	}
	str := strconv.FormatInt(n, 10)
	var out strings.Builder
	for i, c := range str {
		if i != 0 && (len(str)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteRune(c)
	}
	return out.String()
}
