package quote

import (
	"math"
	"strconv"
	"strings"
)

// FormatINR 以印度数字分组格式化卢比金额，不保留小数，例如 ₹12,34,567。
func FormatINR(amount float64) string {
	rounded := math.Round(math.Abs(amount))
	digits := strconv.FormatFloat(rounded, 'f', 0, 64)
	sign := ""
	if amount < 0 && rounded != 0 {
		sign = "-"
	}
	return sign + "₹" + groupIndian(digits)
}

// groupIndian 末三位一组，其余每两位一组。
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	groups := make([]string, 0, len(head)/2+2)
	if len(head)%2 == 1 {
		groups = append(groups, head[:1])
		head = head[1:]
	}
	for len(head) > 0 {
		groups = append(groups, head[:2])
		head = head[2:]
	}
	groups = append(groups, tail)
	return strings.Join(groups, ",")
}
