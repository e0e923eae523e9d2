// Package validate 提供开户预检与工单流程使用的格式校验。
// 所有函数都是纯函数，输入会先去掉首尾空白。
package validate

import (
	"regexp"
	"strings"
)

var (
	panPattern   = regexp.MustCompile(`(?i)^[A-Z]{5}[0-9]{4}[A-Z]$`)
	gstinPattern = regexp.MustCompile(`(?i)^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][A-Z0-9]Z[A-Z0-9]$`)
	iecPattern   = regexp.MustCompile(`^[0-9]{10}$`)
	emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)
)

// PAN 校验印度 PAN：5 个字母、4 个数字、1 个字母。
func PAN(input string) bool {
	return panPattern.MatchString(strings.TrimSpace(input))
}

// GSTIN 校验 15 位 GSTIN：2 位州代码 + PAN 主体 + 实体码 + 'Z' + 校验位。
func GSTIN(input string) bool {
	return gstinPattern.MatchString(strings.TrimSpace(input))
}

// IEC 校验 10 位数字的进出口代码。
func IEC(input string) bool {
	return iecPattern.MatchString(strings.TrimSpace(input))
}

// Email 做最基本的邮箱格式校验。
func Email(input string) bool {
	return emailPattern.MatchString(strings.TrimSpace(input))
}
