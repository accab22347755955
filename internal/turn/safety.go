package turn

import "regexp"

// Safety gates. Both pattern lists are fixed and intentionally narrow; they
// run against the raw (unfolded) user text before any generation call.
// Dangerous content blocks the whole turn with a refusal; financial-advice
// requests get a canned general-principles reply instead of a model call.

var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)cách\s+(giết|tự\s+t[ửử]|làm\s+h[ạa]i|ch[ếế]t|t[ửử]\s+vong)`),
	regexp.MustCompile(`(?i)h[ướư]ng\s+d[ẫẫ]n.*(hack|l[ừử]a\s+đảo|phá\s+ho[ạa]i|vi\s+ph[ạa]m)`),
	regexp.MustCompile(`(?i)mua\s+(ma\s+túy|ch[ấấ]t\s+c[ấấ]m|vũ\s+khí)`),
	regexp.MustCompile(`(?i)(bomb|b[ộộ]m|v[ũũ]\s+khí|ch[ấấ]t\s+nổ)`),
	regexp.MustCompile(`(?i)phân\s+biệt\s+(chủng\s+tộc|giới\s+tính|t[ôô]n\s+giáo)`),
}

var financialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)có\s+\d+.*(?:tỷ|triệu|đồng).*đầu\s+tư`),
	regexp.MustCompile(`(?i)nên\s+đầu\s+tư\s+vào\s+(?:cổ\s+phiếu|bất\s+động\s+sản|vàng)`),
	regexp.MustCompile(`(?i)mua.*(?:cổ\s+phiếu|chứng\s+khoán).*nào`),
	regexp.MustCompile(`(?i)tư vấn tài chính`),
	regexp.MustCompile(`(?i)tài chính cá nhân`),
	regexp.MustCompile(`(?i)quản lý tiền`),
}

func isDangerous(content string) bool {
	for _, p := range dangerousPatterns {
		if p.MatchString(content) {
			return true
		}
	}
	return false
}

func isFinancialAdvice(content string) bool {
	for _, p := range financialPatterns {
		if p.MatchString(content) {
			return true
		}
	}
	return false
}
