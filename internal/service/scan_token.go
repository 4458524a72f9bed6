package service

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/vaultpass/internal/constants"
)

// 证书编号格式：前缀-8位日期-5位字母数字，忽略大小写。
// JSON 载荷里的编号要求整串匹配，自由文本里按词边界搜出嵌入的编号。
var (
	certNumberExactPattern  = regexp.MustCompile(fmt.Sprintf(`(?i)^%s-\d{8}-[A-Z0-9]{%d}$`, constants.CertNumberPrefix, constants.CertNumberSuffixLength))
	certNumberSearchPattern = regexp.MustCompile(fmt.Sprintf(`(?i)\b%s-\d{8}-[A-Z0-9]{%d}\b`, constants.CertNumberPrefix, constants.CertNumberSuffixLength))
)

// scanTokenPayload 扫码枪读出的结构化载荷
type scanTokenPayload struct {
	CertificateNumber string `json:"certificate_number"`
}

// DecodeScanToken 把扫码内容解码成证书编号。
// 优先按 JSON 载荷解析，退回自由文本搜索（容忍编号两侧的说明文字，
// 比如小票上打印的 "Certificate: VLT-... (show at register)"）；
// 都不中返回 ErrMalformedToken。
func DecodeScanToken(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMalformedToken
	}

	if strings.HasPrefix(token, "{") {
		var payload scanTokenPayload
		if err := json.Unmarshal([]byte(token), &payload); err != nil {
			return "", ErrMalformedToken
		}
		number := strings.ToUpper(strings.TrimSpace(payload.CertificateNumber))
		if !certNumberExactPattern.MatchString(number) {
			return "", ErrMalformedToken
		}
		return number, nil
	}

	match := certNumberSearchPattern.FindString(token)
	if match == "" {
		return "", ErrMalformedToken
	}
	return strings.ToUpper(match), nil
}
