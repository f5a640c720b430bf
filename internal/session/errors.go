package session

import "strings"

// authMessage maps a provider error substring to the Vietnamese message
// shown to the user. First match wins.
type authMessage struct {
	substring string
	message   string
}

var authMessages = []authMessage{
	{"invalid email or password", "Email hoặc mật khẩu không đúng. Bạn kiểm tra lại nhé!"},
	{"invalid login credentials", "Email hoặc mật khẩu không đúng. Bạn kiểm tra lại nhé!"},
	{"already registered", "Email này đã được đăng ký. Bạn thử đăng nhập nhé!"},
	{"password too short", "Mật khẩu cần ít nhất 6 ký tự."},
	{"password should be at least", "Mật khẩu cần ít nhất 6 ký tự."},
	{"rate limit", "Bạn thao tác hơi nhanh, chờ một chút rồi thử lại nhé!"},
	{"too many requests", "Bạn thao tác hơi nhanh, chờ một chút rồi thử lại nhé!"},
	{"email not confirmed", "Email chưa được xác nhận. Bạn kiểm tra hộp thư nhé!"},
	{"network", "Không kết nối được máy chủ. Bạn kiểm tra mạng nhé!"},
}

const genericAuthMessage = "Có lỗi xảy ra"

// LocalizeAuthError turns an auth failure into a user-facing Vietnamese
// message. Unmatched errors fall back to a generic message carrying the
// raw detail so support can still diagnose.
func LocalizeAuthError(err error) string {
	if err == nil {
		return ""
	}
	raw := err.Error()
	lower := strings.ToLower(raw)
	for _, m := range authMessages {
		if strings.Contains(lower, m.substring) {
			return m.message
		}
	}
	return genericAuthMessage + ": " + raw
}
