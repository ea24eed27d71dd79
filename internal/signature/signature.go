package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Verify сверяет подпись вебхука: hex(HMAC-SHA256(secret, body)).
// body — это СЫРЫЕ байты запроса как пришли по сети; любая повторная
// сериализация (другой порядок ключей, пробелы) ломает подпись.
func Verify(body []byte, got string, secret string) bool {
	if got == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(got))
}

// Sign считает подпись за провайдера; нужен тестам и mock-доставке.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
