package webhookhdl

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func signBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"object":"page","entry":[]}`)
	secret := "app-secret"

	if !verifySignature(body, signBody(body, secret), secret) {
		t.Error("Chữ ký đúng phải được chấp nhận")
	}
	if verifySignature(body, signBody(body, "secret-khac"), secret) {
		t.Error("Chữ ký ký bằng secret khác phải bị từ chối")
	}
	if verifySignature(body, "", secret) {
		t.Error("Thiếu header chữ ký phải bị từ chối khi có app secret")
	}
	if verifySignature(body, "md5=abc", secret) {
		t.Error("Header sai định dạng phải bị từ chối")
	}
	if !verifySignature(body, "", "") {
		t.Error("Không cấu hình app secret thì bỏ qua kiểm tra chữ ký")
	}
}
