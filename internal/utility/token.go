package utility

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CreateToken phát hành JWT (HS256) cho userID với thời hạn expireHour giờ.
func CreateToken(secret string, userID string, expireHour int) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"userId": userID,
		"iat":    now.Unix(),
		"exp":    now.Add(time.Duration(expireHour) * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
