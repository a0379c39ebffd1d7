package services

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"
)

// SMS delivery through textbee.dev. Strictly best-effort: failures are
// logged, never surfaced to the caller.

var smsHTTPClient = &http.Client{Timeout: 10 * time.Second}

func SendSMS(phone string, message string) bool {
	baseURL := os.Getenv("TEXTBEE_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.textbee.dev/api/v1"
	}
	deviceID := os.Getenv("TEXTBEE_DEVICE_ID")
	apiKey := os.Getenv("TEXTBEE_API_KEY")
	if deviceID == "" || apiKey == "" {
		log.Println("⚠️  SMS not configured, skipping send to", phone)
		return false
	}

	payload, err := json.Marshal(map[string]interface{}{
		"recipients": []string{phone},
		"message":    message,
	})
	if err != nil {
		return false
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/gateway/devices/"+deviceID+"/send-sms", bytes.NewReader(payload))
	if err != nil {
		return false
	}
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := smsHTTPClient.Do(req)
	if err != nil {
		log.Printf("❌ SMS send failed for %s: %v", phone, err)
		return false
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		log.Printf("❌ SMS send failed for %s: status %d", phone, res.StatusCode)
		return false
	}
	return true
}
