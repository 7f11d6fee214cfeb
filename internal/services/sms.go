package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chachabrian/fleetshare-backend/internal/config"
)

const africasTalkingURL = "https://api.africastalking.com/version1/messaging"

// SMSNotifier texts the event body to recipients with a phone number through
// Africa's Talking.
type SMSNotifier struct {
	cfg      config.SMS
	users    UserStore
	endpoint string
	client   *http.Client
}

func NewSMSNotifier(cfg config.SMS, users UserStore) *SMSNotifier {
	return &SMSNotifier{
		cfg:      cfg,
		users:    users,
		endpoint: africasTalkingURL,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *SMSNotifier) Notify(ctx context.Context, e Event) error {
	var phones []string
	for _, userID := range e.Recipients {
		user, err := n.users.GetByID(ctx, userID)
		if err != nil || user.Phone == "" {
			continue
		}
		phones = append(phones, user.Phone)
	}
	if len(phones) == 0 {
		return nil
	}

	message := e.Body
	if message == "" {
		message = e.Title
	}
	if message == "" {
		message = fmt.Sprintf("%s #%d is now %s", strings.ReplaceAll(e.Kind, "_", " "), e.ID, e.Status)
	}

	data := url.Values{}
	data.Set("username", n.cfg.Username)
	data.Set("to", strings.Join(phones, ","))
	data.Set("message", message)
	if n.cfg.Sender != "" {
		data.Set("from", n.cfg.Sender)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("apiKey", n.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to send SMS: status code %d", resp.StatusCode)
	}
	return nil
}
