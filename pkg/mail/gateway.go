// Package mail provides email delivery via the CargoLink mailer function.
package mail

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Sender is the interface implemented by mail gateways
type Sender interface {
	Send(msg Message) error
	GetName() string
}

// Message is a single outbound email
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// HTTPGateway sends email through the serverless mailer function
type HTTPGateway struct {
	functionURL string
	apiKey      string
	fromAddress string
	fromName    string
	client      *http.Client
}

// HTTPGatewayConfig holds configuration for the mailer function gateway
type HTTPGatewayConfig struct {
	FunctionURL string
	APIKey      string
	FromAddress string
	FromName    string
}

// NewHTTPGateway creates a gateway client for the mailer function
func NewHTTPGateway(config HTTPGatewayConfig) *HTTPGateway {
	return &HTTPGateway{
		functionURL: config.FunctionURL,
		apiKey:      config.APIKey,
		fromAddress: config.FromAddress,
		fromName:    config.FromName,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// sendMailRequest is the mailer function's request payload
type sendMailRequest struct {
	To          string `json:"to"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	FromAddress string `json:"fromAddress"`
	FromName    string `json:"fromName"`
}

// sendMailResponse is the mailer function's response payload
type sendMailResponse struct {
	Status    string `json:"status"`
	Comment   string `json:"comment"`
	MessageID string `json:"messageId"`
	ErrCode   string `json:"errCode"`
}

// Send delivers a single email through the mailer function
func (g *HTTPGateway) Send(msg Message) error {
	mailReq := sendMailRequest{
		To:          msg.To,
		Subject:     msg.Subject,
		Body:        msg.Body,
		FromAddress: g.fromAddress,
		FromName:    g.fromName,
	}

	jsonData, err := json.Marshal(mailReq)
	if err != nil {
		return fmt.Errorf("failed to marshal mail request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, g.functionURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send mail request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read mail response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mailer function returned status %d: %s", resp.StatusCode, string(body))
	}

	var mailResp sendMailResponse
	if err := json.Unmarshal(body, &mailResp); err != nil {
		return fmt.Errorf("failed to parse mail response: %w", err)
	}

	if mailResp.Status != "success" {
		return fmt.Errorf("mail sending failed: %s (error code: %s)", mailResp.Comment, mailResp.ErrCode)
	}

	return nil
}

// GetName returns the name of this mail gateway
func (g *HTTPGateway) GetName() string {
	return "CargoLink Mailer Function Gateway"
}

// DevGateway logs emails instead of sending them. Used outside production.
type DevGateway struct{}

// NewDevGateway creates a log-only gateway for local development
func NewDevGateway() *DevGateway {
	return &DevGateway{}
}

// Send logs the email without delivering it
func (g *DevGateway) Send(msg Message) error {
	logrus.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("Dev mail gateway: email logged, not sent")
	return nil
}

// GetName returns the name of this mail gateway
func (g *DevGateway) GetName() string {
	return "Dev Log Gateway"
}
