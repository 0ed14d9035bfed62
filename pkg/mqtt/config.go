package mqtt

import (
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// ClientConfig holds the connection settings for a Client.
type ClientConfig struct {
	BrokerURL string
	Username  string
	Password  string
	ClientID  string

	KeepAlive          uint16
	ConnectTimeout     time.Duration
	CleanStart         bool
	InsecureSkipVerify bool
}

// Validate checks the config for obvious problems.
func (c *ClientConfig) Validate() error {
	if c.BrokerURL == "" {
		return fmt.Errorf("broker URL is required")
	}
	if _, err := url.Parse(c.BrokerURL); err != nil {
		return fmt.Errorf("invalid broker URL %q: %w", c.BrokerURL, err)
	}
	return nil
}

func setDefaultConfig(c *ClientConfig) {
	if c.ClientID == "" {
		c.ClientID = "fleetsync-" + uuid.NewString()[:8]
	}
	if c.KeepAlive == 0 {
		c.KeepAlive = 60
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5 * time.Second
	}
}
