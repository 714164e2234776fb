package client

import (
	"context"

	"github.com/balkashynov/mentalbank/internal/api"
)

// StartSession starts a backend session for a timer and returns its id.
func (c *Client) StartSession(ctx context.Context, taskID string, hourlyRateUSD *float64) (string, error) {
	session, err := c.CreateSession(ctx, api.StartRequest{TaskID: taskID, HourlyRateUSD: hourlyRateUSD})
	if err != nil {
		return "", err
	}
	return session.ID, nil
}

// StopSession ends the backend session behind a timer.
func (c *Client) StopSession(ctx context.Context, sessionID string) error {
	_, err := c.EndSession(ctx, sessionID, "")
	return err
}

// CategoryRate returns a category's default hourly rate, or nil when it has none.
func (c *Client) CategoryRate(ctx context.Context, categoryID string) (*float64, error) {
	category, err := c.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	return category.HourlyRateUSD, nil
}
