package api

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/tanq16/humble-cli/internal/models"
)

const choiceScripts = "script#webpack-subscriber-hub-data, script#webpack-monthly-product-data"

// ReadChoices scrapes the membership page of period for the embedded
// Humble Choice JSON.
func (c *Client) ReadChoices(ctx context.Context, period models.ChoicePeriod) (models.HumbleChoice, error) {
	body, err := c.get(ctx, "/membership/{period}", func(r *resty.Request) {
		r.SetPathParam("period", period.Path())
		r.SetHeader("Accept", "text/html")
	})
	if err != nil {
		return models.HumbleChoice{}, err
	}
	return parseChoices(body)
}

func parseChoices(page []byte) (models.HumbleChoice, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return models.HumbleChoice{}, deserializeError(err)
	}
	raw := strings.TrimSpace(doc.Find(choiceScripts).First().Text())
	if raw == "" {
		return models.HumbleChoice{}, notFoundError()
	}
	var choice models.HumbleChoice
	if err := json.Unmarshal([]byte(raw), &choice); err != nil {
		return models.HumbleChoice{}, deserializeError(err)
	}
	return choice, nil
}
