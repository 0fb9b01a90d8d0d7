// Package cli turns the interactive client's command lines into websocket
// requests and renders what the server sends back.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"example/marketplace/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownCommand = errors.New("invalid command")
	ErrIllegal        = errors.New("illegal command")
)

// arity is the number of positional arguments each command takes.
var arity = map[string]int{
	"login":      2,
	"logout":     0,
	"buy":        2,
	"offer":      2,
	"list":       0,
	"register":   3,
	"unregister": 0,
	"wish":       2,
	"whoami":     0,
	"quit":       0,
	"help":       0,
}

// Command is one parsed input line.
type Command struct {
	Name string
	Args []string
}

// Local reports whether the command is handled without the server.
func (c Command) Local() bool {
	return c.Name == "quit" || c.Name == "help"
}

// Parse splits line into a command. An empty line yields an empty Command.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, nil
	}
	name := strings.ToLower(fields[0])
	want, ok := arity[name]
	if !ok {
		return Command{}, ErrUnknownCommand
	}
	if len(fields)-1 != want {
		return Command{}, fmt.Errorf("%w: %s takes %d argument(s)", ErrIllegal, name, want)
	}
	return Command{Name: name, Args: fields[1:]}, nil
}

// Request builds the websocket message for c. It returns false when the
// command should be dropped, which is what happens to a malformed price.
func (c Command) Request(id string) (models.WSMessage, bool) {
	msg := models.WSMessage{ID: id, Action: c.Name}
	var payload interface{}

	switch c.Name {
	case "", "quit", "help":
		return msg, false
	case "login":
		payload = models.Credentials{Name: c.Args[0], Password: c.Args[1]}
	case "register":
		payload = models.Credentials{Name: c.Args[0], Password: c.Args[1], LedgerAccount: c.Args[2]}
	case "offer", "wish", "buy":
		price, err := decimal.NewFromString(c.Args[1])
		if err != nil {
			return msg, false
		}
		payload = models.ItemRequest{Item: c.Args[0], Price: price}
	}

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return msg, false
		}
		msg.Data = raw
	}
	return msg, true
}

// Help lists the commands.
func Help() string {
	return strings.Join([]string{
		"login <name> <password>",
		"register <name> <password> <ledger account>",
		"logout | unregister | whoami",
		"list",
		"offer <item> <price>",
		"buy <item> <price>",
		"wish <item> <price>",
		"quit | help",
	}, "\n")
}

// FormatNotification renders a pushed event for the terminal.
func FormatNotification(n models.Notification) string {
	switch n.Kind {
	case models.KindSale:
		return fmt.Sprintf("A buyer has been found for your %s. $%s has been deposited to your account.", n.Item, n.Price.StringFixed(models.PriceScale))
	case models.KindWish:
		return fmt.Sprintf("The product %s is available for $%s.", n.Item, n.Price.StringFixed(models.PriceScale))
	}
	return fmt.Sprintf("%s: %s $%s", n.Kind, n.Item, n.Price.StringFixed(models.PriceScale))
}

// FormatListings renders the catalog one item per line.
func FormatListings(items []models.Listing) string {
	if len(items) == 0 {
		return "No items for sale"
	}
	lines := make([]string, 0, len(items))
	for _, l := range items {
		lines = append(lines, fmt.Sprintf("%s, $%s (%s)", l.Name, l.Price.StringFixed(models.PriceScale), l.Seller))
	}
	return strings.Join(lines, "\n")
}

// FormatResponse renders a reply to one of our own requests.
func FormatResponse(r models.WSResponse) string {
	if !r.Success {
		return "Error: " + r.Error
	}
	switch r.Action {
	case "list":
		var items []models.Listing
		if raw, err := json.Marshal(r.Data); err == nil && json.Unmarshal(raw, &items) == nil {
			return FormatListings(items)
		}
	case "buy":
		if m, ok := r.Data.(map[string]interface{}); ok && m["purchased"] == false {
			return "No such item available"
		}
		return "Purchase successful"
	case "whoami":
		var a models.Account
		if raw, err := json.Marshal(r.Data); err == nil && json.Unmarshal(raw, &a) == nil {
			return fmt.Sprintf("%s (ledger %s): bought %d, sold %d, listed %d", a.Name, a.LedgerAccount, a.Bought, a.Sold, len(a.Listings))
		}
	}
	return "OK: " + r.Action
}
