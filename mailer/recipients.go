package mailer

import (
	"encoding/json"
	"strings"

	"github.com/iwtech/courier/errors"
)

// ParseRecipients interprets the stored recipients field. Two encodings
// are accepted: a JSON array of addresses, or a plain list split on
// commas and semicolons. A value that looks like JSON but fails to parse
// falls back to delimiter splitting rather than erroring.
func ParseRecipients(raw string) ([]string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, errors.New("recipient list is empty")
	}

	if strings.HasPrefix(trimmed, "[") {
		var list []string
		if err := json.Unmarshal([]byte(trimmed), &list); err == nil {
			recipients := cleanRecipients(list)
			if len(recipients) == 0 {
				return nil, errors.New("recipient list is empty")
			}
			return recipients, nil
		}
	}

	split := strings.FieldsFunc(trimmed, func(r rune) bool {
		return r == ',' || r == ';'
	})
	recipients := cleanRecipients(split)
	if len(recipients) == 0 {
		return nil, errors.New("recipient list is empty")
	}
	return recipients, nil
}

func cleanRecipients(list []string) []string {
	var out []string
	for _, addr := range list {
		addr = strings.TrimSpace(addr)
		if addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
