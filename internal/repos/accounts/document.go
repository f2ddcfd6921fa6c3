package accounts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"
)

// legacyTimeLayout is how the first version of the bot wrote claim timestamps (UTC).
const legacyTimeLayout = "2006-01-02 15:04:05"

type accountDoc struct {
	Balance        int64            `json:"balance"`
	LastDailyClaim *string          `json:"lastDailyClaim,omitempty"`
	LastWork       *string          `json:"lastWork,omitempty"`
	LastGamble     *string          `json:"lastGamble,omitempty"`
	LastRPS        *string          `json:"lastRps,omitempty"`
	Inventory      map[string]int64 `json:"inventory"`
}

// accountDocIn also accepts the snake_case fields of legacy documents.
type accountDocIn struct {
	Balance        *int64           `json:"balance"`
	LastDailyClaim *string          `json:"lastDailyClaim"`
	LastWork       *string          `json:"lastWork"`
	LastGamble     *string          `json:"lastGamble"`
	LastRPS        *string          `json:"lastRps"`
	Inventory      map[string]int64 `json:"inventory"`

	LegacyLastDailyClaim *string `json:"last_daily_claim"`
	LegacyLastWork       *string `json:"last_work"`
	LegacyLastGamble     *string `json:"last_gamble"`
	LegacyLastRPS        *string `json:"last_rps"`
}

// Encode renders the table as an indented JSON object keyed by account id.
// Keys keep the table order.
func Encode(table Table) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, rec := range table {
		if i > 0 {
			buf.WriteByte(',')
		}

		// json.Marshal would turn bad bytes into U+FFFD and merge distinct ids
		if !utf8.ValidString(rec.ID) {
			return nil, fmt.Errorf("encode id %q: not valid UTF-8", rec.ID)
		}

		key, err := json.Marshal(rec.ID)
		if err != nil {
			return nil, fmt.Errorf("encode id %q: %w", rec.ID, err)
		}

		val, err := json.Marshal(toDoc(rec.Account))
		if err != nil {
			return nil, fmt.Errorf("encode account %q: %w", rec.ID, err)
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}

	buf.WriteByte('}')

	var out bytes.Buffer

	err := json.Indent(&out, buf.Bytes(), "", "    ")
	if err != nil {
		return nil, fmt.Errorf("indent document: %w", err)
	}

	out.WriteByte('\n')

	return out.Bytes(), nil
}

// Decode parses a document produced by Encode, or by the legacy bot.
// Empty input decodes to an empty table. Any other malformed input yields an
// empty table and an error wrapping ErrCorruptState.
func Decode(data []byte) (Table, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Table{}, nil
	}

	table, err := decode(data)
	if err != nil {
		return Table{}, fmt.Errorf("%w: %w", ErrCorruptState, err)
	}

	return table, nil
}

func decode(data []byte) (Table, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read opening token: %w", err)
	}

	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("document is not a JSON object")
	}

	table := Table{}
	seen := make(map[string]struct{})

	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read account id: %w", err)
		}

		id, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}

		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("duplicate account %q", id)
		}

		seen[id] = struct{}{}

		var in accountDocIn

		err = dec.Decode(&in)
		if err != nil {
			return nil, fmt.Errorf("decode account %q: %w", id, err)
		}

		acc, err := fromDoc(in)
		if err != nil {
			return nil, fmt.Errorf("account %q: %w", id, err)
		}

		table = append(table, Record{ID: id, Account: acc})
	}

	// closing brace
	_, err = dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read closing token: %w", err)
	}

	_, err = dec.Token()
	if !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after document")
	}

	return table, nil
}

func toDoc(a Account) accountDoc {
	inv := a.Inventory
	if inv == nil {
		inv = map[string]int64{}
	}

	return accountDoc{
		Balance:        a.Balance,
		LastDailyClaim: formatTime(a.LastDailyClaim),
		LastWork:       formatTime(a.LastWork),
		LastGamble:     formatTime(a.LastGamble),
		LastRPS:        formatTime(a.LastRPS),
		Inventory:      inv,
	}
}

func fromDoc(in accountDocIn) (Account, error) {
	if in.Balance == nil {
		return Account{}, errors.New("missing balance")
	}

	if *in.Balance < 0 {
		return Account{}, fmt.Errorf("negative balance %d", *in.Balance)
	}

	acc := Account{
		Balance:   *in.Balance,
		Inventory: make(map[string]int64, len(in.Inventory)),
	}

	for name, qty := range in.Inventory {
		if qty < 0 {
			return Account{}, fmt.Errorf("negative quantity %d for %q", qty, name)
		}

		if qty > 0 {
			acc.Inventory[name] = qty
		}
	}

	var err error

	fields := []struct {
		dst     **time.Time
		current *string
		legacy  *string
		name    string
	}{
		{&acc.LastDailyClaim, in.LastDailyClaim, in.LegacyLastDailyClaim, "lastDailyClaim"},
		{&acc.LastWork, in.LastWork, in.LegacyLastWork, "lastWork"},
		{&acc.LastGamble, in.LastGamble, in.LegacyLastGamble, "lastGamble"},
		{&acc.LastRPS, in.LastRPS, in.LegacyLastRPS, "lastRps"},
	}

	for _, f := range fields {
		raw := f.current
		if raw == nil {
			raw = f.legacy
		}

		*f.dst, err = parseTime(raw)
		if err != nil {
			return Account{}, fmt.Errorf("%s: %w", f.name, err)
		}
	}

	return acc, nil
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}

	s := t.UTC().Format(time.RFC3339Nano)

	return &s
}

func parseTime(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339Nano, *raw)
	if err == nil {
		return &t, nil
	}

	t, lerr := time.ParseInLocation(legacyTimeLayout, *raw, time.UTC)
	if lerr != nil {
		return nil, fmt.Errorf("parse timestamp %q: %w", *raw, err)
	}

	return &t, nil
}
