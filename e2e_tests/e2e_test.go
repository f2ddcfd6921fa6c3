package e2etests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fastprodman/coinledger/internal/api"
	"github.com/fastprodman/coinledger/internal/repos/accounts/file"
	"github.com/fastprodman/coinledger/internal/services/ledger"
)

// baseURLEnv points the suite at an already running API instead of an
// in-process server.
const baseURLEnv = "LEDGER_E2E_BASE_URL"

const timeout = 5 * time.Second

var httpClient = &http.Client{Timeout: timeout}

type instance struct {
	url string
	svc *ledger.Service
	srv *httptest.Server
}

// startInstance serves the API over a file store at path.
func startInstance(t *testing.T, path string) *instance {
	t.Helper()

	svc, err := ledger.New(file.New(path), ledger.Config{})
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}

	err = svc.Load(context.Background())
	if err != nil {
		t.Fatalf("load ledger: %v", err)
	}

	srv := httptest.NewServer(api.NewRouter(svc, nil))

	return &instance{url: srv.URL, svc: svc, srv: srv}
}

func (in *instance) stop(t *testing.T) {
	t.Helper()

	in.srv.Close()

	err := in.svc.Close(context.Background())
	if err != nil {
		t.Fatalf("close ledger: %v", err)
	}
}

func baseURL(t *testing.T) string {
	t.Helper()

	if u := os.Getenv(baseURLEnv); u != "" {
		return u
	}

	in := startInstance(t, filepath.Join(t.TempDir(), "data.json"))
	t.Cleanup(func() { in.stop(t) })

	return in.url
}

func TestE2E_EconomyFlow(t *testing.T) {
	base := baseURL(t)
	user := uniqAccount("flow")

	t.Run("initial_balance", func(t *testing.T) {
		got := getBalance(t, base, user)
		if got != 1000 {
			t.Fatalf("initial balance mismatch: want 1000, got %d", got)
		}
	})

	t.Run("work_pays_in_range", func(t *testing.T) {
		code, body := post(t, base, user, "work", nil)
		if code != http.StatusOK {
			t.Fatalf("work: want 200, got %d (%v)", code, body)
		}

		payout := int64(body["payout"].(float64))
		if payout < ledger.WorkMin || payout > ledger.WorkMax {
			t.Fatalf("payout %d out of range", payout)
		}

		if got := getBalance(t, base, user); got != 1000+payout {
			t.Fatalf("after work: want %d, got %d", 1000+payout, got)
		}
	})

	t.Run("daily_once", func(t *testing.T) {
		code, body := post(t, base, user, "daily", nil)
		if code != http.StatusOK {
			t.Fatalf("first daily: want 200, got %d (%v)", code, body)
		}

		before := getBalance(t, base, user)

		code, _ = post(t, base, user, "daily", nil)
		if code != http.StatusTooManyRequests {
			t.Fatalf("second daily: want 429, got %d", code)
		}

		if got := getBalance(t, base, user); got != before {
			t.Fatalf("rejected daily changed balance: %d -> %d", before, got)
		}
	})

	t.Run("buy_and_inventory", func(t *testing.T) {
		before := getBalance(t, base, user)

		code, body := post(t, base, user, "buy", map[string]any{"item": "cheese"})
		if code != http.StatusOK {
			t.Fatalf("buy: want 200, got %d (%v)", code, body)
		}

		if got := getBalance(t, base, user); got != before-100 {
			t.Fatalf("after buy: want %d, got %d", before-100, got)
		}

		inv := getInventory(t, base, user)
		if inv["cheese"] != 1 {
			t.Fatalf("inventory: want cheese=1, got %v", inv)
		}
	})

	t.Run("gamble_moves_exactly_amount", func(t *testing.T) {
		before := getBalance(t, base, user)

		code, body := post(t, base, user, "gamble", map[string]any{"amount": 50})
		if code != http.StatusOK {
			t.Fatalf("gamble: want 200, got %d (%v)", code, body)
		}

		after := getBalance(t, base, user)
		if after != before+50 && after != before-50 {
			t.Fatalf("gamble: balance %d -> %d", before, after)
		}
	})

	t.Run("rps_nets_plus_minus_wager", func(t *testing.T) {
		before := getBalance(t, base, user)

		code, body := post(t, base, user, "rps", map[string]any{"wager": 20, "choice": "Rock"})
		if code != http.StatusOK {
			t.Fatalf("rps: want 200, got %d (%v)", code, body)
		}

		want := map[string]int64{"win": before + 20, "lose": before - 20, "draw": before}[body["outcome"].(string)]
		if got := getBalance(t, base, user); got != want {
			t.Fatalf("rps %v: want %d, got %d", body["outcome"], want, got)
		}
	})
}

func TestE2E_RejectionsLeaveStateUnchanged(t *testing.T) {
	base := baseURL(t)
	user := uniqAccount("reject")

	cases := []struct {
		name   string
		action string
		body   map[string]any
		want   int
	}{
		{"buy_too_expensive", "buy", map[string]any{"item": "Korilakkuma"}, http.StatusConflict},
		{"buy_unknown", "buy", map[string]any{"item": "pikachu"}, http.StatusNotFound},
		{"gamble_over_limit", "gamble", map[string]any{"amount": 1001}, http.StatusBadRequest},
		{"gamble_zero", "gamble", map[string]any{"amount": 0}, http.StatusBadRequest},
		{"rps_bad_choice", "rps", map[string]any{"wager": 1, "choice": "lizard"}, http.StatusBadRequest},
		{"rps_over_balance", "rps", map[string]any{"wager": 5000, "choice": "paper"}, http.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := post(t, base, user, tc.action, tc.body)
			if code != tc.want {
				t.Fatalf("want %d, got %d (%v)", tc.want, code, body)
			}

			if got := getBalance(t, base, user); got != 1000 {
				t.Fatalf("balance changed to %d", got)
			}
		})
	}
}

func TestE2E_StoreAndLeaderboard(t *testing.T) {
	base := baseURL(t)

	resp := get(t, base+"/store")

	var store struct {
		Items []struct {
			Name  string `json:"name"`
			Price int64  `json:"price"`
		} `json:"items"`
	}
	decodeInto(t, resp, &store)

	if len(store.Items) != len(ledger.DefaultItems) || store.Items[0].Name != "Cheese" || store.Items[0].Price != 100 {
		t.Fatalf("unexpected store: %+v", store.Items)
	}

	rich := uniqAccount("rich")
	getBalance(t, base, rich)
	post(t, base, rich, "work", nil)

	resp = get(t, base+"/leaderboard?limit=1")

	var board struct {
		Standings []struct {
			Rank    int   `json:"rank"`
			Balance int64 `json:"balance"`
		} `json:"standings"`
	}
	decodeInto(t, resp, &board)

	if len(board.Standings) != 1 || board.Standings[0].Rank != 1 || board.Standings[0].Balance < 1100 {
		t.Fatalf("unexpected leaderboard: %+v", board.Standings)
	}
}

// Restarting over the same file must bring every committed change back.
func TestE2E_StateSurvivesRestart(t *testing.T) {
	if os.Getenv(baseURLEnv) != "" {
		t.Skip("restart needs the in-process server")
	}

	path := filepath.Join(t.TempDir(), "data.json")
	user := "restart"

	first := startInstance(t, path)

	post(t, first.url, user, "buy", map[string]any{"item": "cheese"})
	post(t, first.url, user, "daily", nil)
	want := getBalance(t, first.url, user)

	first.stop(t)

	second := startInstance(t, path)
	t.Cleanup(func() { second.stop(t) })

	if got := getBalance(t, second.url, user); got != want {
		t.Fatalf("balance after restart: want %d, got %d", want, got)
	}

	if inv := getInventory(t, second.url, user); inv["cheese"] != 1 {
		t.Fatalf("inventory after restart: %v", inv)
	}

	code, _ := post(t, second.url, user, "daily", nil)
	if code != http.StatusTooManyRequests {
		t.Fatalf("daily cooldown lost on restart: got %d", code)
	}
}

/* -------------------- helpers -------------------- */

func uniqAccount(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func get(t *testing.T, u string) *http.Response {
	t.Helper()

	resp, err := httpClient.Get(u)
	if err != nil {
		t.Fatalf("GET %s: %v", u, err)
	}

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		t.Fatalf("GET %s: want 200, got %d (%s)", u, resp.StatusCode, string(b))
	}

	return resp
}

func decodeInto(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()

	err := json.NewDecoder(resp.Body).Decode(dst)
	if err != nil {
		t.Fatalf("decode json: %v", err)
	}
}

func getBalance(t *testing.T, base, account string) int64 {
	t.Helper()

	resp := get(t, fmt.Sprintf("%s/accounts/%s/balance", base, account))

	var payload struct {
		Data struct {
			AccountID string `json:"accountId"`
			Balance   int64  `json:"balance"`
		} `json:"data"`
	}
	decodeInto(t, resp, &payload)

	if payload.Data.AccountID != account {
		t.Fatalf("accountId mismatch: want %s, got %s", account, payload.Data.AccountID)
	}

	return payload.Data.Balance
}

func getInventory(t *testing.T, base, account string) map[string]int64 {
	t.Helper()

	resp := get(t, fmt.Sprintf("%s/accounts/%s/inventory", base, account))

	var payload struct {
		Data struct {
			Items map[string]int64 `json:"items"`
		} `json:"data"`
	}
	decodeInto(t, resp, &payload)

	return payload.Data.Items
}

// post sends a command and returns the status with the decoded "data" object,
// or the whole body for error responses.
func post(t *testing.T, base, account, action string, body map[string]any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader = http.NoBody

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}

		reader = bytes.NewReader(data)
	}

	u := fmt.Sprintf("%s/accounts/%s/%s", base, account, action)

	req, err := http.NewRequest(http.MethodPost, u, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var payload map[string]any

	err = json.NewDecoder(resp.Body).Decode(&payload)
	if err != nil {
		t.Fatalf("decode %s response: %v", action, err)
	}

	if data, ok := payload["data"].(map[string]any); ok {
		return resp.StatusCode, data
	}

	return resp.StatusCode, payload
}
