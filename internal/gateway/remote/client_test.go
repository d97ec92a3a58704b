package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dompet/internal/core"
)

const snapshotJSON = `{
	"status": "success", "user_id": 42,
	"is_prem": true, "is_vip": false, "is_admin": false,
	"expiry_date": "31 Dec 2026",
	"balance": "150,000", "income": "1,000,000", "expense": "450,000",
	"cash_balance": "100,000", "ewallet_balance": "50,000", "bank_balance": "0",
	"budget_limit": 500000,
	"recents": [
		{"id": 7, "type": "OUT", "amount": 25000.0, "description": "Kopi", "category": "Makanan", "wallet": "cash", "datetime": "16 Oct 09:00"},
		{"id": 6, "type": "IN", "amount": 1000000.0, "description": "Gaji", "category": "Pemasukan", "wallet": "BCA", "datetime": "01 Oct 08:00"}
	],
	"chart_labels": ["Makanan", "Transport"], "chart_values": [300000.0, 150000.0],
	"monthly_labels": ["2026-09", "2026-10"], "monthly_inc": [0.0, 1000000.0], "monthly_exp": [0.0, 450000.0]
}`

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL, HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestFetchSnapshotDecodesFormattedAmounts(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/get_data" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, snapshotJSON)
	}))

	snap, recents, err := c.FetchSnapshot(context.Background())
	if err != nil {
		t.Fatalf("FetchSnapshot: %v", err)
	}
	if snap.Tier != core.Pro || snap.ExpiryDate != "31 Dec 2026" || snap.UserID != 42 {
		t.Fatalf("unexpected identity: %+v", snap)
	}
	if snap.TotalBalance() != 150000 || snap.Balance(core.Cash) != 100000 {
		t.Fatalf("unexpected balances: %v", snap.Balances)
	}
	if snap.BudgetLimit != 500000 || snap.Expense != 450000 {
		t.Fatalf("budget=%d expense=%d", snap.BudgetLimit, snap.Expense)
	}
	if len(snap.Categories) != 2 || snap.Categories[1].Value != 150000 {
		t.Fatalf("categories = %+v", snap.Categories)
	}
	if snap.Monthly.LastExpense() != 450000 {
		t.Fatalf("monthly = %+v", snap.Monthly)
	}
	if len(recents) != 2 || recents[0].ID != 7 || recents[0].Wallet != core.Cash || recents[1].Wallet != core.Bank {
		t.Fatalf("recents = %+v", recents)
	}
}

func TestDepositSendsFormFields(t *testing.T) {
	var got map[string]string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/goal_deposit" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		got = map[string]string{
			"goal_id":       r.PostForm.Get("goal_id"),
			"wallet_source": r.PostForm.Get("wallet_source"),
			"amount":        r.PostForm.Get("amount"),
		}
		_, _ = io.WriteString(w, `{"status":"success","message":"Berhasil menabung!"}`)
	}))

	err := c.DepositToGoal(context.Background(), core.Deposit{GoalID: 3, Wallet: core.Cash, Amount: 20000})
	if err != nil {
		t.Fatalf("DepositToGoal: %v", err)
	}
	if got["goal_id"] != "3" || got["wallet_source"] != "Cash" || got["amount"] != "20000" {
		t.Fatalf("form = %v", got)
	}
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   core.Kind
		msg    string
	}{
		{"business failure", http.StatusOK, `{"status":"error","message":"Saldo Cash tidak cukup (Sisa: 1,000)."}`, core.KindBusiness, "Saldo Cash tidak cukup (Sisa: 1,000)."},
		{"session expired", http.StatusUnauthorized, `{"status":"error","message":"Sesi Habis."}`, core.KindConnectivity, ""},
		{"server error", http.StatusInternalServerError, `oops`, core.KindConnectivity, ""},
		{"forbidden with message", http.StatusForbidden, `{"status":"error","message":"Access Denied"}`, core.KindBusiness, "Access Denied"},
		{"bad json", http.StatusOK, `<html>`, core.KindConnectivity, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			err := c.SetBudget(context.Background(), 1000)
			if core.KindOf(err) != tc.kind {
				t.Fatalf("kind = %q, want %q (err=%v)", core.KindOf(err), tc.kind, err)
			}
			if tc.msg != "" && core.Message(err) != tc.msg {
				t.Fatalf("message = %q, want %q", core.Message(err), tc.msg)
			}
		})
	}
}

func TestExportLimitIsUpgradeRequired(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"status":"error","message":"LIMIT_REACHED"}`)
	}))
	_, err := c.ExportLedger(context.Background())
	if core.KindOf(err) != core.KindUpgradeRequired || core.FeatureOf(err) != core.FeatureExport {
		t.Fatalf("expected export upgrade prompt, got %v", err)
	}
}

func TestExportReturnsBytes(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("PK\x03\x04"))
	}))
	b, err := c.ExportLedger(context.Background())
	if err != nil || string(b) != "PK\x03\x04" {
		t.Fatalf("export = %q, err=%v", b, err)
	}
}

func TestLoginKeepsSessionCookie(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["initData"] != "signed" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `{"status":"error","message":"Invalid signature"}`)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
		_, _ = io.WriteString(w, `{"status":"success","user_id":42}`)
	})
	mux.HandleFunc("/api/goals", func(w http.ResponseWriter, r *http.Request) {
		if ck, err := r.Cookie("session"); err != nil || ck.Value != "abc" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"status":"error"}`)
			return
		}
		_, _ = io.WriteString(w, `{"status":"success","data":[{"id":3,"title":"Laptop","target":5000000.0,"current":"1,250,000","deadline":"2026-12-31","priority":"P1"}]}`)
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	if err := c.Login(ctx, "forged"); core.KindOf(err) != core.KindBusiness || core.Message(err) != "Invalid signature" {
		t.Fatalf("expected invalid signature, got %v", err)
	}
	if _, err := c.ListGoals(ctx); core.KindOf(err) != core.KindConnectivity {
		t.Fatalf("expected unauthenticated failure, got %v", err)
	}
	if err := c.Login(ctx, "signed"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	goals, err := c.ListGoals(ctx)
	if err != nil {
		t.Fatalf("ListGoals: %v", err)
	}
	if len(goals) != 1 || goals[0].Current != 1250000 || goals[0].Progress() != 25 {
		t.Fatalf("goals = %+v", goals)
	}
}

func TestConnectUsesConfiguredInitData(t *testing.T) {
	var logins []string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		logins = append(logins, body["initData"])
		_, _ = io.WriteString(w, `{"status":"success","user_id":42}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	ctx := context.Background()

	anon, err := New(Config{BaseURL: srv.URL, HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := anon.Connect(ctx); err != nil || len(logins) != 0 {
		t.Fatalf("Connect without launch data: err=%v logins=%v", err, logins)
	}

	c, err := New(Config{BaseURL: srv.URL, InitData: "signed", HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if len(logins) != 1 || logins[0] != "signed" {
		t.Fatalf("logins = %v", logins)
	}
}

func TestAddTransactionMultipart(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
		}
		if r.FormValue("mode") != "voice" {
			t.Errorf("mode = %q", r.FormValue("mode"))
		}
		f, _, err := r.FormFile("media_file")
		if err != nil {
			t.Errorf("media_file missing: %v", err)
		} else {
			b, _ := io.ReadAll(f)
			if string(b) != "OggS" {
				t.Errorf("media = %q", b)
			}
		}
		_, _ = io.WriteString(w, `{"status":"success","count":2}`)
	}))
	n, err := c.AddTransaction(context.Background(), core.Entry{
		Mode:  core.ModeVoice,
		Media: &core.Media{Name: "note.ogg", ContentType: "audio/ogg", Data: []byte("OggS")},
	})
	if err != nil || n != 2 {
		t.Fatalf("AddTransaction: n=%d err=%v", n, err)
	}
}

func TestOptimizeGoalsAction(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"success","advice":["✅ Arus kas positif","🚀 Percepat <b>Laptop</b>."],"action":{"amount":20000,"goal_id":3,"goal_title":"Laptop","wallet":"Cash"}}`)
	}))
	adv, err := c.OptimizeGoals(context.Background())
	if err != nil {
		t.Fatalf("OptimizeGoals: %v", err)
	}
	if adv.Action == nil || *adv.Action != (core.Action{GoalID: 3, GoalTitle: "Laptop", Wallet: core.Cash, Amount: 20000}) {
		t.Fatalf("action = %+v", adv.Action)
	}
	if len(adv.Lines) != 2 || !strings.Contains(adv.Lines[1], "Laptop") {
		t.Fatalf("advice = %v", adv.Lines)
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	if _, err := New(Config{BaseURL: "not a url"}); err == nil {
		t.Fatal("expected error for relative url")
	}
}
