package memory

import (
	"strings"

	"github.com/shopspring/decimal"

	"dompet/internal/core"
)

type parsed struct {
	typ         core.TxType
	amount      int64
	category    string
	wallet      core.Wallet
	description string
}

var (
	incomeWords = []string{"gaji", "terima", "masuk", "bonus", "dapat"}
	walletWords = map[string]core.Wallet{
		"cash": core.Cash, "tunai": core.Cash, "uang": core.Cash,
		"bank": core.Bank, "bca": core.Bank, "mandiri": core.Bank, "bri": core.Bank, "bni": core.Bank, "atm": core.Bank, "debit": core.Bank,
		"gopay": core.EWallet, "ovo": core.EWallet, "dana": core.EWallet, "shopeepay": core.EWallet, "e-wallet": core.EWallet,
	}
	categoryWords = map[string]string{
		"makan": core.CategoryFood, "kopi": core.CategoryFood, "sarapan": core.CategoryFood,
		"ojek": core.CategoryTransport, "bensin": core.CategoryTransport, "parkir": core.CategoryTransport,
		"listrik": core.CategoryBills, "pulsa": core.CategoryBills, "internet": core.CategoryBills,
		"belanja": core.CategoryShopping, "baju": core.CategoryShopping,
		"obat": core.CategoryHealth, "dokter": core.CategoryHealth,
		"film": core.CategoryEntertainment, "game": core.CategoryEntertainment,
	}
)

// parseText understands short notes such as "makan siang 25rb cash" or
// "gaji 5jt bca". The hosted service uses a language model for this; the
// offline store only recognises keywords.
func parseText(text string) (parsed, bool) {
	p := parsed{typ: core.Out, category: core.CategoryOther, wallet: core.Cash}
	var desc []string
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		if v, ok := parseShorthand(tok); ok && p.amount == 0 {
			p.amount = v
			continue
		}
		if w, ok := walletWords[tok]; ok {
			p.wallet = w
			continue
		}
		for _, iw := range incomeWords {
			if tok == iw {
				p.typ = core.In
			}
		}
		if c, ok := categoryWords[tok]; ok && p.category == core.CategoryOther {
			p.category = c
		}
		desc = append(desc, tok)
	}
	if p.amount <= 0 {
		return parsed{}, false
	}
	if p.typ == core.In {
		p.category = core.CategoryIncome
	}
	p.description = strings.Join(desc, " ")
	if p.description == "" {
		p.description = p.category
	}
	return p, true
}

// parseShorthand accepts plain amounts and the rb/k (thousand) and jt
// (million) suffixes.
func parseShorthand(tok string) (int64, bool) {
	mult := int64(1)
	switch {
	case strings.HasSuffix(tok, "rb"):
		tok, mult = strings.TrimSuffix(tok, "rb"), 1000
	case strings.HasSuffix(tok, "k"):
		tok, mult = strings.TrimSuffix(tok, "k"), 1000
	case strings.HasSuffix(tok, "jt"):
		tok, mult = strings.TrimSuffix(tok, "jt"), 1000000
	}
	if tok == "" || tok[0] < '0' || tok[0] > '9' {
		return 0, false
	}
	if d, err := decimal.NewFromString(strings.ReplaceAll(tok, ",", ".")); err == nil && mult > 1 {
		v := d.Mul(decimal.NewFromInt(mult)).IntPart()
		return v, v > 0
	}
	v, err := core.ParseAmount(tok)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v * mult, true
}
