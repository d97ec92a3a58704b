package core

// EntryMode selects how a transaction is submitted.
type EntryMode string

const (
	ModeManual EntryMode = "manual"
	ModeText   EntryMode = "text"
	ModeVoice  EntryMode = "voice"
	ModeImage  EntryMode = "image"
)

// Media is an opaque recording or picture passed to the ledger service.
type Media struct {
	Name        string
	ContentType string
	Data        []byte
}

// Entry is a transaction submission. Manual entries carry the fields
// directly; text, voice and image entries are parsed by the service and may
// produce several transactions.
type Entry struct {
	Mode        EntryMode
	Type        TxType
	Amount      int64
	Category    string
	Wallet      Wallet
	Description string
	Text        string
	Media       *Media
}

// ManualEntry is the validated shape of a manual submission.
type ManualEntry struct {
	Type        TxType `validate:"required,oneof=IN OUT"`
	Amount      int64  `validate:"gt=0"`
	Category    string `validate:"required"`
	Wallet      Wallet `validate:"required,oneof=Cash E-Wallet Bank"`
	Description string `validate:"required"`
}

// Manual returns the manual form of e. Income entries always use the
// income category.
func (e Entry) Manual() ManualEntry {
	m := ManualEntry{
		Type:        e.Type,
		Amount:      e.Amount,
		Category:    e.Category,
		Wallet:      e.Wallet,
		Description: e.Description,
	}
	if m.Type == In {
		m.Category = CategoryIncome
	}
	return m
}

// Feature returns the gated feature needed by the entry mode, if any.
func (m EntryMode) Feature() string {
	switch m {
	case ModeVoice:
		return FeatureVoice
	case ModeImage:
		return FeatureImage
	}
	return ""
}

func (m EntryMode) Valid() bool {
	switch m {
	case ModeManual, ModeText, ModeVoice, ModeImage:
		return true
	}
	return false
}
