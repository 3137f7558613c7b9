package deriv

import (
	"time"

	"deriv-copy-trader-go/internal/models"
)

type authorizeRequest struct {
	Authorize string `json:"authorize"`
}

type ticksHistoryRequest struct {
	TicksHistory string `json:"ticks_history"`
	End          string `json:"end"`
	Count        int    `json:"count"`
	Granularity  int    `json:"granularity"`
	Style        string `json:"style"`
}

// ProposalRequest is a price quote request for a stake-based contract.
type ProposalRequest struct {
	Proposal     int     `json:"proposal"`
	Amount       float64 `json:"amount"`
	Basis        string  `json:"basis"`
	ContractType string  `json:"contract_type"`
	Currency     string  `json:"currency"`
	Duration     int     `json:"duration"`
	DurationUnit string  `json:"duration_unit"`
	Symbol       string  `json:"symbol"`
}

type buyRequest struct {
	Buy   string  `json:"buy"`
	Price float64 `json:"price"`
}

type openContractRequest struct {
	ProposalOpenContract int   `json:"proposal_open_contract"`
	ContractID           int64 `json:"contract_id"`
}

// Authorization is the account summary returned by a successful authorize call.
type Authorization struct {
	Balance     float64        `json:"balance"`
	Currency    string         `json:"currency"`
	LoginID     string         `json:"loginid"`
	AccountList []AccountEntry `json:"account_list"`
}

// AccountEntry is one of the accounts linked to a credential.
type AccountEntry struct {
	LoginID   string `json:"loginid"`
	Currency  string `json:"currency"`
	IsVirtual int    `json:"is_virtual"`
}

type wireCandle struct {
	Open  float64 `json:"open"`
	Close float64 `json:"close"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Epoch int64   `json:"epoch"`
}

func (w wireCandle) toModel() models.Candle {
	return models.Candle{
		Open:  w.Open,
		Close: w.Close,
		High:  w.High,
		Low:   w.Low,
		Time:  time.Unix(w.Epoch, 0).UTC(),
	}
}

// Proposal is the broker's quote for a contract.
type Proposal struct {
	ID       string  `json:"id"`
	AskPrice float64 `json:"ask_price"`
	Payout   float64 `json:"payout"`
}

// BuyReceipt confirms a purchased contract.
type BuyReceipt struct {
	ContractID    int64   `json:"contract_id"`
	BuyPrice      float64 `json:"buy_price"`
	Payout        float64 `json:"payout"`
	TransactionID int64   `json:"transaction_id"`
}

// Contract is the status of an open or settled contract.
type Contract struct {
	ContractID int64   `json:"contract_id"`
	Profit     float64 `json:"profit"`
	Status     string  `json:"status"`
	IsSold     int     `json:"is_sold"`
}

// response is the union of every reply this client reads.
type response struct {
	MsgType              string         `json:"msg_type"`
	Error                *APIError      `json:"error,omitempty"`
	Authorize            *Authorization `json:"authorize,omitempty"`
	Candles              []wireCandle   `json:"candles,omitempty"`
	Proposal             *Proposal      `json:"proposal,omitempty"`
	Buy                  *BuyReceipt    `json:"buy,omitempty"`
	ProposalOpenContract *Contract      `json:"proposal_open_contract,omitempty"`
}
