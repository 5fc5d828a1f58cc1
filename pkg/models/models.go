package models

import (
	"slices"
	"time"
)

// Field names a persisted account attribute. Values match the dynamodbav tags on Account.
type Field string

const (
	FieldCoins          Field = "coins"
	FieldDiamonds       Field = "diamonds"
	FieldWealth         Field = "wealth"
	FieldRechargePoints Field = "recharge_points"
	FieldAgencyBalance  Field = "agency_balance"
	FieldIsVip          Field = "is_vip"
	FieldVipLevel       Field = "vip_level"
	FieldFrame          Field = "frame"
	FieldOwnedItems     Field = "owned_items"
	FieldName           Field = "name"
	FieldActiveBubble   Field = "active_bubble"
)

// IsCounter reports whether the field is an amount-bearing counter.
// Counters are persisted remotely as atomic increments, never as absolute values.
func (f Field) IsCounter() bool {
	switch f {
	case FieldCoins, FieldDiamonds, FieldWealth, FieldRechargePoints, FieldAgencyBalance:
		return true
	}
	return false
}

// IsProfile reports whether the field may be edited through a profile update.
func (f Field) IsProfile() bool {
	switch f {
	case FieldName, FieldFrame, FieldActiveBubble:
		return true
	}
	return false
}

// Account is the internal domain model for a user's currency account.
type Account struct {
	UserId         string    `json:"user_id" dynamodbav:"user_id"`
	Name           string    `json:"name" dynamodbav:"name"`
	Coins          int64     `json:"coins" dynamodbav:"coins"`
	Diamonds       int64     `json:"diamonds" dynamodbav:"diamonds"`
	Wealth         int64     `json:"wealth" dynamodbav:"wealth"`
	RechargePoints int64     `json:"recharge_points" dynamodbav:"recharge_points"`
	AgencyBalance  int64     `json:"agency_balance" dynamodbav:"agency_balance"`
	IsAgency       bool      `json:"is_agency" dynamodbav:"is_agency"`
	IsVip          bool      `json:"is_vip" dynamodbav:"is_vip"`
	VipLevel       int       `json:"vip_level" dynamodbav:"vip_level"`
	Frame          *string   `json:"frame" dynamodbav:"frame"`
	ActiveBubble   string    `json:"active_bubble,omitempty" dynamodbav:"active_bubble,omitempty"`
	OwnedItems     []string  `json:"owned_items" dynamodbav:"owned_items,stringset,omitempty"`
	CreatedAt      time.Time `json:"created_at" dynamodbav:"created_at"`
}

// Owns reports whether itemID is already in the account's owned items.
func (a *Account) Owns(itemID string) bool {
	return slices.Contains(a.OwnedItems, itemID)
}

// Apply writes every field present in the patch onto the account.
func (a *Account) Apply(p Patch) {
	for f, v := range p {
		switch f {
		case FieldCoins:
			a.Coins = v.(int64)
		case FieldDiamonds:
			a.Diamonds = v.(int64)
		case FieldWealth:
			a.Wealth = v.(int64)
		case FieldRechargePoints:
			a.RechargePoints = v.(int64)
		case FieldAgencyBalance:
			a.AgencyBalance = v.(int64)
		case FieldIsVip:
			a.IsVip = v.(bool)
		case FieldVipLevel:
			a.VipLevel = v.(int)
		case FieldFrame:
			a.Frame = v.(*string)
		case FieldOwnedItems:
			a.OwnedItems = slices.Clone(v.([]string))
		case FieldName:
			a.Name = v.(string)
		case FieldActiveBubble:
			a.ActiveBubble = v.(string)
		}
	}
}

// Patch holds absolute field values keyed by field.
type Patch map[Field]any

// Merge returns a new patch holding p's fields overwritten by newer's, field by field.
func (p Patch) Merge(newer Patch) Patch {
	out := make(Patch, len(p)+len(newer))
	for f, v := range p {
		out[f] = v
	}
	for f, v := range newer {
		out[f] = v
	}
	return out
}

// VIPPackage is a purchasable VIP rank.
type VIPPackage struct {
	Level    int     `json:"level" dynamodbav:"level"`
	Name     string  `json:"name" dynamodbav:"name"`
	Cost     int64   `json:"cost" dynamodbav:"cost"`
	FrameURL *string `json:"frame_url" dynamodbav:"frame_url"`
}

// Update is the payload of one remote write against a single account.
type Update struct {
	AccountID string
	// Set holds non-counter fields written as absolute last-write-wins values.
	Set Patch
	// Increments holds signed counter changes applied atomically.
	Increments map[Field]int64
	// AddItems are set-union additions to owned_items.
	AddItems []string
}

// Empty reports whether the update would write nothing.
func (u Update) Empty() bool {
	return len(u.Set) == 0 && len(u.Increments) == 0 && len(u.AddItems) == 0
}

// Transfer is an agency credit persisted as one atomic two-account batch.
type Transfer struct {
	Id       string
	AgentId  string
	TargetId string
	Amount   int64
}
