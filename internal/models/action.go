package models

// Action types rendered as buttons on a message.
const (
	ActionTypeLink            = "link"
	ActionTypeWebview         = "webview"
	ActionTypeBuy             = "buy"
	ActionTypePostback        = "postback"
	ActionTypeReply           = "reply"
	ActionTypeLocationRequest = "locationRequest"
)

// Purchase states for buy actions.
const (
	ActionStateOffered = "offered"
	ActionStatePaid    = "paid"
)

// Webview sizes.
const (
	WebviewSizeFull    = "full"
	WebviewSizeTall    = "tall"
	WebviewSizeCompact = "compact"
)

// MessageAction is a button bound to a message or carousel item. Actions are
// constructed from server data and never mutated by the engine.
type MessageAction struct {
	ID       string
	Type     string
	Text     string
	URI      string
	Fallback string
	// Size applies to webview actions only.
	Size    string
	Payload string
	IconURL string
	Default bool
	// State, Amount and Currency apply to buy actions only. Amount is in the
	// currency's minor unit (cents for USD).
	State    string
	Amount   int64
	Currency string
	Metadata map[string]string
}

// MessageItem is one entry of a carousel or list message.
type MessageItem struct {
	Title       string
	Description string
	MediaURL    string
	MediaType   string
	Size        string
	Actions     []MessageAction
	Metadata    map[string]string
}

func (i MessageItem) copy() MessageItem {
	c := i
	if i.Actions != nil {
		c.Actions = make([]MessageAction, len(i.Actions))
		copy(c.Actions, i.Actions)
	}
	if i.Metadata != nil {
		c.Metadata = make(map[string]string, len(i.Metadata))
		for k, v := range i.Metadata {
			c.Metadata[k] = v
		}
	}
	return c
}
